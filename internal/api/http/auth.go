package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/city-weather-tracker/internal/auth"
)

const userLocalsKey = "user"

type registerRequest struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Mobile   string `json:"mobile" form:"mobile"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	RoleType string `json:"roleType" form:"roleType"`
}

func (h *handlers) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	session, err := h.auth.Register(c.UserContext(), req.Name, req.Mobile, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return fiber.NewError(fiber.StatusBadRequest, "User already exists")
		}
		return h.internalError(c, "register", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  true,
		"message": "User registered successfully",
		"data":    session,
	})
}

func (h *handlers) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password, req.RoleType)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}
		return h.internalError(c, "login", err)
	}

	return c.JSON(fiber.Map{
		"status":  true,
		"message": "Logged in successfully!",
		"data":    session,
	})
}

func (h *handlers) getProfile(c *fiber.Ctx) error {
	user, _ := c.Locals(userLocalsKey).(*auth.User)
	profile, err := h.auth.GetProfile(user)
	if err != nil {
		return h.internalError(c, "get profile", err)
	}
	return c.JSON(fiber.Map{
		"status": true,
		"user":   profile,
	})
}

// requireAuth resolves the bearer token to a user and stores it in Locals.
func (h *handlers) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return fiber.NewError(fiber.StatusForbidden, "Please provide an Authorization header!")
	}

	user, err := h.auth.VerifyToken(c.UserContext(), header)
	switch {
	case err == nil:
		c.Locals(userLocalsKey, user)
		return c.Next()
	case errors.Is(err, auth.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, "Invalid token!")
	case errors.Is(err, auth.ErrUserNotFound):
		return fiber.NewError(fiber.StatusBadRequest, "User not found!")
	default:
		return h.internalError(c, "verify token", err)
	}
}

func (h *handlers) internalError(c *fiber.Ctx, op string, err error) error {
	h.logger.ErrorContext(c.UserContext(), "request failed", slog.String("op", op), slog.Any("error", err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status": false,
		"error":  err.Error(),
	})
}
