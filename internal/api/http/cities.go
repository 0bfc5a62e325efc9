package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/city-weather-tracker/internal/weather"
)

type addCityRequest struct {
	Name string `json:"name" form:"name" validate:"required"`
}

func (h *handlers) getWeather(c *fiber.Ctx) error {
	raw, err := h.cities.GetWeather(c.UserContext(), c.Params("city"))
	if err != nil {
		return h.providerError(c, err, fiber.StatusNotFound, "City not found")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func (h *handlers) addCity(c *fiber.Ctx) error {
	var req addCityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "city name is required")
	}

	city, err := h.cities.AddCity(c.UserContext(), req.Name)
	if err != nil {
		if errors.Is(err, weather.ErrCityExists) {
			return fiber.NewError(fiber.StatusBadRequest, "City already tracked")
		}
		return h.providerError(c, err, fiber.StatusBadRequest, "Error adding city")
	}
	return c.JSON(city)
}

func (h *handlers) listCities(c *fiber.Ctx) error {
	cities, err := h.cities.ListCities(c.UserContext())
	if err != nil {
		h.logger.ErrorContext(c.UserContext(), "list cities failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "Error fetching cities")
	}
	return c.JSON(cities)
}

func (h *handlers) removeCity(c *fiber.Ctx) error {
	if err := h.cities.RemoveCity(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, weather.ErrCityNotTracked) {
			return fiber.NewError(fiber.StatusNotFound, "City not found")
		}
		h.logger.ErrorContext(c.UserContext(), "remove city failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "Error removing city")
	}
	return c.JSON(fiber.Map{"message": "City removed"})
}

func (h *handlers) refreshCity(c *fiber.Ctx) error {
	city, err := h.cities.RefreshCity(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, weather.ErrCityNotTracked) {
			return fiber.NewError(fiber.StatusNotFound, "City not found")
		}
		return h.providerError(c, err, fiber.StatusNotFound, "City not found upstream")
	}
	return c.JSON(city)
}

// providerError maps weather provider failures onto HTTP statuses.
// notFoundCode/notFoundMsg are used when the provider does not know the city.
func (h *handlers) providerError(c *fiber.Ctx, err error, notFoundCode int, notFoundMsg string) error {
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		return fiber.NewError(notFoundCode, notFoundMsg)
	case errors.Is(err, weather.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, "Weather provider rate limit reached")
	case errors.Is(err, weather.ErrUpstream):
		h.logger.WarnContext(c.UserContext(), "weather provider failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusBadGateway, "Weather provider unavailable")
	default:
		h.logger.ErrorContext(c.UserContext(), "request failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "Internal error")
	}
}
