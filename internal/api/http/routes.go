package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/city-weather-tracker/internal/auth"
	"github.com/i474232898/city-weather-tracker/internal/weather"
)

var validate = validator.New()

// AuthService is what the auth routes need from auth.Service.
type AuthService interface {
	Register(ctx context.Context, name, mobile, email, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password, roleType string) (*auth.Session, error)
	VerifyToken(ctx context.Context, header string) (*auth.User, error)
	GetProfile(user *auth.User) (*auth.User, error)
}

// CityService is what the city routes need from weather.Service.
type CityService interface {
	GetWeather(ctx context.Context, city string) (json.RawMessage, error)
	AddCity(ctx context.Context, name string) (*weather.TrackedCity, error)
	ListCities(ctx context.Context) ([]weather.TrackedCity, error)
	RemoveCity(ctx context.Context, id string) error
	RefreshCity(ctx context.Context, id string) (*weather.TrackedCity, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the routes are wired to.
type Deps struct {
	Auth     AuthService
	Cities   CityService
	Health   HealthChecker
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewApp returns a Fiber app with the centralized error handler and the
// middleware every deployment needs.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "city-weather-tracker",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	h := &handlers{
		auth:   deps.Auth,
		cities: deps.Cities,
		logger: deps.Logger,
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := deps.Health.Ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "unavailable",
					"service": "city-weather-tracker",
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "city-weather-tracker",
		})
	})

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/register", h.register)
	app.Post("/login", h.login)
	app.Get("/getProfile", h.requireAuth, h.getProfile)

	api := app.Group("/api")
	api.Get("/weather/:city", h.getWeather)
	api.Post("/cities", h.addCity)
	api.Get("/cities", h.listCities)
	api.Delete("/cities/:id", h.removeCity)
	api.Post("/cities/:id/refresh", h.refreshCity)
}

type handlers struct {
	auth   AuthService
	cities CityService
	logger *slog.Logger
}
