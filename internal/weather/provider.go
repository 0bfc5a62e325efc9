package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCityNotFound means the provider does not know the requested city.
	ErrCityNotFound = errors.New("city not found")
	// ErrRateLimited means the provider rejected the call with 429.
	ErrRateLimited = errors.New("weather provider rate limited")
	// ErrUpstream covers transport failures, 5xx and unexpected responses.
	ErrUpstream = errors.New("weather provider unavailable")

	// ErrCityExists is returned when a city with the same name is already tracked.
	ErrCityExists = errors.New("city already tracked")
	// ErrCityNotTracked is returned when no tracked city matches an id.
	ErrCityNotTracked = errors.New("tracked city not found")
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city string) (Reading, error)
}

// CityStore is the persistence contract for tracked cities.
// Implementations return ErrCityExists and ErrCityNotTracked.
type CityStore interface {
	CreateCity(ctx context.Context, city *TrackedCity) error
	GetCity(ctx context.Context, id string) (*TrackedCity, error)
	FindCityByName(ctx context.Context, name string) (*TrackedCity, error)
	ListCities(ctx context.Context) ([]TrackedCity, error)
	UpdateCityWeather(ctx context.Context, id string, snapshot Snapshot, updatedAt time.Time) error
	DeleteCity(ctx context.Context, id string) error
}
