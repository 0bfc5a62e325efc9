package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/i474232898/city-weather-tracker/internal/weather"
)

// CreateCity inserts a new tracked city; the name must be unused.
func (s *Store) CreateCity(ctx context.Context, city *weather.TrackedCity) error {
	if err := s.db.WithContext(ctx).Create(city).Error; err != nil {
		if isDuplicate(err) {
			return weather.ErrCityExists
		}
		return fmt.Errorf("insert city: %w", err)
	}
	return nil
}

func (s *Store) GetCity(ctx context.Context, id string) (*weather.TrackedCity, error) {
	return s.firstCity(ctx, "id = ?", id)
}

func (s *Store) FindCityByName(ctx context.Context, name string) (*weather.TrackedCity, error) {
	return s.firstCity(ctx, "name = ?", name)
}

// ListCities returns all tracked cities in storage order.
func (s *Store) ListCities(ctx context.Context) ([]weather.TrackedCity, error) {
	cities := make([]weather.TrackedCity, 0)
	if err := s.db.WithContext(ctx).Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// UpdateCityWeather overwrites the snapshot and lastUpdated of one city.
func (s *Store) UpdateCityWeather(ctx context.Context, id string, snapshot weather.Snapshot, updatedAt time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&weather.TrackedCity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"weather_temperature": snapshot.Temperature,
			"weather_condition":   snapshot.Condition,
			"weather_summary":     string(snapshot.Summary),
			"weather_icon":        snapshot.Icon,
			"weather_humidity":    snapshot.Humidity,
			"weather_wind_speed":  snapshot.WindSpeed,
			"weather_sunrise":     snapshot.Sunrise,
			"weather_sunset":      snapshot.Sunset,
			"last_updated":        updatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update city weather: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return weather.ErrCityNotTracked
	}
	return nil
}

func (s *Store) DeleteCity(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&weather.TrackedCity{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete city: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return weather.ErrCityNotTracked
	}
	return nil
}

func (s *Store) firstCity(ctx context.Context, query string, arg any) (*weather.TrackedCity, error) {
	var city weather.TrackedCity
	if err := s.db.WithContext(ctx).Where(query, arg).First(&city).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, weather.ErrCityNotTracked
		}
		return nil, fmt.Errorf("find city: %w", err)
	}
	return &city, nil
}
