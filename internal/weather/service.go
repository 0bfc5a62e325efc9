package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/city-weather-tracker/internal/metrics"
)

// ServiceConfig tunes RefreshAll.
type ServiceConfig struct {
	// Concurrency bounds the number of cities refreshed at once.
	Concurrency int
	// RefreshTimeout bounds a single city's fetch and write.
	RefreshTimeout time.Duration
}

// Service tracks cities and keeps their weather snapshots current.
type Service struct {
	store    CityStore
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      ServiceConfig
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(store CityStore, provider Provider, logger *slog.Logger, m *metrics.Metrics, cfg ServiceConfig) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	return &Service{
		store:    store,
		provider: provider,
		logger:   logger.With(slog.String("component", "city_tracking")),
		metrics:  m,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetWeather returns the provider's raw payload for an ad-hoc lookup.
// Nothing is persisted.
func (s *Service) GetWeather(ctx context.Context, city string) (json.RawMessage, error) {
	reading, err := s.provider.Fetch(ctx, city)
	if err != nil {
		return nil, err
	}
	return reading.Raw, nil
}

// AddCity fetches the current weather for name and starts tracking it.
func (s *Service) AddCity(ctx context.Context, name string) (*TrackedCity, error) {
	name = strings.TrimSpace(name)

	existing, err := s.store.FindCityByName(ctx, name)
	if err != nil && !errors.Is(err, ErrCityNotTracked) {
		return nil, fmt.Errorf("lookup city %q: %w", name, err)
	}
	if existing != nil {
		return nil, ErrCityExists
	}

	reading, err := s.provider.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	city := &TrackedCity{
		ID:          uuid.NewString(),
		Name:        name,
		Weather:     reading.Snapshot,
		LastUpdated: s.now(),
	}
	if err := s.store.CreateCity(ctx, city); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "city tracked", slog.String("city", city.Name), slog.String("id", city.ID))
	return city, nil
}

// ListCities returns every tracked city in storage order.
func (s *Service) ListCities(ctx context.Context) ([]TrackedCity, error) {
	return s.store.ListCities(ctx)
}

// RemoveCity stops tracking the city with the given id.
func (s *Service) RemoveCity(ctx context.Context, id string) error {
	if err := s.store.DeleteCity(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "city removed", slog.String("id", id))
	return nil
}

// RefreshCity refetches a single tracked city and returns the updated record.
func (s *Service) RefreshCity(ctx context.Context, id string) (*TrackedCity, error) {
	city, err := s.store.GetCity(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.refresh(ctx, *city)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RefreshAll refreshes every tracked city independently. A failing city does
// not stop the others; failures are collected in the report and logged.
// The returned error is non-nil only when the city list cannot be read.
func (s *Service) RefreshAll(ctx context.Context) (RefreshReport, error) {
	start := time.Now()

	cities, err := s.store.ListCities(ctx)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("list tracked cities: %w", err)
	}

	results := make([]error, len(cities))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, city := range cities {
		i, city := i, city
		g.Go(func() error {
			_, results[i] = s.refresh(ctx, city)
			return nil
		})
	}
	_ = g.Wait()

	report := RefreshReport{Total: len(cities)}
	for i, err := range results {
		if err == nil {
			report.Updated++
			continue
		}
		report.Failed = append(report.Failed, CityFailure{
			CityID: cities[i].ID,
			Name:   cities[i].Name,
			Err:    err,
		})
		s.logger.WarnContext(ctx, "city refresh failed",
			slog.String("city", cities[i].Name),
			slog.String("id", cities[i].ID),
			slog.Any("error", err),
		)
	}
	report.Duration = time.Since(start)
	s.metrics.ObserveRefresh(report.Updated, len(report.Failed), report.Duration)

	s.logger.InfoContext(ctx, "refresh completed",
		slog.Int("total", report.Total),
		slog.Int("updated", report.Updated),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Service) refresh(ctx context.Context, city TrackedCity) (TrackedCity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RefreshTimeout)
	defer cancel()

	reading, err := s.provider.Fetch(ctx, city.Name)
	if err != nil {
		return city, err
	}

	updatedAt := s.now()
	if err := s.store.UpdateCityWeather(ctx, city.ID, reading.Snapshot, updatedAt); err != nil {
		return city, fmt.Errorf("store weather for %q: %w", city.Name, err)
	}

	city.Weather = reading.Snapshot
	city.LastUpdated = updatedAt
	return city, nil
}
