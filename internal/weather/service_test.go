package weather_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/city-weather-tracker/internal/logging"
	"github.com/i474232898/city-weather-tracker/internal/metrics"
	"github.com/i474232898/city-weather-tracker/internal/store"
	"github.com/i474232898/city-weather-tracker/internal/weather"
)

// fakeProvider answers from a per-city table; unknown cities are not found.
type fakeProvider struct {
	mu    sync.Mutex
	temps map[string]float64
	errs  map[string]error
	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		temps: map[string]float64{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeProvider) set(city string, temp float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temps[city] = temp
	delete(f.errs, city)
}

func (f *fakeProvider) fail(city string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[city] = err
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(_ context.Context, city string) (weather.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[city]++
	if err, ok := f.errs[city]; ok {
		return weather.Reading{}, err
	}
	temp, ok := f.temps[city]
	if !ok {
		return weather.Reading{}, weather.ErrCityNotFound
	}
	raw, _ := json.Marshal(map[string]any{"name": city, "main": map[string]float64{"temp": temp}})
	return weather.Reading{
		ProviderName: "fake",
		ObservedAt:   time.Now().UTC(),
		Raw:          raw,
		Snapshot: weather.Snapshot{
			Temperature: temp,
			Condition:   "clear sky",
			Summary:     weather.ConditionClear,
			Icon:        "01d",
		},
	}, nil
}

func newTestService(t *testing.T) (*weather.Service, *fakeProvider, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	provider := newFakeProvider()
	svc := weather.NewService(st, provider, logging.Discard(), metrics.New(prometheus.NewRegistry()), weather.ServiceConfig{
		Concurrency:    2,
		RefreshTimeout: time.Second,
	})
	return svc, provider, st
}

func TestAddAndListCities(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService(t)
	provider.set("Paris", 25)

	city, err := svc.AddCity(ctx, "Paris")
	require.NoError(t, err)
	assert.NotEmpty(t, city.ID)
	assert.Equal(t, 25.0, city.Weather.Temperature)
	assert.Equal(t, "clear sky", city.Weather.Condition)
	assert.False(t, city.LastUpdated.IsZero())

	cities, err := svc.ListCities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "Paris", cities[0].Name)
	assert.Equal(t, 25.0, cities[0].Weather.Temperature)

	_, err = svc.AddCity(ctx, "Paris")
	assert.ErrorIs(t, err, weather.ErrCityExists)
}

func TestAddCityUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.AddCity(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrCityNotFound)

	cities, err := svc.ListCities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cities)
}

func TestRemoveCity(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService(t)
	provider.set("Paris", 25)

	assert.ErrorIs(t, svc.RemoveCity(ctx, "missing"), weather.ErrCityNotTracked)

	city, err := svc.AddCity(ctx, "Paris")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveCity(ctx, city.ID))

	cities, err := svc.ListCities(ctx)
	require.NoError(t, err)
	assert.Empty(t, cities)
}

func TestGetWeatherDoesNotTrack(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService(t)
	provider.set("London", 20)

	raw, err := svc.GetWeather(ctx, "London")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"London","main":{"temp":20}}`, string(raw))

	cities, err := svc.ListCities(ctx)
	require.NoError(t, err)
	assert.Empty(t, cities)

	_, err = svc.GetWeather(ctx, "Atlantis")
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
}

func TestRefreshAllUpdatesEveryCity(t *testing.T) {
	ctx := context.Background()
	svc, provider, st := newTestService(t)

	names := []string{"Paris", "London", "Berlin", "Madrid", "Rome"}
	before := map[string]time.Time{}
	for _, name := range names {
		provider.set(name, 10)
		city, err := svc.AddCity(ctx, name)
		require.NoError(t, err)
		before[city.ID] = city.LastUpdated
	}
	for _, name := range names {
		provider.set(name, 30)
	}

	report, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Updated)
	assert.Empty(t, report.Failed)

	cities, err := st.ListCities(ctx)
	require.NoError(t, err)
	for _, c := range cities {
		assert.Equal(t, 30.0, c.Weather.Temperature, c.Name)
		assert.False(t, c.LastUpdated.Before(before[c.ID]), c.Name)
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	svc, provider, st := newTestService(t)

	for _, name := range []string{"Paris", "London", "Berlin"} {
		provider.set(name, 10)
		_, err := svc.AddCity(ctx, name)
		require.NoError(t, err)
	}
	provider.set("Paris", 15)
	provider.set("Berlin", 15)
	provider.fail("London", fmt.Errorf("fetch: %w", weather.ErrUpstream))

	report, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "London", report.Failed[0].Name)
	assert.ErrorIs(t, report.Failed[0].Err, weather.ErrUpstream)

	london, err := st.FindCityByName(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, 10.0, london.Weather.Temperature)

	paris, err := st.FindCityByName(ctx, "Paris")
	require.NoError(t, err)
	assert.Equal(t, 15.0, paris.Weather.Temperature)
}

func TestRefreshAllEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	report, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.Updated)
}

func TestRefreshCity(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService(t)
	provider.set("Paris", 10)

	city, err := svc.AddCity(ctx, "Paris")
	require.NoError(t, err)

	provider.set("Paris", 18)
	updated, err := svc.RefreshCity(ctx, city.ID)
	require.NoError(t, err)
	assert.Equal(t, 18.0, updated.Weather.Temperature)
	assert.False(t, updated.LastUpdated.Before(city.LastUpdated))

	_, err = svc.RefreshCity(ctx, "missing")
	assert.ErrorIs(t, err, weather.ErrCityNotTracked)
}
