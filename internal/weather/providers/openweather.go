package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-weather-tracker/internal/metrics"
	"github.com/i474232898/city-weather-tracker/internal/weather"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// Option customizes an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL points the provider at another host (scheme and host only).
func WithBaseURL(baseURL string) Option {
	return func(p *OpenWeatherProvider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRetries enables exponential backoff on transport and 5xx failures.
func WithRetries(maxRetries int) Option {
	return func(p *OpenWeatherProvider) {
		p.httpCfg.Backoff.MaxRetries = maxRetries
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *OpenWeatherProvider) {
		p.metrics = m
	}
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: defaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch returns current conditions for city in metric units.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	start := time.Now()
	reading, err := p.fetch(ctx, city)
	p.metrics.ObserveProviderCall(p.name, outcome(err), time.Since(start))
	return reading, err
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUpstream)
	}
	if strings.TrimSpace(city) == "" {
		return weather.Reading{}, weather.ErrCityNotFound
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s/data/2.5/weather?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	body, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("fetch %q from %s: %w", city, p.name, err)
	}

	var payload openWeatherPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: decoding %s payload: %v", weather.ErrUpstream, p.name, err)
	}

	observed := time.Now().UTC()
	if payload.Dt > 0 {
		observed = time.Unix(payload.Dt, 0).UTC()
	}

	return weather.Reading{
		ProviderName: p.name,
		ObservedAt:   observed,
		Raw:          json.RawMessage(body),
		Snapshot:     payload.snapshot(),
	}, nil
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type openWeatherPayload struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Weather []openWeatherCondition `json:"weather"`
}

func (p openWeatherPayload) snapshot() weather.Snapshot {
	s := weather.Snapshot{
		Temperature: p.Main.Temp,
		Humidity:    p.Main.Humidity,
		WindSpeed:   p.Wind.Speed,
		Sunrise:     clockTime(p.Sys.Sunrise),
		Sunset:      clockTime(p.Sys.Sunset),
		Summary:     mapOpenWeatherCondition(p.Weather),
	}
	if len(p.Weather) > 0 {
		s.Condition = p.Weather[0].Description
		s.Icon = p.Weather[0].Icon
	}
	return s
}

func clockTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(time.TimeOnly)
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, weather.ErrCityNotFound):
		return "not_found"
	case errors.Is(err, weather.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
