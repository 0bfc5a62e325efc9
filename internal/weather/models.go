package weather

import (
	"encoding/json"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Snapshot is the last known weather for a tracked city.
// Sunrise and Sunset are clock times (15:04:05, UTC).
type Snapshot struct {
	Temperature float64   `json:"temperature"`
	Condition   string    `json:"condition"`
	Summary     Condition `json:"summary"`
	Icon        string    `json:"icon"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Sunrise     string    `json:"sunrise"`
	Sunset      string    `json:"sunset"`
}

// TrackedCity is a city whose snapshot is refreshed by the sync job.
type TrackedCity struct {
	ID          string    `json:"_id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Weather     Snapshot  `json:"weather" gorm:"embedded;embeddedPrefix:weather_"`
	LastUpdated time.Time `json:"lastUpdated" gorm:"not null"`
}

func (TrackedCity) TableName() string {
	return "tracked_cities"
}

// Reading is one provider response: the untouched payload plus its mapped snapshot.
type Reading struct {
	ProviderName string
	ObservedAt   time.Time
	Raw          json.RawMessage
	Snapshot     Snapshot
}

// CityFailure records a city that could not be refreshed.
type CityFailure struct {
	CityID string `json:"cityId"`
	Name   string `json:"name"`
	Err    error  `json:"-"`
}

// RefreshReport summarizes one RefreshAll run.
type RefreshReport struct {
	Total    int           `json:"total"`
	Updated  int           `json:"updated"`
	Failed   []CityFailure `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
}
