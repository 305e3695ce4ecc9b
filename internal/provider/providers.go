// Package provider defines the narrow contracts the optimization core uses
// to reach external context sources. Production adapters live next to the
// interfaces; the core only ever sees these types.
package provider

import (
	"context"
	"time"
)

// Weather is a single-day forecast summary
type Weather struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"` // "rain", "snow", "sunny", "clear", "cloudy", ...
}

// WeatherProvider supplies a forecast for a date
type WeatherProvider interface {
	Forecast(ctx context.Context, date time.Time) (*Weather, error)
}

// CalendarEvent is one scheduled event
type CalendarEvent struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// CalendarProvider supplies a user's events for a date
type CalendarProvider interface {
	Events(ctx context.Context, userID string, date time.Time) ([]CalendarEvent, error)
}

// Position is a live device position
type Position struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// LocationProvider supplies the current device position for a user
type LocationProvider interface {
	CurrentPosition(ctx context.Context, userID string) (*Position, error)
}

// LocationPatternType classifies a learned significant place
type LocationPatternType string

const (
	PlaceHome  LocationPatternType = "home"
	PlaceWork  LocationPatternType = "work"
	PlaceGym   LocationPatternType = "gym"
	PlaceOther LocationPatternType = "other"
)

// LocationPattern is a learned significant place
type LocationPattern struct {
	Type         LocationPatternType `json:"type"`
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	RadiusMeters float64             `json:"radius_meters"`
}

// LocationPatternProvider supplies a user's learned significant places
type LocationPatternProvider interface {
	Patterns(ctx context.Context, userID string) ([]LocationPattern, error)
}

// SunTimes holds the sun events for one date at one location
type SunTimes struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

// SunTimesProvider computes sun events for a location and date
type SunTimesProvider interface {
	Times(ctx context.Context, lat, lon float64, date time.Time) (*SunTimes, error)
}
