// Package prediction computes a bounded wake-time adjustment for one alarm
// and date by blending independent contextual factors. Each factor isolates
// its own provider failure; a failed factor is excluded, never fatal.
package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/behavior"
	"github.com/wakewise/wakewise-platform/internal/geo"
	"github.com/wakewise/wakewise-platform/internal/provider"
)

// FactorType identifies one contextual signal
type FactorType string

const (
	FactorSleepCycle FactorType = "sleep_cycle"
	FactorHistorical FactorType = "historical"
	FactorWeather    FactorType = "weather"
	FactorCalendar   FactorType = "calendar"
	FactorLocation   FactorType = "location"
	FactorHealth     FactorType = "health"
)

// Factor is one independent adjustment signal.
// Impact is in hours; positive means wake later.
type Factor struct {
	Type        FactorType `json:"type"`
	Impact      float64    `json:"impact"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description"`
}

// Baseline wake time the historical factor compares against
const baselineWakeMinutes = 7 * 60

// sleepCycleMinutes is the length of one sleep cycle
const sleepCycleMinutes = 90

// PatternSource supplies learned behavior patterns to the analyzer
type PatternSource interface {
	Pattern(ctx context.Context, userID string, patternType behavior.PatternType) *behavior.Pattern
}

// Analyzer computes the contextual factors for one (user, alarm, date)
type Analyzer struct {
	patterns        PatternSource
	weather         provider.WeatherProvider
	calendar        provider.CalendarProvider
	location        provider.LocationProvider
	places          provider.LocationPatternProvider
	providerTimeout time.Duration
	confidenceFloor float64
	logger          *slog.Logger
}

// NewAnalyzer creates a factor analyzer
func NewAnalyzer(
	patterns PatternSource,
	weather provider.WeatherProvider,
	calendar provider.CalendarProvider,
	location provider.LocationProvider,
	places provider.LocationPatternProvider,
	providerTimeout time.Duration,
	confidenceFloor float64,
	logger *slog.Logger,
) *Analyzer {
	return &Analyzer{
		patterns:        patterns,
		weather:         weather,
		calendar:        calendar,
		location:        location,
		places:          places,
		providerTimeout: providerTimeout,
		confidenceFloor: confidenceFloor,
		logger:          logger,
	}
}

// Analyze computes all factors for the alarm and date, filtered to those
// above the confidence floor
func (a *Analyzer) Analyze(ctx context.Context, userID string, alm *alarm.Alarm, date time.Time) []Factor {
	factors := []Factor{
		a.sleepCycleFactor(ctx, userID, alm),
		a.historicalFactor(ctx, userID, date),
		a.weatherFactor(ctx, date),
		a.calendarFactor(ctx, userID, alm, date),
		a.locationFactor(ctx, userID),
		a.healthFactor(ctx, userID),
	}

	var kept []Factor
	for _, f := range factors {
		if f.Confidence > a.confidenceFloor {
			kept = append(kept, f)
		}
	}

	a.logger.Debug("Factors analyzed",
		"user_id", userID,
		"alarm_id", alm.ID,
		"computed", len(factors),
		"kept", len(kept))

	return kept
}

// sleepCycleFactor nudges the alarm toward the nearest 90-minute sleep
// cycle boundary. Only applies when a sleep-quality pattern with
// confidence > 0.5 exists.
func (a *Analyzer) sleepCycleFactor(ctx context.Context, userID string, alm *alarm.Alarm) Factor {
	f := Factor{Type: FactorSleepCycle}

	sleep := a.patterns.Pattern(ctx, userID, behavior.PatternSleepQuality)
	if sleep == nil || sleep.Confidence <= 0.5 {
		return f
	}

	current := alm.Time.Minutes()
	nearest := int(math.Round(float64(current)/sleepCycleMinutes)) * sleepCycleMinutes

	impact := float64(nearest-current) / 60.0
	if impact > 0.5 {
		impact = 0.5
	}
	if impact < -0.5 {
		impact = -0.5
	}

	f.Impact = impact
	f.Confidence = sleep.Confidence
	f.Description = fmt.Sprintf("Aligning with 90-minute sleep cycles (nearest boundary %s)",
		alarm.ClockTime(wrapMinutes(nearest)).String())
	return f
}

// historicalFactor compares the learned typical wake time for this weekday
// against the 7:00 baseline
func (a *Analyzer) historicalFactor(ctx context.Context, userID string, date time.Time) Factor {
	f := Factor{Type: FactorHistorical}

	wake := a.patterns.Pattern(ctx, userID, behavior.PatternWakeTime)
	if wake == nil {
		return f
	}

	field := WeekdayField(date.Weekday())
	typical, ok := wake.Numeric[field]
	if !ok {
		return f
	}

	f.Impact = (typical - baselineWakeMinutes) / 60.0
	f.Confidence = wake.Confidence
	f.Description = fmt.Sprintf("You typically wake around %s on %ss",
		alarm.ClockTime(wrapMinutes(int(math.Round(typical)))).String(), date.Weekday())
	return f
}

// weatherFactor shifts the wake time by forecast condition: precipitation
// means waking a bit later, bright mornings a bit earlier, temperature
// extremes add a small buffer
func (a *Analyzer) weatherFactor(ctx context.Context, date time.Time) Factor {
	f := Factor{Type: FactorWeather}

	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	forecast, err := a.weather.Forecast(tctx, date)
	if err != nil {
		a.logger.Debug("Weather provider unavailable", "error", err)
		return f
	}

	condition := strings.ToLower(forecast.Condition)
	switch {
	case strings.Contains(condition, "rain"), strings.Contains(condition, "snow"):
		f.Impact = 0.17
		f.Description = fmt.Sprintf("Wet weather expected (%s), allowing extra time", forecast.Condition)
	case strings.Contains(condition, "sunny"), strings.Contains(condition, "clear"):
		f.Impact = -0.08
		f.Description = "Bright morning expected, waking slightly earlier"
	default:
		f.Description = fmt.Sprintf("Neutral weather (%s)", forecast.Condition)
	}

	if forecast.Temperature < -10 || forecast.Temperature > 30 {
		f.Impact += 0.08
		f.Description += ", temperature extreme adds buffer"
	}

	f.Confidence = 0.6
	return f
}

// calendarFactor pulls the wake time earlier when the first event is close
// after the alarm, and relaxes it when the morning is free
func (a *Analyzer) calendarFactor(ctx context.Context, userID string, alm *alarm.Alarm, date time.Time) Factor {
	f := Factor{Type: FactorCalendar}

	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	events, err := a.calendar.Events(tctx, userID, date)
	if err != nil {
		a.logger.Debug("Calendar provider unavailable", "user_id", userID, "error", err)
		return f
	}
	if len(events) == 0 {
		return f
	}

	alarmMinutes := alm.Time.Minutes()
	first := -1
	for _, ev := range events {
		evMinutes := alarm.ClockFromTime(ev.Start).Minutes()
		if evMinutes <= alarmMinutes {
			continue
		}
		if first == -1 || evMinutes < first {
			first = evMinutes
		}
	}
	if first == -1 {
		return f
	}

	gap := first - alarmMinutes
	switch {
	case gap < 60:
		f.Impact = -0.25
		f.Confidence = 0.8
		f.Description = fmt.Sprintf("First event %d minutes after alarm, waking earlier", gap)
	case gap > 180:
		f.Impact = 0.08
		f.Confidence = 0.4
		f.Description = "Free morning, small buffer added"
	}
	return f
}

// locationFactor adds travel buffer when the user is far from their learned
// home location
func (a *Analyzer) locationFactor(ctx context.Context, userID string) Factor {
	f := Factor{Type: FactorLocation}

	tctx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	position, err := a.location.CurrentPosition(tctx, userID)
	if err != nil {
		a.logger.Debug("Location provider unavailable", "user_id", userID, "error", err)
		return f
	}

	places, err := a.places.Patterns(tctx, userID)
	if err != nil || len(places) == 0 {
		return f
	}

	var home *provider.LocationPattern
	for i := range places {
		if places[i].Type == provider.PlaceHome {
			home = &places[i]
			break
		}
	}
	if home == nil {
		return f
	}

	distance := geo.HaversineMeters(position.Latitude, position.Longitude, home.Latitude, home.Longitude)
	switch {
	case distance > 10000:
		f.Impact = 0.17
		f.Confidence = 0.7
		f.Description = fmt.Sprintf("Away from home (%.1f km), travel buffer added", distance/1000)
	case distance < 1000:
		f.Impact = -0.05
		f.Confidence = 0.5
		f.Description = "At home, slightly earlier wake works"
	}
	return f
}

// healthFactor adjusts for recent sleep quality and duration
func (a *Analyzer) healthFactor(ctx context.Context, userID string) Factor {
	f := Factor{Type: FactorHealth}

	sleep := a.patterns.Pattern(ctx, userID, behavior.PatternSleepQuality)
	if sleep == nil {
		return f
	}

	quality, hasQuality := sleep.Numeric["quality"]
	duration, hasDuration := sleep.Numeric["duration_hours"]
	if !hasQuality && !hasDuration {
		return f
	}

	var parts []string
	if hasQuality {
		switch {
		case quality < 6:
			f.Impact += 0.17
			parts = append(parts, fmt.Sprintf("recent sleep quality low (%.1f/10)", quality))
		case quality > 8:
			f.Impact += -0.08
			parts = append(parts, fmt.Sprintf("recent sleep quality high (%.1f/10)", quality))
		}
	}
	if hasDuration && duration < 7 {
		f.Impact += 0.08
		parts = append(parts, fmt.Sprintf("short average sleep (%.1fh)", duration))
	}

	if len(parts) == 0 {
		return f
	}

	f.Confidence = sleep.Confidence
	f.Description = "Health signals: " + strings.Join(parts, ", ")
	return f
}

// WeekdayField is the numeric field name holding the learned typical wake
// minute for a weekday, e.g. "monday_minutes"
func WeekdayField(day time.Weekday) string {
	return strings.ToLower(day.String()) + "_minutes"
}

func wrapMinutes(m int) int {
	m %= 24 * 60
	if m < 0 {
		m += 24 * 60
	}
	return m
}
