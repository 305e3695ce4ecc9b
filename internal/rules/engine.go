package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/behavior"
	"github.com/wakewise/wakewise-platform/internal/provider"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// Decision is the outcome of one scheduling pass for an alarm and date
type Decision struct {
	AlarmID       string          `json:"alarm_id"`
	UserID        string          `json:"user_id"`
	Date          string          `json:"date"` // YYYY-MM-DD
	ShouldFire    bool            `json:"should_fire"`
	EffectiveTime alarm.ClockTime `json:"effective_time"`
	Notifications []string        `json:"notifications,omitempty"`
	EvaluatedAt   time.Time       `json:"evaluated_at"`
}

// PatternSource supplies learned behavior patterns to rule evaluation
type PatternSource interface {
	Pattern(ctx context.Context, userID string, patternType behavior.PatternType) *behavior.Pattern
}

// Engine runs the fixed evaluation pipeline: smart optimizations, seasonal
// adjustment, geofence triggers, conditional rules, sun override
type Engine struct {
	weather  provider.WeatherProvider
	calendar provider.CalendarProvider
	sun      provider.SunTimesProvider
	patterns PatternSource
	redis    redis.Client

	latitude               float64
	longitude              float64
	defaultMaxOptimization int
	globalMaxAdjustment    int
	providerTimeout        time.Duration

	logger *slog.Logger
}

// NewEngine creates a rule engine
func NewEngine(
	weather provider.WeatherProvider,
	calendar provider.CalendarProvider,
	sun provider.SunTimesProvider,
	patterns PatternSource,
	client redis.Client,
	latitude, longitude float64,
	defaultMaxOptimization, globalMaxAdjustment int,
	providerTimeout time.Duration,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		weather:                weather,
		calendar:               calendar,
		sun:                    sun,
		patterns:               patterns,
		redis:                  client,
		latitude:               latitude,
		longitude:              longitude,
		defaultMaxOptimization: defaultMaxOptimization,
		globalMaxAdjustment:    globalMaxAdjustment,
		providerTimeout:        providerTimeout,
		logger:                 logger,
	}
}

// Evaluate runs one scheduling pass for the alarm on the given date.
// Geofences are the active fences relevant to the alarm's user; live may
// be nil when no position is available. Never returns an error: every
// failure inside the pipeline degrades per the failure policy.
func (e *Engine) Evaluate(ctx context.Context, alm *alarm.Alarm, geofences []alarm.Geofence, date time.Time, live *provider.Position) Decision {
	decision := Decision{
		AlarmID:       alm.ID,
		UserID:        alm.UserID,
		Date:          date.Format("2006-01-02"),
		ShouldFire:    alm.Enabled && alm.AppliesOn(date),
		EffectiveTime: alm.Time,
		EvaluatedAt:   time.Now(),
	}

	// Sun-relative alarms take their base time from the sun provider,
	// replacing optimizations and seasonal offsets. Provider failure keeps
	// the configured time.
	if alm.Sun != nil {
		if sunBase, err := e.sunTime(ctx, alm.Sun, date); err == nil {
			decision.EffectiveTime = sunBase
		} else {
			e.logger.Warn("Sun schedule unavailable, keeping configured time",
				"alarm_id", alm.ID, "policy", responseTo(failProviderUnavailable), "error", err)
		}
	} else {
		weather := e.fetchWeather(ctx, alm, date)
		decision.EffectiveTime = e.applyOptimizations(alm, decision.EffectiveTime, date, weather)
		decision.EffectiveTime = e.applySeasonal(alm, decision.EffectiveTime, date)
	}

	effect := e.applyGeofences(ctx, alm, geofences, live)
	if effect.adjustMinutes != 0 {
		decision.EffectiveTime = decision.EffectiveTime.Add(effect.adjustMinutes)
	}
	if effect.forceFire != nil {
		decision.ShouldFire = *effect.forceFire
	}
	decision.Notifications = effect.notifications

	if decision.ShouldFire && e.applyConditionalRules(ctx, alm, date) {
		decision.ShouldFire = false
	}

	e.logger.Debug("Alarm evaluated",
		"alarm_id", alm.ID,
		"user_id", alm.UserID,
		"date", decision.Date,
		"should_fire", decision.ShouldFire,
		"effective_time", decision.EffectiveTime.String())

	return decision
}

// fetchWeather gets the forecast for weather-driven optimizations; nil on
// failure so the optimization contributes nothing
func (e *Engine) fetchWeather(ctx context.Context, alm *alarm.Alarm, date time.Time) *provider.Weather {
	needed := false
	for _, opt := range alm.Optimizations {
		if opt.Enabled && opt.Type == alarm.OptimizationWeather {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()

	forecast, err := e.weather.Forecast(tctx, date)
	if err != nil {
		e.logger.Debug("Weather unavailable for optimization",
			"alarm_id", alm.ID, "policy", responseTo(failProviderUnavailable), "error", err)
		return nil
	}
	return forecast
}
