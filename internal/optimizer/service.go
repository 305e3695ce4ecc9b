// Package optimizer is the facade over the wake optimization pipeline:
// behavior learning, prediction, pattern mining, insight generation, and
// alarm rule evaluation. Every public operation returns a best-effort
// result; nothing here fails a caller outright.
package optimizer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/behavior"
	"github.com/wakewise/wakewise-platform/internal/insight"
	"github.com/wakewise/wakewise-platform/internal/prediction"
	"github.com/wakewise/wakewise-platform/internal/provider"
	"github.com/wakewise/wakewise-platform/internal/rules"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// How far back pattern analysis reaches into the wake-event history
const analysisWindowDays = 120

// analysisEventLimit bounds one analysis pass
const analysisEventLimit = 500

// Service exposes the optimization operations. The per-user enable flag
// gates prediction and rule evaluation; recording and analysis always run
// so history is not lost while the feature is off.
type Service struct {
	store     *behavior.Store
	history   *behavior.History
	engine    *prediction.Engine
	detector  *insight.Detector
	registry  *insight.Registry
	generator *insight.Generator
	rules     *rules.Engine
	defs      *alarm.Definitions
	redis     redis.Client
	logger    *slog.Logger
}

// NewService wires the pipeline together. history may be nil when no
// durable event log is configured. Registers a store hook so every
// recorded behavior invalidates the user's cached predictions.
func NewService(
	store *behavior.Store,
	history *behavior.History,
	engine *prediction.Engine,
	detector *insight.Detector,
	registry *insight.Registry,
	generator *insight.Generator,
	ruleEngine *rules.Engine,
	defs *alarm.Definitions,
	redisClient redis.Client,
	logger *slog.Logger,
) *Service {
	s := &Service{
		store:     store,
		history:   history,
		engine:    engine,
		detector:  detector,
		registry:  registry,
		generator: generator,
		rules:     ruleEngine,
		defs:      defs,
		redis:     redisClient,
		logger:    logger,
	}

	store.OnRecord(func(userID string) {
		engine.Cache().InvalidateUser(userID)
	})

	return s
}

// RecordBehavior folds one observation into the user's learned patterns
// and, for wake-time observations, appends a durable wake event. Cache
// invalidation happens via the store hook.
func (s *Service) RecordBehavior(ctx context.Context, userID string, patternType behavior.PatternType, data map[string]interface{}) {
	s.store.RecordBehavior(ctx, userID, patternType, data)

	if s.history == nil || patternType != behavior.PatternWakeTime {
		return
	}

	ev := wakeEventFromData(userID, data)
	if ev == nil {
		return
	}
	if err := s.history.Record(ctx, ev); err != nil {
		s.logger.Warn("Failed to append wake event history",
			"user_id", userID, "error", err)
	}
}

// wakeEventFromData extracts a wake event from a wake-time observation,
// or nil when the observation has no usable wake minute
func wakeEventFromData(userID string, data map[string]interface{}) *behavior.WakeEvent {
	wake, ok := numericField(data, "wake_minutes")
	if !ok {
		return nil
	}

	ev := &behavior.WakeEvent{
		UserID:      userID,
		Date:        time.Now(),
		WakeMinutes: int(wake),
	}
	if snooze, ok := numericField(data, "snooze_count"); ok {
		ev.SnoozeCount = int(snooze)
	}
	if weather, ok := data["weather"].(string); ok {
		ev.WeatherCondition = weather
	}
	if lat, ok := numericField(data, "latitude"); ok {
		ev.Latitude = &lat
	}
	if lon, ok := numericField(data, "longitude"); ok {
		ev.Longitude = &lon
	}
	return ev
}

func numericField(data map[string]interface{}, field string) (float64, bool) {
	switch v := data[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// PredictOptimalTime computes the optimal wake time for the alarm on the
// given date. When optimization is disabled for the user, the configured
// time comes back untouched with confidence 0.
func (s *Service) PredictOptimalTime(ctx context.Context, userID string, alm *alarm.Alarm, date time.Time) *prediction.Result {
	if !s.OptimizationEnabled(ctx, userID) {
		return &prediction.Result{
			UserID:      userID,
			AlarmID:     alm.ID,
			Date:        date.Format("2006-01-02"),
			OptimalTime: alm.Time,
			Confidence:  0,
			Reasoning:   []string{"Optimization is turned off"},
			ComputedAt:  time.Now(),
		}
	}

	return s.engine.Predict(ctx, userID, alm, date)
}

// AnalyzePatterns mines the given wake events for durable patterns and
// swaps the user's registry. With nil events the recent history is loaded
// from the event log. Returns everything detected; the registry keeps only
// what clears the retention thresholds.
func (s *Service) AnalyzePatterns(ctx context.Context, userID string, events []behavior.WakeEvent) []insight.DetectedPattern {
	if events == nil && s.history != nil {
		since := time.Now().AddDate(0, 0, -analysisWindowDays)
		loaded, err := s.history.EventsForUser(ctx, userID, since, analysisEventLimit)
		if err != nil {
			s.logger.Warn("Failed to load wake history for analysis",
				"user_id", userID, "error", err)
			return nil
		}
		events = loaded
	}

	patterns := s.detector.Analyze(userID, events)

	if err := s.registry.Replace(ctx, userID, patterns); err != nil {
		s.logger.Warn("Failed to update pattern registry",
			"user_id", userID, "error", err)
	}

	return patterns
}

// GenerateInsights builds ranked insights from the user's retained
// patterns and alarm configuration
func (s *Service) GenerateInsights(ctx context.Context, userID string) []insight.Insight {
	patterns, err := s.registry.Patterns(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load pattern registry for insights",
			"user_id", userID, "error", err)
	}

	return s.generator.Generate(ctx, userID, patterns, s.userAlarms(userID))
}

// RecordInsightFeedback attaches the user's verdict to a stored insight
func (s *Service) RecordInsightFeedback(ctx context.Context, userID, insightID string, feedback insight.Feedback) error {
	return s.generator.RecordFeedback(ctx, userID, insightID, feedback)
}

// EvaluateAlarm runs one scheduling pass for the alarm. With optimization
// disabled for the user, the alarm keeps its configured time and plain
// enabled/day-of-week firing semantics.
func (s *Service) EvaluateAlarm(ctx context.Context, alm *alarm.Alarm, date time.Time, live *provider.Position) rules.Decision {
	if !s.OptimizationEnabled(ctx, alm.UserID) {
		return rules.Decision{
			AlarmID:       alm.ID,
			UserID:        alm.UserID,
			Date:          date.Format("2006-01-02"),
			ShouldFire:    alm.Enabled && alm.AppliesOn(date),
			EffectiveTime: alm.Time,
			EvaluatedAt:   time.Now(),
		}
	}

	return s.rules.Evaluate(ctx, alm, s.defs.GeofencesForAlarm(alm.ID), date, live)
}

// Enable turns the optimization subsystem on or off for a user
func (s *Service) Enable(ctx context.Context, userID string, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	if err := s.redis.Set(ctx, redis.OptimizationEnabledKey(userID), value, 0); err != nil {
		return err
	}

	s.logger.Info("Optimization flag updated", "user_id", userID, "enabled", enabled)
	return nil
}

// OptimizationEnabled reports whether optimization is on for the user.
// Defaults to enabled when no flag is stored; a flag-store error also
// defaults to enabled so an infrastructure hiccup cannot change alarm
// behavior.
func (s *Service) OptimizationEnabled(ctx context.Context, userID string) bool {
	value, err := s.redis.Get(ctx, redis.OptimizationEnabledKey(userID))
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			s.logger.Warn("Failed to read optimization flag, assuming enabled",
				"user_id", userID, "error", err)
		}
		return true
	}
	return value != "false"
}

// Alarms returns the configured alarm definitions
func (s *Service) Alarms() []alarm.Alarm {
	return s.defs.Alarms
}

// userAlarms filters the definitions to one user's alarms
func (s *Service) userAlarms(userID string) []alarm.Alarm {
	var out []alarm.Alarm
	for _, a := range s.defs.Alarms {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}
