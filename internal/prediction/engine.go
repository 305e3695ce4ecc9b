package prediction

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
)

// Result is one computed prediction for a (user, alarm, date)
type Result struct {
	UserID            string          `json:"user_id"`
	AlarmID           string          `json:"alarm_id"`
	Date              string          `json:"date"` // YYYY-MM-DD
	OptimalTime       alarm.ClockTime `json:"optimal_time"`
	AdjustmentMinutes int             `json:"adjustment_minutes"`
	Confidence        float64         `json:"confidence"`
	Reasoning         []string        `json:"reasoning"`
	Factors           []Factor        `json:"factors"`
	ComputedAt        time.Time       `json:"computed_at"`
}

// Engine produces bounded wake-time predictions with per-key caching
type Engine struct {
	analyzer             *Analyzer
	cache                *Cache
	maxAdjustmentMinutes int
	reasoningFloor       float64
	logger               *slog.Logger
}

// NewEngine creates a prediction engine
func NewEngine(analyzer *Analyzer, cache *Cache, maxAdjustmentMinutes int, reasoningFloor float64, logger *slog.Logger) *Engine {
	return &Engine{
		analyzer:             analyzer,
		cache:                cache,
		maxAdjustmentMinutes: maxAdjustmentMinutes,
		reasoningFloor:       reasoningFloor,
		logger:               logger,
	}
}

// Cache exposes the engine's cache for invalidation wiring
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Predict returns the optimal wake time for the alarm on the given date.
// Never fails: any internal error yields the unmodified base time with
// confidence 0 and a diagnostic reasoning entry.
func (e *Engine) Predict(ctx context.Context, userID string, alm *alarm.Alarm, date time.Time) (result *Result) {
	dateKey := date.Format("2006-01-02")

	if cached := e.cache.Get(userID, alm.ID, dateKey); cached != nil {
		e.logger.Debug("Prediction cache hit", "user_id", userID, "alarm_id", alm.ID, "date", dateKey)
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Prediction pipeline failed, returning base time",
				"user_id", userID,
				"alarm_id", alm.ID,
				"panic", r)
			result = &Result{
				UserID:      userID,
				AlarmID:     alm.ID,
				Date:        dateKey,
				OptimalTime: alm.Time,
				Confidence:  0,
				Reasoning:   []string{"Prediction unavailable, keeping configured alarm time"},
				ComputedAt:  time.Now(),
			}
		}
	}()

	factors := e.analyzer.Analyze(ctx, userID, alm, date)

	adjustmentHours := aggregateAdjustmentHours(factors)
	adjustmentMinutes := clampAdjustmentMinutes(int(math.Round(adjustmentHours*60)), e.maxAdjustmentMinutes)

	result = &Result{
		UserID:            userID,
		AlarmID:           alm.ID,
		Date:              dateKey,
		OptimalTime:       alm.Time.Add(adjustmentMinutes),
		AdjustmentMinutes: adjustmentMinutes,
		Confidence:        combinedConfidence(factors),
		Reasoning:         e.reasoning(factors),
		Factors:           factors,
		ComputedAt:        time.Now(),
	}

	e.cache.Put(result)

	e.logger.Debug("Prediction computed",
		"user_id", userID,
		"alarm_id", alm.ID,
		"date", dateKey,
		"adjustment_minutes", adjustmentMinutes,
		"confidence", result.Confidence,
		"factors", len(factors))

	return result
}

// reasoning collects descriptions of factors above the reasoning floor,
// highest confidence first
func (e *Engine) reasoning(factors []Factor) []string {
	kept := make([]Factor, 0, len(factors))
	for _, f := range factors {
		if f.Confidence > e.reasoningFloor && f.Description != "" {
			kept = append(kept, f)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})

	reasons := make([]string, 0, len(kept))
	for _, f := range kept {
		reasons = append(reasons, f.Description)
	}
	return reasons
}
