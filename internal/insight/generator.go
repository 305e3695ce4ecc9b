package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// Insights below this confidence are never surfaced
const minInsightConfidence = 0.5

// Seasonal recommendations are time-boxed to the transition window
const seasonalInsightTTL = 30 * 24 * time.Hour

// Alarm counts above this suggest the user should consolidate
const maxReasonableAlarms = 5

// Generator converts retained patterns and alarm configuration into a
// ranked, capped set of insights
type Generator struct {
	redis      redis.Client
	topCount   int
	maxHistory int
	logger     *slog.Logger
}

// NewGenerator creates an insight generator
func NewGenerator(client redis.Client, topCount, maxHistory int, logger *slog.Logger) *Generator {
	return &Generator{
		redis:      client,
		topCount:   topCount,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Generate builds insights from the user's retained patterns and alarm
// definitions, appends them to the capped history, and returns the top
// ranked slice
func (g *Generator) Generate(ctx context.Context, userID string, patterns []DetectedPattern, alarms []alarm.Alarm) []Insight {
	now := time.Now()

	var insights []Insight
	for _, p := range patterns {
		insights = append(insights, g.fromPattern(p, now)...)
	}
	insights = append(insights, g.fromAlarmConfig(userID, alarms, now)...)

	kept := insights[:0]
	for _, ins := range insights {
		if ins.Confidence > minInsightConfidence {
			kept = append(kept, ins)
		}
	}
	insights = kept

	for i := range insights {
		insights[i].Priority = insights[i].score()
	}
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority > insights[j].Priority
	})

	if len(insights) > g.topCount {
		insights = insights[:g.topCount]
	}

	if err := g.appendHistory(ctx, userID, insights); err != nil {
		g.logger.Warn("Failed to persist insight history", "user_id", userID, "error", err)
	}

	g.logger.Info("Insights generated",
		"user_id", userID, "patterns", len(patterns), "insights", len(insights))

	return insights
}

// fromPattern maps one detected pattern to zero or more insights
func (g *Generator) fromPattern(p DetectedPattern, now time.Time) []Insight {
	base := Insight{
		ID:         uuid.New().String(),
		UserID:     p.UserID,
		Confidence: p.Confidence,
		Actionable: true,
		CreatedAt:  now,
	}

	switch p.Kind {
	case PatternConsistency:
		if p.Trend == TrendDeclining {
			base.Type = InsightWarning
			base.Title = "Your wake routine is slipping"
			base.Description = "Your wake times have become less consistent recently. Irregular wake times make mornings harder."
			base.PriorityWeight = 0.8
			base.ImpactWeight = 0.7
			base.SuggestedActions = []string{
				"Pick one wake time and keep it for a week",
				"Avoid weekend wake times more than an hour later than weekdays",
			}
			base.Timeframe = "this week"
			return []Insight{base}
		}
		if days, ok := p.Context["anomaly_days"]; ok {
			base.Type = InsightRecommendation
			base.Title = "Some days break your routine"
			base.Description = fmt.Sprintf("Your wake time is much less predictable on: %s.", days)
			base.PriorityWeight = 0.5
			base.ImpactWeight = 0.4
			base.SuggestedActions = []string{"Review the alarms scheduled for those days"}
			return []Insight{base}
		}
		return nil

	case PatternSnooze:
		avg := p.Metrics["average_snooze_count"]
		if avg < 1 {
			return nil
		}
		base.Type = InsightOptimization
		base.Title = "Heavy snoozing detected"
		base.Description = fmt.Sprintf("You snooze %.1f times per morning on average. Snoozed sleep is low quality.", avg)
		base.PriorityWeight = 0.9
		base.ImpactWeight = 0.8
		base.SuggestedActions = []string{
			"Move your alarm 15 minutes later and get up on the first ring",
			"Enable sleep cycle optimization",
		}
		if p.Context["divergence"] == "weekday" {
			base.Description += " You snooze noticeably more on weekdays than weekends."
			base.SuggestedActions = append(base.SuggestedActions, "Consider an earlier weekday bedtime")
		}
		return []Insight{base}

	case PatternSeasonal:
		expires := now.Add(seasonalInsightTTL)
		base.Type = InsightRecommendation
		base.Title = "Seasonal shift in your wake times"
		base.Description = "Your natural wake time drifts with the seasons."
		if direction, ok := p.Context["direction"]; ok {
			base.Description = fmt.Sprintf("Your natural wake time drifts %s.", direction)
		}
		base.PriorityWeight = 0.5
		base.ImpactWeight = 0.5
		base.SuggestedActions = []string{"Set a seasonal adjustment to follow your natural rhythm"}
		base.Timeframe = "next 30 days"
		base.ExpiresAt = &expires
		return []Insight{base}

	case PatternLocation:
		base.Type = InsightRecommendation
		base.Title = "Weekdays and weekends run on different clocks"
		base.Description = fmt.Sprintf("Your weekend wake time differs from weekdays by %.0f minutes.",
			p.Metrics["difference_minutes"])
		base.PriorityWeight = 0.4
		base.ImpactWeight = 0.5
		base.SuggestedActions = []string{"Use separate weekday and weekend alarms"}
		return []Insight{base}

	case PatternWeather:
		base.Type = InsightOptimization
		base.Title = "Weather affects your mornings"
		base.Description = fmt.Sprintf("On rainy mornings you wake %.0f minutes differently than on sunny ones.",
			p.Metrics["difference_minutes"])
		base.PriorityWeight = 0.5
		base.ImpactWeight = 0.4
		base.SuggestedActions = []string{"Enable the weather optimization on your main alarm"}
		return []Insight{base}
	}

	return nil
}

// fromAlarmConfig derives insights straight from how alarms are set up
func (g *Generator) fromAlarmConfig(userID string, alarms []alarm.Alarm, now time.Time) []Insight {
	enabled := 0
	for _, a := range alarms {
		if a.Enabled {
			enabled++
		}
	}
	if enabled <= maxReasonableAlarms {
		return nil
	}

	return []Insight{{
		ID:             uuid.New().String(),
		UserID:         userID,
		Type:           InsightRecommendation,
		Title:          "Too many active alarms",
		Description:    fmt.Sprintf("You have %d alarms enabled at once. Overlapping alarms train you to ignore them.", enabled),
		PriorityWeight: 0.6,
		ImpactWeight:   0.6,
		Confidence:     0.9,
		Actionable:     true,
		SuggestedActions: []string{
			"Consolidate overlapping alarms into one with smart optimizations",
		},
		CreatedAt: now,
	}}
}

// appendHistory pushes the insights onto the user's history list, newest
// first, trimmed to the configured cap
func (g *Generator) appendHistory(ctx context.Context, userID string, insights []Insight) error {
	if len(insights) == 0 {
		return nil
	}

	key := redis.InsightHistoryKey(userID)
	values := make([]interface{}, 0, len(insights))
	for _, ins := range insights {
		data, err := json.Marshal(ins)
		if err != nil {
			return fmt.Errorf("failed to marshal insight: %w", err)
		}
		values = append(values, string(data))
	}

	if err := g.redis.LPush(ctx, key, values...); err != nil {
		return fmt.Errorf("failed to push insight history: %w", err)
	}
	if err := g.redis.LTrim(ctx, key, 0, int64(g.maxHistory-1)); err != nil {
		return fmt.Errorf("failed to trim insight history: %w", err)
	}
	return nil
}

// History returns the user's stored insights, newest first. Entries that
// fail to decode are skipped.
func (g *Generator) History(ctx context.Context, userID string, limit int) ([]Insight, error) {
	entries, err := g.redis.LRange(ctx, redis.InsightHistoryKey(userID), 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to load insight history: %w", err)
	}

	insights := make([]Insight, 0, len(entries))
	for _, entry := range entries {
		var ins Insight
		if err := json.Unmarshal([]byte(entry), &ins); err != nil {
			g.logger.Warn("Skipping corrupted insight entry", "user_id", userID, "error", err)
			continue
		}
		insights = append(insights, ins)
	}
	return insights, nil
}

// RecordFeedback attaches the user's verdict to a stored insight. The
// whole history list is rewritten since entries are opaque strings.
func (g *Generator) RecordFeedback(ctx context.Context, userID, insightID string, feedback Feedback) error {
	switch feedback {
	case FeedbackHelpful, FeedbackNotHelpful, FeedbackPartiallyHelpful:
	default:
		return fmt.Errorf("invalid feedback value: %q", feedback)
	}

	key := redis.InsightHistoryKey(userID)
	entries, err := g.redis.LRange(ctx, key, 0, -1)
	if err != nil {
		return fmt.Errorf("failed to load insight history: %w", err)
	}

	found := false
	updated := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		var ins Insight
		if err := json.Unmarshal([]byte(entry), &ins); err != nil {
			updated = append(updated, entry)
			continue
		}
		if ins.ID == insightID {
			ins.Feedback = feedback
			found = true
			data, err := json.Marshal(ins)
			if err != nil {
				return fmt.Errorf("failed to marshal insight: %w", err)
			}
			entry = string(data)
		}
		updated = append(updated, entry)
	}
	if !found {
		return fmt.Errorf("insight %s not found for user %s", insightID, userID)
	}

	if err := g.redis.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to rewrite insight history: %w", err)
	}
	// LPush prepends, so push in reverse to preserve order
	for i := len(updated) - 1; i >= 0; i-- {
		if err := g.redis.LPush(ctx, key, updated[i]); err != nil {
			return fmt.Errorf("failed to rewrite insight history: %w", err)
		}
	}

	g.logger.Debug("Insight feedback recorded",
		"user_id", userID, "insight_id", insightID, "feedback", feedback)

	return nil
}
