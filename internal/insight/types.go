// Package insight mines accumulated wake history for durable behavior
// patterns and turns them into prioritized, actionable recommendations.
package insight

import (
	"time"
)

// PatternKind identifies one class of detected behavior pattern
type PatternKind string

const (
	PatternConsistency PatternKind = "consistency"
	PatternSnooze      PatternKind = "snooze_behavior"
	PatternSeasonal    PatternKind = "seasonal_drift"
	PatternLocation    PatternKind = "location_influence"
	PatternWeather     PatternKind = "weather_sensitivity"
)

// Trend describes how a detected pattern has moved recently
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
	TrendEmerging  Trend = "emerging"
)

// DetectedPattern is one statistically summarized recurring behavior
type DetectedPattern struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Kind       PatternKind        `json:"kind"`
	Confidence float64            `json:"confidence"`
	Trend      Trend              `json:"trend"`
	DataPoints int                `json:"data_points"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Context    map[string]string  `json:"context,omitempty"`
	DetectedAt time.Time          `json:"detected_at"`
}

// InsightType classifies the tone of a recommendation
type InsightType string

const (
	InsightWarning        InsightType = "warning"
	InsightOptimization   InsightType = "optimization"
	InsightRecommendation InsightType = "recommendation"
)

// Feedback is the user's post-hoc verdict on an insight
type Feedback string

const (
	FeedbackHelpful          Feedback = "helpful"
	FeedbackNotHelpful       Feedback = "not_helpful"
	FeedbackPartiallyHelpful Feedback = "partially_helpful"
)

// Insight is one user-facing recommendation derived from detected patterns
// or alarm configuration. Priority is the derived ranking score.
type Insight struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	Type             InsightType `json:"type"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Priority         float64     `json:"priority"`
	PriorityWeight   float64     `json:"priority_weight"`
	ImpactWeight     float64     `json:"impact_weight"`
	Confidence       float64     `json:"confidence"`
	Actionable       bool        `json:"actionable"`
	SuggestedActions []string    `json:"suggested_actions,omitempty"`
	Timeframe        string      `json:"timeframe,omitempty"`
	ExpiresAt        *time.Time  `json:"expires_at,omitempty"`
	Feedback         Feedback    `json:"feedback,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// score ranks insights for presentation. Confidence counts as much as the
// inherent priority weight so a certain low-stakes insight can outrank a
// speculative high-stakes one.
func (i *Insight) score() float64 {
	return 2*i.PriorityWeight + 1.5*i.ImpactWeight + 2*i.Confidence
}
