// Package behavior learns per-user behavior patterns from a stream of
// observations. Each (user, pattern type) pair keeps an exponentially
// weighted summary whose confidence grows with the number of observations.
package behavior

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// PatternType classifies a behavior observation stream
type PatternType string

const (
	PatternWakeTime       PatternType = "wake_time"
	PatternSnoozeBehavior PatternType = "snooze_behavior"
	PatternSleepQuality   PatternType = "sleep_quality"
	PatternLocation       PatternType = "location"
)

// ConfidenceCap is the ceiling for every learned confidence value
const ConfidenceCap = 0.95

// Pattern is the learned summary for one (user, pattern type) pair
type Pattern struct {
	UserID      string             `json:"user_id"`
	Type        PatternType        `json:"type"`
	Numeric     map[string]float64 `json:"numeric"`
	Labels      map[string]string  `json:"labels,omitempty"`
	Confidence  float64            `json:"confidence"`
	Occurrences int                `json:"occurrences"`
	LastUpdated time.Time          `json:"last_updated"`
}

// Store holds learned behavior patterns partitioned per user.
// Writes update an in-memory view and persist the whole user snapshot;
// persistence failures are logged and swallowed (last writer wins on the
// next successful save).
type Store struct {
	mu            sync.RWMutex
	redis         redis.Client
	logger        *slog.Logger
	learningRate  float64
	minDataPoints int

	patterns map[string]map[PatternType]*Pattern
	loaded   map[string]bool

	onRecord []func(userID string)
}

// NewStore creates a behavior pattern store
func NewStore(redisClient redis.Client, learningRate float64, minDataPoints int, logger *slog.Logger) *Store {
	return &Store{
		redis:         redisClient,
		logger:        logger,
		learningRate:  learningRate,
		minDataPoints: minDataPoints,
		patterns:      make(map[string]map[PatternType]*Pattern),
		loaded:        make(map[string]bool),
	}
}

// OnRecord registers a hook invoked after every recorded behavior.
// Used to invalidate cached predictions for the user.
func (s *Store) OnRecord(fn func(userID string)) {
	s.mu.Lock()
	s.onRecord = append(s.onRecord, fn)
	s.mu.Unlock()
}

// RecordBehavior folds an observation into the user's pattern of the given
// type. Numeric fields are updated with an exponential moving average; the
// first observation is taken as-is. Non-numeric fields overwrite.
func (s *Store) RecordBehavior(ctx context.Context, userID string, patternType PatternType, data map[string]interface{}) {
	s.mu.Lock()

	s.ensureLoadedLocked(ctx, userID)

	userPatterns, ok := s.patterns[userID]
	if !ok {
		userPatterns = make(map[PatternType]*Pattern)
		s.patterns[userID] = userPatterns
	}

	p, ok := userPatterns[patternType]
	if !ok {
		p = &Pattern{
			UserID:  userID,
			Type:    patternType,
			Numeric: make(map[string]float64),
			Labels:  make(map[string]string),
		}
		userPatterns[patternType] = p
	}

	for field, value := range data {
		if num, isNumeric := asFloat(value); isNumeric {
			old, seen := p.Numeric[field]
			if p.Confidence == 0 || !seen {
				p.Numeric[field] = num
			} else {
				p.Numeric[field] = (1-s.learningRate)*old + s.learningRate*num
			}
			continue
		}
		if str, isString := value.(string); isString {
			p.Labels[field] = str
		}
	}

	p.Occurrences++
	p.Confidence = patternConfidence(p.Occurrences, s.minDataPoints)
	p.LastUpdated = time.Now()

	snapshot := snapshotUserLocked(userPatterns)
	hooks := make([]func(string), len(s.onRecord))
	copy(hooks, s.onRecord)
	s.mu.Unlock()

	// Persist outside the lock; an unsaved update is acceptable
	if err := s.save(ctx, userID, snapshot); err != nil {
		s.logger.Warn("Failed to persist behavior patterns",
			"user_id", userID,
			"pattern_type", patternType,
			"error", err)
	}

	for _, hook := range hooks {
		hook(userID)
	}

	s.logger.Debug("Behavior recorded",
		"user_id", userID,
		"pattern_type", patternType,
		"occurrences", p.Occurrences,
		"confidence", p.Confidence)
}

// Patterns returns all learned patterns for a user
func (s *Store) Patterns(ctx context.Context, userID string) []*Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx, userID)

	var out []*Pattern
	for _, p := range s.patterns[userID] {
		clone := *p
		out = append(out, &clone)
	}
	return out
}

// Pattern returns one learned pattern for a user, or nil if absent
func (s *Store) Pattern(ctx context.Context, userID string, patternType PatternType) *Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx, userID)

	p, ok := s.patterns[userID][patternType]
	if !ok {
		return nil
	}
	clone := *p
	return &clone
}

// patternConfidence maps an occurrence count to a confidence value:
// occurrences / (2 * minDataPoints), capped at ConfidenceCap.
// Monotonically non-decreasing until the cap.
func patternConfidence(occurrences, minDataPoints int) float64 {
	c := float64(occurrences) / float64(2*minDataPoints)
	if c > ConfidenceCap {
		return ConfidenceCap
	}
	return c
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
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

func snapshotUserLocked(userPatterns map[PatternType]*Pattern) map[PatternType]*Pattern {
	snapshot := make(map[PatternType]*Pattern, len(userPatterns))
	for t, p := range userPatterns {
		clone := *p
		clone.Numeric = make(map[string]float64, len(p.Numeric))
		for k, v := range p.Numeric {
			clone.Numeric[k] = v
		}
		clone.Labels = make(map[string]string, len(p.Labels))
		for k, v := range p.Labels {
			clone.Labels[k] = v
		}
		snapshot[t] = &clone
	}
	return snapshot
}
