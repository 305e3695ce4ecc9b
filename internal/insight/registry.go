package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// Registry persists a user's retained patterns. Writes replace the whole
// registry in one set so concurrent readers never observe a partial
// update.
type Registry struct {
	redis               redis.Client
	confidenceThreshold float64
	minDataPoints       int
	logger              *slog.Logger
}

// NewRegistry creates a pattern registry
func NewRegistry(client redis.Client, confidenceThreshold float64, minDataPoints int, logger *slog.Logger) *Registry {
	return &Registry{
		redis:               client,
		confidenceThreshold: confidenceThreshold,
		minDataPoints:       minDataPoints,
		logger:              logger,
	}
}

// Patterns returns the user's retained patterns. A missing registry is an
// empty one; a corrupted registry is logged and treated as empty without
// overwriting the stored value.
func (r *Registry) Patterns(ctx context.Context, userID string) ([]DetectedPattern, error) {
	data, err := r.redis.Get(ctx, redis.PatternRegistryKey(userID))
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load pattern registry: %w", err)
	}

	var patterns []DetectedPattern
	if err := json.Unmarshal([]byte(data), &patterns); err != nil {
		r.logger.Warn("Corrupted pattern registry, treating as empty",
			"user_id", userID, "error", err)
		return nil, nil
	}
	return patterns, nil
}

// Replace swaps the user's registry for the given patterns, keeping only
// those that clear the confidence threshold and minimum data points
func (r *Registry) Replace(ctx context.Context, userID string, patterns []DetectedPattern) error {
	retained := make([]DetectedPattern, 0, len(patterns))
	for _, p := range patterns {
		if p.Confidence < r.confidenceThreshold {
			r.logger.Debug("Pattern below retention threshold",
				"user_id", userID, "kind", p.Kind, "confidence", p.Confidence)
			continue
		}
		if p.DataPoints < r.minDataPoints {
			continue
		}
		retained = append(retained, p)
	}

	data, err := json.Marshal(retained)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern registry: %w", err)
	}

	if err := r.redis.Set(ctx, redis.PatternRegistryKey(userID), string(data), 0); err != nil {
		return fmt.Errorf("failed to store pattern registry: %w", err)
	}

	r.logger.Info("Pattern registry updated",
		"user_id", userID, "detected", len(patterns), "retained", len(retained))

	return nil
}
