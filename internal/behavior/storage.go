package behavior

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// ensureLoadedLocked lazily hydrates a user's patterns from Redis.
// A corrupted stored value falls back to empty state; the stored value is
// left in place and only replaced by the next successful save.
func (s *Store) ensureLoadedLocked(ctx context.Context, userID string) {
	if s.loaded[userID] {
		return
	}
	s.loaded[userID] = true

	raw, err := s.redis.Get(ctx, redis.BehaviorPatternsKey(userID))
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			s.logger.Warn("Failed to load behavior patterns", "user_id", userID, "error", err)
		}
		return
	}

	var stored map[PatternType]*Pattern
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("Stored behavior patterns corrupted, starting from empty state",
			"user_id", userID,
			"error", err)
		return
	}

	for _, p := range stored {
		if p.Numeric == nil {
			p.Numeric = make(map[string]float64)
		}
		if p.Labels == nil {
			p.Labels = make(map[string]string)
		}
	}

	s.patterns[userID] = stored
}

// save persists a whole-user pattern snapshot as one JSON value
func (s *Store) save(ctx context.Context, userID string, snapshot map[PatternType]*Pattern) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal patterns: %w", err)
	}

	if err := s.redis.Set(ctx, redis.BehaviorPatternsKey(userID), data, 0); err != nil {
		return fmt.Errorf("failed to save patterns: %w", err)
	}

	return nil
}
