package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wakewise/wakewise-platform/pkg/postgres"
)

// WakeEvent is one recorded wake-up: when the user actually got up,
// how often they snoozed, and optional context captured at the time
type WakeEvent struct {
	ID               uuid.UUID
	UserID           string
	Date             time.Time
	WakeMinutes      int // minutes since midnight
	SnoozeCount      int
	WeatherCondition string
	Latitude         *float64
	Longitude        *float64
}

// History is the durable wake-event log backing pattern detection
type History struct {
	pg postgres.Client
}

// NewHistory creates a wake-event history over the given Postgres client
func NewHistory(pg postgres.Client) *History {
	return &History{pg: pg}
}

// Record inserts one wake event
func (h *History) Record(ctx context.Context, ev *WakeEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	query := `
		INSERT INTO wake_events (
			id, user_id, occurred_on, wake_minutes, snooze_count,
			weather_condition, latitude, longitude, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := h.pg.Exec(ctx, query,
		ev.ID,
		ev.UserID,
		ev.Date,
		ev.WakeMinutes,
		ev.SnoozeCount,
		nullableString(ev.WeatherCondition),
		ev.Latitude,
		ev.Longitude,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wake event: %w", err)
	}

	return nil
}

// EventsForUser returns a user's wake events since the given time,
// oldest first, up to limit rows
func (h *History) EventsForUser(ctx context.Context, userID string, since time.Time, limit int) ([]WakeEvent, error) {
	query := `
		SELECT id, user_id, occurred_on, wake_minutes, snooze_count,
		       weather_condition, latitude, longitude
		FROM wake_events
		WHERE user_id = $1 AND occurred_on >= $2
		ORDER BY occurred_on ASC
		LIMIT $3
	`

	rows, err := h.pg.Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var events []WakeEvent
	for rows.Next() {
		var ev WakeEvent
		var weather *string

		err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.Date,
			&ev.WakeMinutes,
			&ev.SnoozeCount,
			&weather,
			&ev.Latitude,
			&ev.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		if weather != nil {
			ev.WeatherCondition = *weather
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
