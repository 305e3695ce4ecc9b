package rules

import (
	"context"
	"errors"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/geo"
	"github.com/wakewise/wakewise-platform/internal/provider"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

const (
	stateInside  = "inside"
	stateOutside = "outside"
)

// geofenceEffect is what geofence processing did to the running decision
type geofenceEffect struct {
	forceFire     *bool
	adjustMinutes int
	notifications []string
}

// applyGeofences evaluates every active geofence linked to the alarm
// against the live position. Enter/exit triggers fire once per transition
// via state persisted per geofence; dwell triggers fire once per
// accumulated stay and reset afterwards.
func (e *Engine) applyGeofences(ctx context.Context, alm *alarm.Alarm, geofences []alarm.Geofence, live *provider.Position) geofenceEffect {
	var effect geofenceEffect
	if live == nil {
		return effect
	}

	for i := range geofences {
		fence := &geofences[i]
		if !fence.Active || !fence.LinksAlarm(alm.ID) {
			continue
		}

		inside := geo.HaversineMeters(live.Latitude, live.Longitude, fence.Latitude, fence.Longitude) <= fence.RadiusMeters

		entered, exited, err := e.recordTransition(ctx, fence.ID, inside)
		if err != nil {
			// State store down: skip this geofence rather than guess transitions
			e.logger.Warn("Geofence state unavailable, skipping",
				"geofence_id", fence.ID, "policy", responseTo(failStateUnavailable), "error", err)
			continue
		}

		for _, trigger := range fence.Triggers {
			fired := false
			switch trigger.Type {
			case alarm.TriggerEnter:
				fired = entered
			case alarm.TriggerExit:
				fired = exited
			case alarm.TriggerDwell:
				fired = e.dwellElapsed(ctx, fence.ID, inside, trigger.DwellMinutes)
			}
			if !fired {
				continue
			}

			e.logger.Info("Geofence trigger fired",
				"geofence_id", fence.ID,
				"alarm_id", alm.ID,
				"trigger", trigger.Type,
				"action", trigger.Action)

			switch trigger.Action {
			case alarm.ActionEnableAlarm:
				v := true
				effect.forceFire = &v
			case alarm.ActionDisableAlarm:
				v := false
				effect.forceFire = &v
			case alarm.ActionAdjustTime:
				effect.adjustMinutes += trigger.AdjustMinutes
			case alarm.ActionNotify:
				effect.notifications = append(effect.notifications, trigger.Message)
			}
		}
	}

	return effect
}

// recordTransition persists the geofence's inside/outside state and reports
// whether this observation is an enter or exit transition. The first
// observation establishes state without firing anything.
func (e *Engine) recordTransition(ctx context.Context, geofenceID string, inside bool) (entered, exited bool, err error) {
	key := redis.GeofenceStateKey(geofenceID)

	last, err := e.redis.Get(ctx, key)
	known := true
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			return false, false, err
		}
		known = false
	}

	state := stateOutside
	if inside {
		state = stateInside
	}
	if err := e.redis.Set(ctx, key, state, 0); err != nil {
		return false, false, err
	}

	if !known {
		return false, false, nil
	}
	entered = last == stateOutside && inside
	exited = last == stateInside && !inside
	return entered, exited, nil
}

// dwellElapsed tracks continuous presence inside the geofence via a
// persisted dwell-start timestamp. Returns true once the stay exceeds the
// threshold, then resets the timestamp so the trigger cannot refire on the
// next check.
func (e *Engine) dwellElapsed(ctx context.Context, geofenceID string, inside bool, dwellMinutes int) bool {
	key := redis.DwellStartKey(geofenceID)

	if !inside {
		if err := e.redis.Del(ctx, key); err != nil {
			e.logger.Warn("Failed to clear dwell timestamp", "geofence_id", geofenceID, "error", err)
		}
		return false
	}

	stored, err := e.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			if err := e.redis.Set(ctx, key, time.Now().Format(time.RFC3339), 0); err != nil {
				e.logger.Warn("Failed to store dwell timestamp", "geofence_id", geofenceID, "error", err)
			}
			return false
		}
		e.logger.Warn("Dwell state unavailable", "geofence_id", geofenceID, "error", err)
		return false
	}

	start, err := time.Parse(time.RFC3339, stored)
	if err != nil {
		// Corrupted timestamp: restart the dwell clock
		e.logger.Warn("Corrupted dwell timestamp, restarting",
			"geofence_id", geofenceID, "value", stored)
		if err := e.redis.Set(ctx, key, time.Now().Format(time.RFC3339), 0); err != nil {
			e.logger.Warn("Failed to store dwell timestamp", "geofence_id", geofenceID, "error", err)
		}
		return false
	}

	if time.Since(start) < time.Duration(dwellMinutes)*time.Minute {
		return false
	}

	// Fired: reset so the trigger arms again only after a fresh stay
	if err := e.redis.Del(ctx, key); err != nil {
		e.logger.Warn("Failed to reset dwell timestamp", "geofence_id", geofenceID, "error", err)
	}
	return true
}
