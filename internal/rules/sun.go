package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
)

// seasonSunOffsets compensate for how far civil routine drifts from the
// sun through the year: winter sunrises are late so the alarm shifts
// later, summer the reverse
var seasonSunOffsets = map[alarm.Season]int{
	alarm.SeasonWinter: 10,
	alarm.SeasonSummer: -10,
	alarm.SeasonSpring: 0,
	alarm.SeasonFall:   0,
}

// sunTime computes the alarm's effective time from the sun schedule:
// the chosen sun event plus the configured offset, plus the seasonal sun
// offset when enabled. Wraps across midnight.
func (e *Engine) sunTime(ctx context.Context, schedule *alarm.SunSchedule, date time.Time) (alarm.ClockTime, error) {
	tctx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()

	times, err := e.sun.Times(tctx, e.latitude, e.longitude, date)
	if err != nil {
		return 0, fmt.Errorf("sun times lookup failed: %w", err)
	}

	var anchor time.Time
	switch schedule.Type {
	case alarm.SunSunrise:
		anchor = times.Sunrise
	case alarm.SunSunset:
		anchor = times.Sunset
	default:
		return 0, fmt.Errorf("unknown sun schedule type: %s", schedule.Type)
	}

	result := alarm.ClockFromTime(anchor).Add(schedule.OffsetMinutes)
	if schedule.SeasonalAdjustment {
		result = result.Add(seasonSunOffsets[alarm.SeasonOf(date)])
	}
	return result, nil
}
