package rules

import (
	"math"
	"strings"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/provider"
)

const (
	sleepCycleMinutes   = 90
	sleepCycleTolerance = 10 // off by this much or less, leave it alone
	earlyAlarmMinutes   = 6 * 60
)

// applyOptimizations runs each enabled smart optimization in order, clamps
// every contribution to the optimization's own cap, and finally clamps the
// cumulative shift against the base time to the global bound
func (e *Engine) applyOptimizations(alm *alarm.Alarm, current alarm.ClockTime, date time.Time, weather *provider.Weather) alarm.ClockTime {
	base := current

	for _, opt := range alm.Optimizations {
		if !opt.Enabled {
			continue
		}

		adjustment := e.optimizationAdjustment(opt.Type, current, date, weather)

		bound := opt.MaxAdjustmentMinutes
		if bound <= 0 {
			bound = e.defaultMaxOptimization
		}
		adjustment = clamp(adjustment, bound)

		if adjustment != 0 {
			current = current.Add(adjustment)
			e.logger.Debug("Optimization applied",
				"alarm_id", alm.ID,
				"type", opt.Type,
				"adjustment_minutes", adjustment,
				"time", current.String())
		}
	}

	// Global bound on the total shift
	total := clamp(current.Minutes()-base.Minutes(), e.globalMaxAdjustment)
	return base.Add(total)
}

// optimizationAdjustment computes the raw minute shift for one optimization
// type before any clamping
func (e *Engine) optimizationAdjustment(t alarm.OptimizationType, current alarm.ClockTime, date time.Time, weather *provider.Weather) int {
	switch t {
	case alarm.OptimizationSleepCycle:
		// Snap to the nearest 90-minute cycle boundary, but only when the
		// alarm is meaningfully off one
		minutes := current.Minutes()
		nearest := int(math.Round(float64(minutes)/sleepCycleMinutes)) * sleepCycleMinutes
		diff := nearest - minutes
		if diff > -sleepCycleTolerance && diff < sleepCycleTolerance {
			return 0
		}
		return diff

	case alarm.OptimizationSeasonal:
		// Rough sunrise heuristic: dark winters push later, bright summers pull earlier
		switch alarm.SeasonOf(date) {
		case alarm.SeasonWinter:
			return 15
		case alarm.SeasonSummer:
			return -15
		default:
			return 0
		}

	case alarm.OptimizationRushHour:
		day := date.Weekday()
		if day >= time.Monday && day <= time.Friday {
			return -10
		}
		return 0

	case alarm.OptimizationWeather:
		if weather == nil {
			return 0
		}
		condition := strings.ToLower(weather.Condition)
		switch {
		case strings.Contains(condition, "rain"), strings.Contains(condition, "snow"):
			return -10
		case strings.Contains(condition, "cloud"), strings.Contains(condition, "overcast"):
			return -5
		default:
			return 0
		}

	case alarm.OptimizationEarlyBird:
		// Very early alarms get a small sanity buffer
		if current.Minutes() < earlyAlarmMinutes {
			return 5
		}
		return 0
	}

	return 0
}

func clamp(minutes, bound int) int {
	if minutes > bound {
		return bound
	}
	if minutes < -bound {
		return -bound
	}
	return minutes
}
