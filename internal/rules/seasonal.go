package rules

import (
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
)

// applySeasonal adds the alarm's active seasonal adjustment for the date's
// season, if one is configured
func (e *Engine) applySeasonal(alm *alarm.Alarm, current alarm.ClockTime, date time.Time) alarm.ClockTime {
	season := alarm.SeasonOf(date)

	for _, adj := range alm.SeasonalAdjustments {
		if !adj.Active || adj.Season != season {
			continue
		}

		current = current.Add(adj.AdjustmentMinutes)
		e.logger.Debug("Seasonal adjustment applied",
			"alarm_id", alm.ID,
			"season", season,
			"adjustment_minutes", adj.AdjustmentMinutes,
			"time", current.String())
		break
	}

	return current
}
