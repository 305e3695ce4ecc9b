package insight

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wakewise/wakewise-platform/internal/behavior"
)

// Minimum samples per group before a per-group statistic is trusted
const minGroupSamples = 3

// Minimum records carrying a snooze before snooze behavior is analyzed
const minSnoozeRecords = 5

// Seasonal drift needs a real spread of history
const (
	minSeasonalDays   = 30
	minSeasonalMonths = 2
)

// Detection thresholds, in minutes unless noted
const (
	consistencyFloor     = 0.7  // cross-day average score
	anomalyScoreGap      = 0.3  // a day this far below average is an anomaly
	snoozeDivergence     = 1.5  // weekday avg must exceed weekend avg by this ratio
	seasonalDeviationMin = 20.0 // max monthly deviation from the overall mean
	locationDeviationMin = 30.0 // weekday vs weekend wake difference
	weatherDeviationMin  = 15.0 // rainy vs sunny wake difference
)

// Detector mines a user's wake history for durable patterns
type Detector struct {
	minDataPoints int
	logger        *slog.Logger
}

// NewDetector creates a pattern detector
func NewDetector(minDataPoints int, logger *slog.Logger) *Detector {
	return &Detector{minDataPoints: minDataPoints, logger: logger}
}

// Analyze runs every detection over the user's wake events, oldest first.
// Returns all patterns found; registry retention filtering happens later.
func (d *Detector) Analyze(userID string, events []behavior.WakeEvent) []DetectedPattern {
	if len(events) < d.minDataPoints {
		d.logger.Debug("Not enough history for pattern analysis",
			"user_id", userID, "events", len(events), "required", d.minDataPoints)
		return nil
	}

	var patterns []DetectedPattern
	for _, detect := range []func(string, []behavior.WakeEvent) *DetectedPattern{
		d.detectConsistency,
		d.detectSnooze,
		d.detectSeasonal,
		d.detectLocation,
		d.detectWeather,
	} {
		if p := detect(userID, events); p != nil {
			patterns = append(patterns, *p)
		}
	}

	d.logger.Debug("Pattern analysis complete",
		"user_id", userID, "events", len(events), "patterns", len(patterns))

	return patterns
}

// detectConsistency scores how repeatable each weekday's wake time is.
// A day's score is 1 at zero variance and reaches 0 when the standard
// deviation hits an hour.
func (d *Detector) detectConsistency(userID string, events []behavior.WakeEvent) *DetectedPattern {
	byDay := make(map[time.Weekday][]float64)
	for _, ev := range events {
		day := ev.Date.Weekday()
		byDay[day] = append(byDay[day], float64(ev.WakeMinutes))
	}

	scores := make(map[time.Weekday]float64)
	for day, values := range byDay {
		if len(values) < minGroupSamples {
			continue
		}
		scores[day] = math.Max(0, 1-math.Sqrt(variance(values))/60)
	}
	if len(scores) == 0 {
		return nil
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	avg := total / float64(len(scores))
	if avg <= consistencyFloor {
		return nil
	}

	metrics := map[string]float64{"average_score": avg}
	var anomalies []string
	days := make([]time.Weekday, 0, len(scores))
	for day := range scores {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	for _, day := range days {
		name := strings.ToLower(day.String())
		metrics[name+"_score"] = scores[day]
		if avg-scores[day] > anomalyScoreGap {
			anomalies = append(anomalies, name)
		}
	}

	context := map[string]string{}
	if len(anomalies) > 0 {
		context["anomaly_days"] = strings.Join(anomalies, ",")
	}

	// Trend on deviation from the overall routine: shrinking deviation
	// means the routine is tightening
	overall := overallMean(events)
	deviations := make([]float64, 0, len(events))
	for _, ev := range events {
		deviations = append(deviations, math.Abs(float64(ev.WakeMinutes)-overall))
	}

	return &DetectedPattern{
		ID:         patternID(PatternConsistency, userID),
		UserID:     userID,
		Kind:       PatternConsistency,
		Confidence: math.Min(behavior.ConfidenceCap, avg),
		Trend:      computeTrend(deviations, true, 5),
		DataPoints: len(events),
		Metrics:    metrics,
		Context:    context,
		DetectedAt: time.Now(),
	}
}

// detectSnooze looks for habitual snoozing and a weekday/weekend split
func (d *Detector) detectSnooze(userID string, events []behavior.WakeEvent) *DetectedPattern {
	var snoozed int
	var weekdayCounts, weekendCounts []float64
	series := make([]float64, 0, len(events))

	for _, ev := range events {
		series = append(series, float64(ev.SnoozeCount))
		if ev.SnoozeCount > 0 {
			snoozed++
		}
		if isWeekend(ev.Date) {
			weekendCounts = append(weekendCounts, float64(ev.SnoozeCount))
		} else {
			weekdayCounts = append(weekdayCounts, float64(ev.SnoozeCount))
		}
	}
	if snoozed < minSnoozeRecords {
		return nil
	}

	avgSnooze := mean(series)
	frequency := float64(snoozed) / float64(len(events))

	metrics := map[string]float64{
		"average_snooze_count": avgSnooze,
		"snooze_frequency":     frequency,
	}

	context := map[string]string{}
	weekdayAvg := mean(weekdayCounts)
	weekendAvg := mean(weekendCounts)
	if weekendAvg > 0 && weekdayAvg >= snoozeDivergence*weekendAvg {
		context["divergence"] = "weekday"
		metrics["weekday_average"] = weekdayAvg
		metrics["weekend_average"] = weekendAvg
	}

	return &DetectedPattern{
		ID:         patternID(PatternSnooze, userID),
		UserID:     userID,
		Kind:       PatternSnooze,
		Confidence: math.Min(behavior.ConfidenceCap, float64(snoozed)/float64(2*minSnoozeRecords)),
		Trend:      computeTrend(series, true, 0.5),
		DataPoints: len(events),
		Metrics:    metrics,
		Context:    context,
		DetectedAt: time.Now(),
	}
}

// detectSeasonal looks for wake-time drift across calendar months
func (d *Detector) detectSeasonal(userID string, events []behavior.WakeEvent) *DetectedPattern {
	if len(events) < minSeasonalDays {
		return nil
	}

	byMonth := make(map[string][]float64)
	var winter, summer []float64
	for _, ev := range events {
		key := ev.Date.Format("2006-01")
		byMonth[key] = append(byMonth[key], float64(ev.WakeMinutes))
		switch ev.Date.Month() {
		case time.December, time.January, time.February:
			winter = append(winter, float64(ev.WakeMinutes))
		case time.June, time.July, time.August:
			summer = append(summer, float64(ev.WakeMinutes))
		}
	}
	if len(byMonth) < minSeasonalMonths {
		return nil
	}

	overall := overallMean(events)
	var maxDeviation float64
	metrics := map[string]float64{"overall_mean_minutes": overall}
	for key, values := range byMonth {
		m := mean(values)
		metrics["month_"+key] = m
		if dev := math.Abs(m - overall); dev > maxDeviation {
			maxDeviation = dev
		}
	}
	if maxDeviation <= seasonalDeviationMin {
		return nil
	}
	metrics["max_deviation_minutes"] = maxDeviation

	context := map[string]string{}
	if len(winter) > 0 && len(summer) > 0 {
		diff := mean(winter) - mean(summer)
		metrics["winter_minus_summer_minutes"] = diff
		if diff > 0 {
			context["direction"] = "later in winter"
		} else {
			context["direction"] = "earlier in winter"
		}
	}

	deviations := make([]float64, 0, len(events))
	for _, ev := range events {
		deviations = append(deviations, math.Abs(float64(ev.WakeMinutes)-overall))
	}

	return &DetectedPattern{
		ID:         patternID(PatternSeasonal, userID),
		UserID:     userID,
		Kind:       PatternSeasonal,
		Confidence: math.Min(behavior.ConfidenceCap, float64(len(events))/float64(2*minSeasonalDays)),
		Trend:      computeTrend(deviations, true, 10),
		DataPoints: len(events),
		Metrics:    metrics,
		Context:    context,
		DetectedAt: time.Now(),
	}
}

// detectLocation partitions wake times by weekend vs weekday as a proxy
// for home-day vs work-day until per-record location context is richer
func (d *Detector) detectLocation(userID string, events []behavior.WakeEvent) *DetectedPattern {
	var weekday, weekend []float64
	for _, ev := range events {
		if isWeekend(ev.Date) {
			weekend = append(weekend, float64(ev.WakeMinutes))
		} else {
			weekday = append(weekday, float64(ev.WakeMinutes))
		}
	}
	if len(weekday) < minGroupSamples || len(weekend) < minGroupSamples {
		return nil
	}

	diff := mean(weekend) - mean(weekday)
	if math.Abs(diff) <= locationDeviationMin {
		return nil
	}

	context := map[string]string{"proxy": "weekend_vs_weekday"}

	return &DetectedPattern{
		ID:     patternID(PatternLocation, userID),
		UserID: userID,
		Kind:   PatternLocation,
		Confidence: math.Min(behavior.ConfidenceCap,
			0.5+math.Abs(diff)/120),
		Trend:      TrendStable,
		DataPoints: len(events),
		Metrics: map[string]float64{
			"weekday_mean_minutes": mean(weekday),
			"weekend_mean_minutes": mean(weekend),
			"difference_minutes":   diff,
			"weekday_samples":      float64(len(weekday)),
			"weekend_samples":      float64(len(weekend)),
		},
		Context:    context,
		DetectedAt: time.Now(),
	}
}

// detectWeather partitions wake times by the recorded weather tag
func (d *Detector) detectWeather(userID string, events []behavior.WakeEvent) *DetectedPattern {
	var rainy, sunny []float64
	for _, ev := range events {
		condition := strings.ToLower(ev.WeatherCondition)
		switch {
		case strings.Contains(condition, "rain"), strings.Contains(condition, "snow"):
			rainy = append(rainy, float64(ev.WakeMinutes))
		case strings.Contains(condition, "sun"), strings.Contains(condition, "clear"):
			sunny = append(sunny, float64(ev.WakeMinutes))
		}
	}
	if len(rainy) < minGroupSamples || len(sunny) < minGroupSamples {
		return nil
	}

	diff := mean(rainy) - mean(sunny)
	if math.Abs(diff) <= weatherDeviationMin {
		return nil
	}

	return &DetectedPattern{
		ID:     patternID(PatternWeather, userID),
		UserID: userID,
		Kind:   PatternWeather,
		Confidence: math.Min(behavior.ConfidenceCap,
			0.5+math.Abs(diff)/120),
		Trend:      TrendStable,
		DataPoints: len(rainy) + len(sunny),
		Metrics: map[string]float64{
			"rainy_mean_minutes": mean(rainy),
			"sunny_mean_minutes": mean(sunny),
			"difference_minutes": diff,
		},
		DetectedAt: time.Now(),
	}
}

func patternID(kind PatternKind, userID string) string {
	return fmt.Sprintf("%s:%s", kind, userID)
}

func isWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}

func overallMean(events []behavior.WakeEvent) float64 {
	values := make([]float64, 0, len(events))
	for _, ev := range events {
		values = append(values, float64(ev.WakeMinutes))
	}
	return mean(values)
}
