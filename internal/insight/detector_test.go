package insight

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/wakewise/wakewise-platform/internal/behavior"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventsAt builds one event per day starting from start, taking wake
// minutes and snooze counts from the given slices (snoozes may be nil)
func eventsAt(start time.Time, wakeMinutes []int, snoozes []int) []behavior.WakeEvent {
	events := make([]behavior.WakeEvent, 0, len(wakeMinutes))
	for i, m := range wakeMinutes {
		ev := behavior.WakeEvent{
			UserID:      "alice",
			Date:        start.AddDate(0, 0, i),
			WakeMinutes: m,
		}
		if snoozes != nil {
			ev.SnoozeCount = snoozes[i]
		}
		events = append(events, ev)
	}
	return events
}

func TestAnalyze_RequiresMinimumHistory(t *testing.T) {
	detector := NewDetector(5, testLogger())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	patterns := detector.Analyze("alice", eventsAt(monday, []int{420, 421, 419}, nil))

	if patterns != nil {
		t.Errorf("Expected no patterns below minimum history, got %d", len(patterns))
	}
}

func TestDetectConsistency_TightRoutineSurfaces(t *testing.T) {
	detector := NewDetector(5, testLogger())

	// Three weeks of near-identical wake times: every weekday group has
	// 3 samples with tiny variance
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var minutes []int
	for i := 0; i < 21; i++ {
		minutes = append(minutes, 420+i%3)
	}

	p := detector.detectConsistency("alice", eventsAt(monday, minutes, nil))

	if p == nil {
		t.Fatal("Expected a consistency pattern")
	}
	if p.Metrics["average_score"] <= consistencyFloor {
		t.Errorf("Expected average score above %.1f, got %f", consistencyFloor, p.Metrics["average_score"])
	}
	if p.Confidence > behavior.ConfidenceCap {
		t.Errorf("Confidence exceeds cap: %f", p.Confidence)
	}
}

func TestDetectConsistency_NoisyRoutineDoesNot(t *testing.T) {
	detector := NewDetector(5, testLogger())

	// Wild swings of several hours day to day
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var minutes []int
	for i := 0; i < 21; i++ {
		minutes = append(minutes, 300+(i%3)*180)
	}

	if p := detector.detectConsistency("alice", eventsAt(monday, minutes, nil)); p != nil {
		t.Errorf("Expected no pattern from a noisy routine, got confidence %f", p.Confidence)
	}
}

func TestDetectSnooze_RequiresEnoughSnoozedMornings(t *testing.T) {
	detector := NewDetector(5, testLogger())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	minutes := []int{420, 420, 420, 420, 420, 420, 420}
	snoozes := []int{2, 1, 0, 0, 0, 3, 0} // only 3 snoozed mornings

	if p := detector.detectSnooze("alice", eventsAt(monday, minutes, snoozes)); p != nil {
		t.Error("Expected no snooze pattern below the record minimum")
	}
}

func TestDetectSnooze_WeekdayDivergence(t *testing.T) {
	detector := NewDetector(5, testLogger())

	// Two weeks starting on a Monday: heavy weekday snoozing, light weekends
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var minutes, snoozes []int
	for i := 0; i < 14; i++ {
		minutes = append(minutes, 420)
		day := monday.AddDate(0, 0, i).Weekday()
		if day == time.Saturday || day == time.Sunday {
			snoozes = append(snoozes, 1)
		} else {
			snoozes = append(snoozes, 3)
		}
	}

	p := detector.detectSnooze("alice", eventsAt(monday, minutes, snoozes))

	if p == nil {
		t.Fatal("Expected a snooze pattern")
	}
	if p.Context["divergence"] != "weekday" {
		t.Errorf("Expected weekday divergence flag, got %q", p.Context["divergence"])
	}
	if p.Metrics["average_snooze_count"] <= 1 {
		t.Errorf("Expected average snooze above 1, got %f", p.Metrics["average_snooze_count"])
	}
}

func TestDetectSeasonal_DriftAcrossMonths(t *testing.T) {
	detector := NewDetector(5, testLogger())

	// 40 days spanning December and January: much later wakes in January
	start := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	var events []behavior.WakeEvent
	for i := 0; i < 40; i++ {
		date := start.AddDate(0, 0, i)
		wake := 420
		if date.Month() == time.January {
			wake = 480
		}
		events = append(events, behavior.WakeEvent{UserID: "alice", Date: date, WakeMinutes: wake})
	}

	p := detector.detectSeasonal("alice", events)

	if p == nil {
		t.Fatal("Expected a seasonal pattern")
	}
	if p.Metrics["max_deviation_minutes"] <= seasonalDeviationMin {
		t.Errorf("Expected deviation above %.0f, got %f", seasonalDeviationMin, p.Metrics["max_deviation_minutes"])
	}
}

func TestDetectSeasonal_TooLittleHistory(t *testing.T) {
	detector := NewDetector(5, testLogger())

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var minutes []int
	for i := 0; i < 20; i++ {
		minutes = append(minutes, 420)
	}

	if p := detector.detectSeasonal("alice", eventsAt(start, minutes, nil)); p != nil {
		t.Error("Expected no seasonal pattern under 30 days")
	}
}

func TestDetectLocation_WeekendShift(t *testing.T) {
	detector := NewDetector(5, testLogger())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var events []behavior.WakeEvent
	for i := 0; i < 14; i++ {
		date := monday.AddDate(0, 0, i)
		wake := 420
		if isWeekend(date) {
			wake = 480 // a full hour later on weekends
		}
		events = append(events, behavior.WakeEvent{UserID: "alice", Date: date, WakeMinutes: wake})
	}

	p := detector.detectLocation("alice", events)

	if p == nil {
		t.Fatal("Expected a location pattern")
	}
	if p.Metrics["difference_minutes"] != 60 {
		t.Errorf("Expected 60-minute difference, got %f", p.Metrics["difference_minutes"])
	}
}

func TestDetectWeather_RainyMorningsDiffer(t *testing.T) {
	detector := NewDetector(5, testLogger())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var events []behavior.WakeEvent
	for i := 0; i < 10; i++ {
		ev := behavior.WakeEvent{UserID: "alice", Date: monday.AddDate(0, 0, i)}
		if i%2 == 0 {
			ev.WeatherCondition = "rain"
			ev.WakeMinutes = 450
		} else {
			ev.WeatherCondition = "sunny"
			ev.WakeMinutes = 420
		}
		events = append(events, ev)
	}

	p := detector.detectWeather("alice", events)

	if p == nil {
		t.Fatal("Expected a weather pattern")
	}
	if p.Metrics["difference_minutes"] != 30 {
		t.Errorf("Expected 30-minute difference, got %f", p.Metrics["difference_minutes"])
	}
}

func TestComputeTrend(t *testing.T) {
	cases := []struct {
		name          string
		values        []float64
		lowerIsBetter bool
		threshold     float64
		want          Trend
	}{
		{"too few values", []float64{1, 2, 3}, true, 0.5, TrendEmerging},
		{"stable within threshold", []float64{5, 5, 5, 5.1, 5, 5.2}, true, 0.5, TrendStable},
		{"dropping and lower is better", []float64{5, 5, 5, 2, 2, 2}, true, 0.5, TrendImproving},
		{"dropping and higher is better", []float64{5, 5, 5, 2, 2, 2}, false, 0.5, TrendDeclining},
		{"rising and higher is better", []float64{2, 2, 2, 5, 5, 5}, false, 0.5, TrendImproving},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := computeTrend(c.values, c.lowerIsBetter, c.threshold); got != c.want {
				t.Errorf("Expected %s, got %s", c.want, got)
			}
		})
	}
}
