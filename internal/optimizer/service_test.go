package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/behavior"
	"github.com/wakewise/wakewise-platform/internal/insight"
	"github.com/wakewise/wakewise-platform/internal/prediction"
	"github.com/wakewise/wakewise-platform/internal/provider"
	"github.com/wakewise/wakewise-platform/internal/rules"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

type fakeRedis struct {
	values map[string]string
	lists  map[string][]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		lists:  make(map[string][]string),
	}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	switch v := value.(type) {
	case string:
		f.values[key] = v
	case []byte:
		f.values[key] = string(v)
	default:
		f.values[key] = fmt.Sprintf("%v", v)
	}
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		delete(f.lists, key)
	}
	return nil
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) error {
	for _, v := range values {
		f.lists[key] = append([]string{v.(string)}, f.lists[key]...)
	}
	return nil
}

func (f *fakeRedis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	list := f.lists[key]
	if stop < 0 || stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return list[start : stop+1], nil
}

func (f *fakeRedis) LTrim(ctx context.Context, key string, start, stop int64) error {
	list := f.lists[key]
	if stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	if start > stop {
		f.lists[key] = nil
		return nil
	}
	f.lists[key] = list[start : stop+1]
	return nil
}

func (f *fakeRedis) LLen(ctx context.Context, key string) (int64, error) {
	return int64(len(f.lists[key])), nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }
func (f *fakeRedis) Ping(ctx context.Context) error                                  { return nil }
func (f *fakeRedis) Close() error                                                    { return nil }

type failingWeather struct{}

func (failingWeather) Forecast(ctx context.Context, date time.Time) (*provider.Weather, error) {
	return nil, fmt.Errorf("unavailable")
}

type failingCalendar struct{}

func (failingCalendar) Events(ctx context.Context, userID string, date time.Time) ([]provider.CalendarEvent, error) {
	return nil, fmt.Errorf("unavailable")
}

type failingLocation struct{}

func (failingLocation) CurrentPosition(ctx context.Context, userID string) (*provider.Position, error) {
	return nil, fmt.Errorf("unavailable")
}

type failingPlaces struct{}

func (failingPlaces) Patterns(ctx context.Context, userID string) ([]provider.LocationPattern, error) {
	return nil, fmt.Errorf("unavailable")
}

type failingSun struct{}

func (failingSun) Times(ctx context.Context, lat, lon float64, date time.Time) (*provider.SunTimes, error) {
	return nil, fmt.Errorf("unavailable")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustClock(s string) alarm.ClockTime {
	t, err := alarm.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestService(client *fakeRedis) *Service {
	logger := testLogger()

	store := behavior.NewStore(client, 0.1, 5, logger)
	analyzer := prediction.NewAnalyzer(store, failingWeather{}, failingCalendar{},
		failingLocation{}, failingPlaces{}, time.Second, 0.3, logger)
	engine := prediction.NewEngine(analyzer, prediction.NewCache(), 30, 0.4, logger)

	detector := insight.NewDetector(5, logger)
	registry := insight.NewRegistry(client, 0.6, 5, logger)
	generator := insight.NewGenerator(client, 10, 200, logger)

	ruleEngine := rules.NewEngine(failingWeather{}, failingCalendar{}, failingSun{},
		store, client, 60.1695, 24.9354, 15, 30, time.Second, logger)

	defs := &alarm.Definitions{
		Alarms: []alarm.Alarm{{
			ID:      "a1",
			UserID:  "alice",
			Time:    mustClock("07:00"),
			Enabled: true,
		}},
	}

	return NewService(store, nil, engine, detector, registry, generator,
		ruleEngine, defs, client, logger)
}

var tuesday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestOptimizationEnabled_DefaultsToOn(t *testing.T) {
	svc := newTestService(newFakeRedis())

	assert.True(t, svc.OptimizationEnabled(context.Background(), "alice"))
}

func TestEnable_TogglesTheFlag(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	require.NoError(t, svc.Enable(ctx, "alice", false))
	assert.False(t, svc.OptimizationEnabled(ctx, "alice"))

	require.NoError(t, svc.Enable(ctx, "alice", true))
	assert.True(t, svc.OptimizationEnabled(ctx, "alice"))
}

func TestPredictOptimalTime_DisabledKeepsBaseTime(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	require.NoError(t, svc.Enable(ctx, "alice", false))

	alm := &svc.defs.Alarms[0]
	result := svc.PredictOptimalTime(ctx, "alice", alm, tuesday)

	assert.Equal(t, "07:00", result.OptimalTime.String())
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Reasoning)
}

func TestPredictOptimalTime_UsesLearnedPatterns(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	// Enough observations for the historical factor to clear the floor
	for i := 0; i < 5; i++ {
		svc.RecordBehavior(ctx, "alice", behavior.PatternWakeTime,
			map[string]interface{}{"tuesday_minutes": 450})
	}

	alm := &svc.defs.Alarms[0]
	result := svc.PredictOptimalTime(ctx, "alice", alm, tuesday)

	assert.Equal(t, 30, result.AdjustmentMinutes, "typical 07:30 wake is +30 vs the 07:00 baseline")
	assert.Equal(t, "07:30", result.OptimalTime.String())
	assert.Greater(t, result.Confidence, 0.0)
}

func TestRecordBehavior_InvalidatesPredictionCache(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()
	alm := &svc.defs.Alarms[0]

	for i := 0; i < 5; i++ {
		svc.RecordBehavior(ctx, "alice", behavior.PatternWakeTime,
			map[string]interface{}{"tuesday_minutes": 450})
	}

	first := svc.PredictOptimalTime(ctx, "alice", alm, tuesday)
	cached := svc.PredictOptimalTime(ctx, "alice", alm, tuesday)
	assert.Same(t, first, cached, "no intervening record: cache must serve")

	svc.RecordBehavior(ctx, "alice", behavior.PatternWakeTime,
		map[string]interface{}{"tuesday_minutes": 400})

	recomputed := svc.PredictOptimalTime(ctx, "alice", alm, tuesday)
	assert.NotSame(t, first, recomputed, "recording must invalidate the cached prediction")
}

func TestAnalyzePatterns_PopulatesRegistry(t *testing.T) {
	client := newFakeRedis()
	svc := newTestService(client)
	ctx := context.Background()

	// Two weeks of heavy snoozing
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var events []behavior.WakeEvent
	for i := 0; i < 14; i++ {
		events = append(events, behavior.WakeEvent{
			UserID:      "alice",
			Date:        monday.AddDate(0, 0, i),
			WakeMinutes: 420 + i%3,
			SnoozeCount: 3,
		})
	}

	detected := svc.AnalyzePatterns(ctx, "alice", events)
	require.NotEmpty(t, detected)

	retained, err := insight.NewRegistry(client, 0.6, 5, testLogger()).Patterns(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, retained)
	for _, p := range retained {
		assert.GreaterOrEqual(t, p.Confidence, 0.6)
	}
}

func TestGenerateInsights_FromRegistry(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var events []behavior.WakeEvent
	for i := 0; i < 14; i++ {
		events = append(events, behavior.WakeEvent{
			UserID:      "alice",
			Date:        monday.AddDate(0, 0, i),
			WakeMinutes: 420 + i%3,
			SnoozeCount: 3,
		})
	}
	svc.AnalyzePatterns(ctx, "alice", events)

	insights := svc.GenerateInsights(ctx, "alice")

	require.NotEmpty(t, insights)
	for i := 1; i < len(insights); i++ {
		assert.GreaterOrEqual(t, insights[i-1].Priority, insights[i].Priority,
			"insights must come back ranked")
	}
}

func TestRecordInsightFeedback_RoundTrip(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	var events []behavior.WakeEvent
	for i := 0; i < 14; i++ {
		events = append(events, behavior.WakeEvent{
			UserID:      "alice",
			Date:        monday.AddDate(0, 0, i),
			WakeMinutes: 420,
			SnoozeCount: 3,
		})
	}
	svc.AnalyzePatterns(ctx, "alice", events)
	insights := svc.GenerateInsights(ctx, "alice")
	require.NotEmpty(t, insights)

	err := svc.RecordInsightFeedback(ctx, "alice", insights[0].ID, insight.FeedbackHelpful)
	assert.NoError(t, err)
}

func TestEvaluateAlarm_DisabledSkipsPipeline(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	require.NoError(t, svc.Enable(ctx, "alice", false))

	alm := &svc.defs.Alarms[0]
	alm.Optimizations = []alarm.SmartOptimization{
		{Type: alarm.OptimizationRushHour, Enabled: true},
	}

	d := svc.EvaluateAlarm(ctx, alm, tuesday, nil)

	assert.True(t, d.ShouldFire)
	assert.Equal(t, "07:00", d.EffectiveTime.String(), "disabled users get the configured time")
}

func TestEvaluateAlarm_EnabledRunsPipeline(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	alm := &svc.defs.Alarms[0]
	alm.Optimizations = []alarm.SmartOptimization{
		{Type: alarm.OptimizationRushHour, Enabled: true},
	}

	d := svc.EvaluateAlarm(ctx, alm, tuesday, nil)

	assert.True(t, d.ShouldFire)
	assert.Equal(t, "06:50", d.EffectiveTime.String(), "rush hour optimization applies on a weekday")
}

func TestRecordBehavior_NoHistoryConfigured(t *testing.T) {
	svc := newTestService(newFakeRedis())

	// Must not panic without a durable event log
	svc.RecordBehavior(context.Background(), "alice", behavior.PatternWakeTime,
		map[string]interface{}{"wake_minutes": 435, "snooze_count": 2, "weather": "rain"})
}

func TestWakeEventFromData(t *testing.T) {
	ev := wakeEventFromData("alice", map[string]interface{}{
		"wake_minutes": float64(435),
		"snooze_count": float64(2),
		"weather":      "rain",
		"latitude":     60.17,
		"longitude":    24.94,
	})

	require.NotNil(t, ev)
	assert.Equal(t, 435, ev.WakeMinutes)
	assert.Equal(t, 2, ev.SnoozeCount)
	assert.Equal(t, "rain", ev.WeatherCondition)
	require.NotNil(t, ev.Latitude)
	assert.InDelta(t, 60.17, *ev.Latitude, 1e-9)

	assert.Nil(t, wakeEventFromData("alice", map[string]interface{}{"weather": "rain"}),
		"no wake minute means no event")
}
