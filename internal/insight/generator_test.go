package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/pkg/redis"
)

// fakeRedis is an in-memory redis.Client for insight persistence tests
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
	f.values[key] = value.(string)
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

func decliningConsistency() DetectedPattern {
	return DetectedPattern{
		ID:         "consistency:alice",
		UserID:     "alice",
		Kind:       PatternConsistency,
		Confidence: 0.85,
		Trend:      TrendDeclining,
		DataPoints: 21,
		Metrics:    map[string]float64{"average_score": 0.8},
	}
}

func heavySnooze() DetectedPattern {
	return DetectedPattern{
		ID:         "snooze_behavior:alice",
		UserID:     "alice",
		Kind:       PatternSnooze,
		Confidence: 0.9,
		Trend:      TrendStable,
		DataPoints: 14,
		Metrics:    map[string]float64{"average_snooze_count": 2.5},
	}
}

func TestGenerate_DecliningConsistencyYieldsWarning(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	insights := gen.Generate(context.Background(), "alice", []DetectedPattern{decliningConsistency()}, nil)

	require.Len(t, insights, 1)
	assert.Equal(t, InsightWarning, insights[0].Type)
	assert.True(t, insights[0].Actionable)
	assert.NotEmpty(t, insights[0].SuggestedActions)
}

func TestGenerate_SnoozeOutranksSeasonal(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	seasonal := DetectedPattern{
		ID: "seasonal_drift:alice", UserID: "alice", Kind: PatternSeasonal,
		Confidence: 0.7, Trend: TrendStable, DataPoints: 40,
		Context: map[string]string{"direction": "later in winter"},
	}

	insights := gen.Generate(context.Background(), "alice",
		[]DetectedPattern{seasonal, heavySnooze()}, nil)

	require.Len(t, insights, 2)
	assert.Equal(t, InsightOptimization, insights[0].Type, "snooze insight should rank first")
	assert.Greater(t, insights[0].Priority, insights[1].Priority)
}

func TestGenerate_SeasonalInsightIsTimeBoxed(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	seasonal := DetectedPattern{
		ID: "seasonal_drift:alice", UserID: "alice", Kind: PatternSeasonal,
		Confidence: 0.7, Trend: TrendStable, DataPoints: 40,
	}

	insights := gen.Generate(context.Background(), "alice", []DetectedPattern{seasonal}, nil)

	require.Len(t, insights, 1)
	require.NotNil(t, insights[0].ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(seasonalInsightTTL), *insights[0].ExpiresAt, time.Minute)
}

func TestGenerate_LowConfidencePatternsFiltered(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	weak := heavySnooze()
	weak.Confidence = 0.4

	insights := gen.Generate(context.Background(), "alice", []DetectedPattern{weak}, nil)

	assert.Empty(t, insights)
}

func TestGenerate_TooManyAlarmsSuggestsConsolidation(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	alarms := make([]alarm.Alarm, 7)
	for i := range alarms {
		alarms[i].Enabled = true
	}

	insights := gen.Generate(context.Background(), "alice", nil, alarms)

	require.Len(t, insights, 1)
	assert.Contains(t, insights[0].Title, "Too many active alarms")
}

func TestGenerate_AppendsToHistory(t *testing.T) {
	client := newFakeRedis()
	gen := NewGenerator(client, 10, 200, testLogger())

	gen.Generate(context.Background(), "alice", []DetectedPattern{heavySnooze()}, nil)

	history, err := gen.History(context.Background(), "alice", 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, InsightOptimization, history[0].Type)
}

func TestGenerate_HistoryIsCapped(t *testing.T) {
	client := newFakeRedis()
	gen := NewGenerator(client, 10, 3, testLogger())

	for i := 0; i < 5; i++ {
		gen.Generate(context.Background(), "alice", []DetectedPattern{heavySnooze()}, nil)
	}

	length, err := client.LLen(context.Background(), redis.InsightHistoryKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

func TestRecordFeedback(t *testing.T) {
	client := newFakeRedis()
	gen := NewGenerator(client, 10, 200, testLogger())

	insights := gen.Generate(context.Background(), "alice", []DetectedPattern{heavySnooze()}, nil)
	require.Len(t, insights, 1)

	err := gen.RecordFeedback(context.Background(), "alice", insights[0].ID, FeedbackHelpful)
	require.NoError(t, err)

	history, err := gen.History(context.Background(), "alice", 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, FeedbackHelpful, history[0].Feedback)
}

func TestRecordFeedback_RejectsInvalidValue(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	err := gen.RecordFeedback(context.Background(), "alice", "whatever", "meh")
	assert.Error(t, err)
}

func TestRecordFeedback_UnknownInsight(t *testing.T) {
	gen := NewGenerator(newFakeRedis(), 10, 200, testLogger())

	err := gen.RecordFeedback(context.Background(), "alice", "missing", FeedbackHelpful)
	assert.Error(t, err)
}

func TestRegistry_RetentionFiltering(t *testing.T) {
	client := newFakeRedis()
	registry := NewRegistry(client, 0.6, 5, testLogger())

	patterns := []DetectedPattern{
		decliningConsistency(),
		{ID: "weather:alice", UserID: "alice", Kind: PatternWeather, Confidence: 0.55, DataPoints: 10},
		{ID: "snooze:alice", UserID: "alice", Kind: PatternSnooze, Confidence: 0.9, DataPoints: 3},
	}

	require.NoError(t, registry.Replace(context.Background(), "alice", patterns))

	stored, err := registry.Patterns(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, stored, 1, "only the confident, well-sampled pattern survives")
	assert.Equal(t, PatternConsistency, stored[0].Kind)
}

func TestRegistry_MissingIsEmpty(t *testing.T) {
	registry := NewRegistry(newFakeRedis(), 0.6, 5, testLogger())

	patterns, err := registry.Patterns(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestRegistry_CorruptedIsEmptyAndPreserved(t *testing.T) {
	client := newFakeRedis()
	client.values[redis.PatternRegistryKey("alice")] = "{not json"
	registry := NewRegistry(client, 0.6, 5, testLogger())

	patterns, err := registry.Patterns(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, patterns)
	assert.Equal(t, "{not json", client.values[redis.PatternRegistryKey("alice")],
		"corrupted value must not be overwritten")
}

func TestRegistry_ReplaceIsWholeSwap(t *testing.T) {
	client := newFakeRedis()
	registry := NewRegistry(client, 0.6, 5, testLogger())

	require.NoError(t, registry.Replace(context.Background(), "alice",
		[]DetectedPattern{decliningConsistency(), heavySnooze()}))
	require.NoError(t, registry.Replace(context.Background(), "alice",
		[]DetectedPattern{heavySnooze()}))

	stored, err := registry.Patterns(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, PatternSnooze, stored[0].Kind)
}
