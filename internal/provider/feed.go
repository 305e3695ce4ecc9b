package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wakewise/wakewise-platform/pkg/mqtt"
)

// ContextFeed caches context reports published over MQTT and serves them
// through the provider ports. Reports older than maxAge are treated as
// unavailable so stale data never silently drives a prediction.
type ContextFeed struct {
	mu     sync.RWMutex
	logger *slog.Logger
	maxAge time.Duration

	weather   *weatherReport
	calendars map[string]*calendarReport // keyed by user ID
	positions map[string]*positionReport // keyed by user ID
}

type weatherReport struct {
	Weather    Weather
	ReceivedAt time.Time
}

type calendarReport struct {
	Events     []CalendarEvent
	ReceivedAt time.Time
}

type positionReport struct {
	Position   Position
	ReceivedAt time.Time
}

// NewContextFeed creates a context feed with the given staleness limit
func NewContextFeed(maxAge time.Duration, logger *slog.Logger) *ContextFeed {
	return &ContextFeed{
		logger:    logger,
		maxAge:    maxAge,
		calendars: make(map[string]*calendarReport),
		positions: make(map[string]*positionReport),
	}
}

// Subscribe attaches the feed to the context topics
func (f *ContextFeed) Subscribe(client mqtt.Client) error {
	if err := client.Subscribe("wakewise/context/weather", 1, f.handleWeather); err != nil {
		return fmt.Errorf("failed to subscribe to weather feed: %w", err)
	}
	if err := client.Subscribe("wakewise/context/calendar/+", 1, f.handleCalendar); err != nil {
		return fmt.Errorf("failed to subscribe to calendar feed: %w", err)
	}
	if err := client.Subscribe(mqtt.TopicLocationAll, 1, f.handleLocation); err != nil {
		return fmt.Errorf("failed to subscribe to location feed: %w", err)
	}
	return nil
}

func (f *ContextFeed) handleWeather(msg mqtt.Message) {
	var w Weather
	if err := json.Unmarshal(msg.Payload(), &w); err != nil {
		f.logger.Error("Failed to parse weather report", "error", err)
		return
	}

	f.mu.Lock()
	f.weather = &weatherReport{Weather: w, ReceivedAt: time.Now()}
	f.mu.Unlock()

	f.logger.Debug("Weather report cached", "condition", w.Condition, "temperature", w.Temperature)
}

func (f *ContextFeed) handleCalendar(msg mqtt.Message) {
	// wakewise/context/calendar/{user_id}
	topic := msg.Topic()
	userID := topic[len("wakewise/context/calendar/"):]

	var events []CalendarEvent
	if err := json.Unmarshal(msg.Payload(), &events); err != nil {
		f.logger.Error("Failed to parse calendar report", "user_id", userID, "error", err)
		return
	}

	f.mu.Lock()
	f.calendars[userID] = &calendarReport{Events: events, ReceivedAt: time.Now()}
	f.mu.Unlock()

	f.logger.Debug("Calendar report cached", "user_id", userID, "events", len(events))
}

func (f *ContextFeed) handleLocation(msg mqtt.Message) {
	userID, err := mqtt.ParseLocationTopic(msg.Topic())
	if err != nil {
		f.logger.Error("Failed to parse location topic", "topic", msg.Topic(), "error", err)
		return
	}

	var p Position
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		f.logger.Error("Failed to parse location report", "user_id", userID, "error", err)
		return
	}

	f.mu.Lock()
	f.positions[userID] = &positionReport{Position: p, ReceivedAt: time.Now()}
	f.mu.Unlock()

	f.logger.Debug("Location report cached", "user_id", userID)
}

// Forecast implements WeatherProvider from the latest cached report
func (f *ContextFeed) Forecast(ctx context.Context, date time.Time) (*Weather, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.weather == nil {
		return nil, fmt.Errorf("no weather report received")
	}
	if time.Since(f.weather.ReceivedAt) > f.maxAge {
		return nil, fmt.Errorf("weather report stale (age %s)", time.Since(f.weather.ReceivedAt).Round(time.Second))
	}
	w := f.weather.Weather
	return &w, nil
}

// Events implements CalendarProvider from the latest cached report,
// filtered to the requested date
func (f *ContextFeed) Events(ctx context.Context, userID string, date time.Time) ([]CalendarEvent, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	report, ok := f.calendars[userID]
	if !ok {
		return nil, fmt.Errorf("no calendar report for user %s", userID)
	}
	if time.Since(report.ReceivedAt) > f.maxAge {
		return nil, fmt.Errorf("calendar report stale for user %s", userID)
	}

	y, m, d := date.Date()
	var events []CalendarEvent
	for _, ev := range report.Events {
		ey, em, ed := ev.Start.Date()
		if ey == y && em == m && ed == d {
			events = append(events, ev)
		}
	}
	return events, nil
}

// CurrentPosition implements LocationProvider from the latest cached report
func (f *ContextFeed) CurrentPosition(ctx context.Context, userID string) (*Position, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	report, ok := f.positions[userID]
	if !ok {
		return nil, fmt.Errorf("no location report for user %s", userID)
	}
	if time.Since(report.ReceivedAt) > f.maxAge {
		return nil, fmt.Errorf("location report stale for user %s", userID)
	}
	p := report.Position
	return &p, nil
}
