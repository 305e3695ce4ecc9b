package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wakewise/wakewise-platform/internal/behavior"
	"github.com/wakewise/wakewise-platform/internal/provider"
	"github.com/wakewise/wakewise-platform/pkg/config"
	"github.com/wakewise/wakewise-platform/pkg/mqtt"
)

// Agent runs the optimization service against the MQTT bus: it consumes
// behavior observations and context reports, evaluates alarms on a timer,
// and publishes decisions, notifications, and insights
type Agent struct {
	service *Service
	feed    *provider.ContextFeed
	mqtt    mqtt.Client
	cfg     *config.Config
	logger  *slog.Logger

	mu             sync.Mutex
	behaviorCounts map[string]int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewAgent creates the wake optimization agent
func NewAgent(service *Service, feed *provider.ContextFeed, mqttClient mqtt.Client, cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		service:        service,
		feed:           feed,
		mqtt:           mqttClient,
		cfg:            cfg,
		logger:         logger,
		behaviorCounts: make(map[string]int),
	}
}

// Start subscribes to the input topics and launches the evaluation and
// re-analysis loops
func (a *Agent) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	if err := a.feed.Subscribe(a.mqtt); err != nil {
		return fmt.Errorf("failed to subscribe context feed: %w", err)
	}
	if err := a.mqtt.Subscribe(mqtt.TopicBehaviorAll, 1, a.handleBehavior); err != nil {
		return fmt.Errorf("failed to subscribe to behavior topic: %w", err)
	}

	a.wg.Add(2)
	go a.evaluationLoop(ctx)
	go a.analysisLoop(ctx)

	a.logger.Info("Wake optimization agent started",
		"evaluation_interval_sec", a.cfg.EvaluationIntervalSec,
		"analysis_interval_sec", a.cfg.AnalysisIntervalSec)

	return nil
}

// Stop halts the background loops and waits for them to finish
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.logger.Info("Wake optimization agent stopped")
}

// handleBehavior records one observation from the bus. Every N recorded
// behaviors per user trigger an immediate re-analysis.
func (a *Agent) handleBehavior(msg mqtt.Message) {
	userID, patternType, err := mqtt.ParseBehaviorTopic(msg.Topic())
	if err != nil {
		a.logger.Error("Unexpected behavior topic", "topic", msg.Topic(), "error", err)
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &data); err != nil {
		a.logger.Error("Failed to parse behavior payload",
			"user_id", userID, "pattern_type", patternType, "error", err)
		return
	}

	ctx := context.Background()
	a.service.RecordBehavior(ctx, userID, behavior.PatternType(patternType), data)

	a.mu.Lock()
	a.behaviorCounts[userID]++
	due := a.cfg.AnalysisEveryNBehaviors > 0 && a.behaviorCounts[userID]%a.cfg.AnalysisEveryNBehaviors == 0
	a.mu.Unlock()

	if due {
		a.logger.Debug("Behavior count reached re-analysis threshold", "user_id", userID)
		go a.analyzeUser(ctx, userID)
	}
}

// evaluationLoop runs a scheduling pass over every configured alarm on
// the configured interval
func (a *Agent) evaluationLoop(ctx context.Context) {
	defer a.wg.Done()

	interval := time.Duration(a.cfg.EvaluationIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.evaluateAll(ctx)
		}
	}
}

// evaluateAll evaluates every alarm for today and publishes the decisions
func (a *Agent) evaluateAll(ctx context.Context) {
	now := time.Now()
	alarms := a.service.Alarms()

	for i := range alarms {
		alm := &alarms[i]

		var live *provider.Position
		if position, err := a.feed.CurrentPosition(ctx, alm.UserID); err == nil {
			live = position
		}

		decision := a.service.EvaluateAlarm(ctx, alm, now, live)

		payload, err := json.Marshal(decision)
		if err != nil {
			a.logger.Error("Failed to marshal decision", "alarm_id", alm.ID, "error", err)
			continue
		}
		if err := a.mqtt.Publish(mqtt.DecisionTopic(alm.ID), 1, false, payload); err != nil {
			a.logger.Error("Failed to publish decision", "alarm_id", alm.ID, "error", err)
		}

		for _, message := range decision.Notifications {
			if err := a.mqtt.Publish(mqtt.NotifyTopic(alm.UserID), 1, false, []byte(message)); err != nil {
				a.logger.Error("Failed to publish notification",
					"user_id", alm.UserID, "error", err)
			}
		}
	}
}

// analysisLoop periodically re-mines every user's history and publishes
// fresh insights
func (a *Agent) analysisLoop(ctx context.Context) {
	defer a.wg.Done()

	interval := time.Duration(a.cfg.AnalysisIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, userID := range a.userIDs() {
				a.analyzeUser(ctx, userID)
			}
		}
	}
}

// analyzeUser reruns pattern detection from the persisted history and
// publishes the resulting insights
func (a *Agent) analyzeUser(ctx context.Context, userID string) {
	a.service.AnalyzePatterns(ctx, userID, nil)

	insights := a.service.GenerateInsights(ctx, userID)
	if len(insights) == 0 {
		return
	}

	payload, err := json.Marshal(insights)
	if err != nil {
		a.logger.Error("Failed to marshal insights", "user_id", userID, "error", err)
		return
	}
	if err := a.mqtt.Publish(mqtt.InsightTopic(userID), 1, false, payload); err != nil {
		a.logger.Error("Failed to publish insights", "user_id", userID, "error", err)
	}
}

// userIDs collects the distinct users across the configured alarms
func (a *Agent) userIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, alm := range a.service.Alarms() {
		if !seen[alm.UserID] {
			seen[alm.UserID] = true
			out = append(out, alm.UserID)
		}
	}
	return out
}
