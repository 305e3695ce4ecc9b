package mqtt

import (
	"fmt"
	"strings"
)

// Topic constants for the wake optimization pipeline
const (
	// Behavior observations (input)
	// Pattern: wakewise/behavior/{user_id}/{pattern_type}
	TopicBehaviorAll = "wakewise/behavior/+/+"

	// Live location reports (input)
	// Pattern: wakewise/context/location/{user_id}
	TopicLocationAll = "wakewise/context/location/+"

	// Alarm decisions (output)
	TopicDecisionBase = "wakewise/alarm/decision"

	// Generated insights (output)
	TopicInsightBase = "wakewise/insight"

	// Notifications requested by geofence trigger actions (output)
	TopicNotifyBase = "wakewise/notify"
)

// BehaviorTopic constructs a behavior observation topic
// Pattern: wakewise/behavior/{user_id}/{pattern_type}
func BehaviorTopic(userID, patternType string) string {
	return fmt.Sprintf("wakewise/behavior/%s/%s", userID, patternType)
}

// LocationTopic constructs a live location topic for a user
// Pattern: wakewise/context/location/{user_id}
func LocationTopic(userID string) string {
	return fmt.Sprintf("wakewise/context/location/%s", userID)
}

// DecisionTopic constructs the alarm decision topic for an alarm
// Pattern: wakewise/alarm/decision/{alarm_id}
func DecisionTopic(alarmID string) string {
	return fmt.Sprintf("%s/%s", TopicDecisionBase, alarmID)
}

// InsightTopic constructs the insight topic for a user
// Pattern: wakewise/insight/{user_id}
func InsightTopic(userID string) string {
	return fmt.Sprintf("%s/%s", TopicInsightBase, userID)
}

// NotifyTopic constructs the notification topic for a user
// Pattern: wakewise/notify/{user_id}
func NotifyTopic(userID string) string {
	return fmt.Sprintf("%s/%s", TopicNotifyBase, userID)
}

// ParseBehaviorTopic extracts user ID and pattern type from a behavior topic
// wakewise/behavior/{user_id}/{pattern_type}
func ParseBehaviorTopic(topic string) (userID, patternType string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "wakewise" || parts[1] != "behavior" {
		return "", "", fmt.Errorf("unexpected behavior topic: %s", topic)
	}
	return parts[2], parts[3], nil
}

// ParseLocationTopic extracts the user ID from a live location topic
// wakewise/context/location/{user_id}
func ParseLocationTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[1] != "context" || parts[2] != "location" {
		return "", fmt.Errorf("unexpected location topic: %s", topic)
	}
	return parts[3], nil
}
