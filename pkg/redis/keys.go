package redis

import "fmt"

// Key construction helpers for the wake optimization state

// BehaviorPatternsKey returns the key holding all learned patterns for a user (JSON)
// Pattern: patterns:{user_id}
func BehaviorPatternsKey(userID string) string {
	return fmt.Sprintf("patterns:%s", userID)
}

// PatternRegistryKey returns the key for a user's detected-pattern registry (JSON)
// Pattern: registry:{user_id}
func PatternRegistryKey(userID string) string {
	return fmt.Sprintf("registry:%s", userID)
}

// InsightHistoryKey returns the key for a user's insight history (list)
// Pattern: insights:{user_id}
func InsightHistoryKey(userID string) string {
	return fmt.Sprintf("insights:%s", userID)
}

// GeofenceStateKey returns the key for a geofence's last known inside/outside state
// Pattern: geofence:state:{geofence_id}
func GeofenceStateKey(geofenceID string) string {
	return fmt.Sprintf("geofence:state:%s", geofenceID)
}

// DwellStartKey returns the key for a geofence's persisted dwell-start timestamp
// Pattern: geofence:dwell:{geofence_id}
func DwellStartKey(geofenceID string) string {
	return fmt.Sprintf("geofence:dwell:%s", geofenceID)
}

// OptimizationEnabledKey returns the key for a user's optimization enable flag
// Pattern: enabled:{user_id}
func OptimizationEnabledKey(userID string) string {
	return fmt.Sprintf("enabled:%s", userID)
}
