package alarm

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const minutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day expressed as minutes since midnight.
// All arithmetic wraps across midnight.
type ClockTime int

// ParseClock parses an "HH:MM" string into a ClockTime
func ParseClock(s string) (ClockTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return ClockTime(hour*60 + minute), nil
}

// ClockFromTime extracts the time of day from a time.Time
func ClockFromTime(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// Add shifts the clock time by the given number of minutes, wrapping at midnight
func (c ClockTime) Add(minutes int) ClockTime {
	m := (int(c) + minutes) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return ClockTime(m)
}

// Hour returns the hour component (0-23)
func (c ClockTime) Hour() int {
	return int(c) / 60
}

// Minute returns the minute component (0-59)
func (c ClockTime) Minute() int {
	return int(c) % 60
}

// Minutes returns minutes since midnight
func (c ClockTime) Minutes() int {
	return int(c)
}

// String formats the clock time as "HH:MM"
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalJSON encodes the clock time as an "HH:MM" string
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes an "HH:MM" string
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML encodes the clock time as an "HH:MM" string
func (c ClockTime) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML decodes an "HH:MM" string
func (c *ClockTime) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
