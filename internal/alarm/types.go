package alarm

import "time"

// Season identifies a meteorological season used for seasonal adjustments
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// SeasonOf maps a date to its season (Mar-May spring, Jun-Aug summer,
// Sep-Nov fall, Dec-Feb winter)
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonFall
	default:
		return SeasonWinter
	}
}

// OptimizationType identifies a smart optimization strategy on an alarm
type OptimizationType string

const (
	OptimizationSleepCycle OptimizationType = "sleep_cycle"
	OptimizationSeasonal   OptimizationType = "seasonal"
	OptimizationRushHour   OptimizationType = "rush_hour"
	OptimizationWeather    OptimizationType = "weather"
	OptimizationEarlyBird  OptimizationType = "early_bird"
)

// SmartOptimization is a user-configured optimization applied each scheduling pass
type SmartOptimization struct {
	Type OptimizationType `yaml:"type" json:"type"`

	// MaxAdjustmentMinutes caps this optimization's contribution.
	// Zero means use the configured default.
	MaxAdjustmentMinutes int `yaml:"max_adjustment_minutes,omitempty" json:"max_adjustment_minutes,omitempty"`

	Enabled     bool       `yaml:"enabled" json:"enabled"`
	LastApplied *time.Time `yaml:"-" json:"last_applied,omitempty"`
}

// SeasonalAdjustment shifts an alarm by a fixed offset while its season is current
type SeasonalAdjustment struct {
	Season            Season `yaml:"season" json:"season"`
	AdjustmentMinutes int    `yaml:"adjustment_minutes" json:"adjustment_minutes"`
	Active            bool   `yaml:"active" json:"active"`
}

// TriggerType identifies a geofence transition kind
type TriggerType string

const (
	TriggerEnter TriggerType = "enter"
	TriggerExit  TriggerType = "exit"
	TriggerDwell TriggerType = "dwell"
)

// TriggerAction is what a geofence trigger does to its linked alarms
type TriggerAction string

const (
	ActionEnableAlarm  TriggerAction = "enable_alarm"
	ActionDisableAlarm TriggerAction = "disable_alarm"
	ActionAdjustTime   TriggerAction = "adjust_time"
	ActionNotify       TriggerAction = "notify"
)

// GeofenceTrigger describes one reaction to a geofence transition
type GeofenceTrigger struct {
	Type          TriggerType   `yaml:"type" json:"type"`
	Action        TriggerAction `yaml:"action" json:"action"`
	AdjustMinutes int           `yaml:"adjust_minutes,omitempty" json:"adjust_minutes,omitempty"`
	DwellMinutes  int           `yaml:"dwell_minutes,omitempty" json:"dwell_minutes,omitempty"`
	Message       string        `yaml:"message,omitempty" json:"message,omitempty"`
}

// Geofence is a named circular region with transition triggers
type Geofence struct {
	ID             string            `yaml:"id" json:"id"`
	UserID         string            `yaml:"user_id" json:"user_id"`
	Name           string            `yaml:"name" json:"name"`
	Latitude       float64           `yaml:"latitude" json:"latitude"`
	Longitude      float64           `yaml:"longitude" json:"longitude"`
	RadiusMeters   float64           `yaml:"radius_meters" json:"radius_meters"`
	Active         bool              `yaml:"active" json:"active"`
	LinkedAlarmIDs []string          `yaml:"linked_alarms" json:"linked_alarms"`
	Triggers       []GeofenceTrigger `yaml:"triggers" json:"triggers"`
}

// LinksAlarm reports whether the geofence is linked to the given alarm
func (g *Geofence) LinksAlarm(alarmID string) bool {
	for _, id := range g.LinkedAlarmIDs {
		if id == alarmID {
			return true
		}
	}
	return false
}

// RuleType identifies what signal a conditional rule inspects
type RuleType string

const (
	RuleWeather       RuleType = "weather"
	RuleCalendar      RuleType = "calendar"
	RuleSleepQuality  RuleType = "sleep_quality"
	RuleDayOfWeek     RuleType = "day_of_week"
	RuleTimeSinceLast RuleType = "time_since_last"
)

// RuleAction is the effect of a conditional rule.
// disable_alarm suppresses firing when the condition holds;
// enable_alarm suppresses firing when the condition does not hold.
type RuleAction string

const (
	RuleActionEnable  RuleAction = "enable_alarm"
	RuleActionDisable RuleAction = "disable_alarm"
)

// RuleConditions holds the per-type condition parameters of a conditional rule
type RuleConditions struct {
	// Weather: any of these condition tags matches
	WeatherConditions []string `yaml:"weather_conditions,omitempty" json:"weather_conditions,omitempty"`
	TemperatureMin    *float64 `yaml:"temperature_min,omitempty" json:"temperature_min,omitempty"`
	TemperatureMax    *float64 `yaml:"temperature_max,omitempty" json:"temperature_max,omitempty"`

	// Calendar: condition holds when at least one event exists on the date
	HasCalendarEvent bool `yaml:"has_calendar_event,omitempty" json:"has_calendar_event,omitempty"`

	// Sleep quality: condition holds when quality meets the minimum (1-10)
	MinSleepQuality float64 `yaml:"min_sleep_quality,omitempty" json:"min_sleep_quality,omitempty"`

	// Day of week membership (0=Sunday)
	DaysOfWeek []int `yaml:"days_of_week,omitempty" json:"days_of_week,omitempty"`

	// Time since last firing of this alarm, in hours
	MinHoursSinceLast float64 `yaml:"min_hours_since_last,omitempty" json:"min_hours_since_last,omitempty"`
}

// ConditionalRule enables or disables an alarm based on live context
type ConditionalRule struct {
	ID         string         `yaml:"id" json:"id"`
	Type       RuleType       `yaml:"type" json:"type"`
	Action     RuleAction     `yaml:"action" json:"action"`
	Active     bool           `yaml:"active" json:"active"`
	Conditions RuleConditions `yaml:"conditions" json:"conditions"`
}

// SunScheduleType anchors an alarm to a sun event
type SunScheduleType string

const (
	SunSunrise SunScheduleType = "sunrise"
	SunSunset  SunScheduleType = "sunset"
)

// SunSchedule makes an alarm sunrise/sunset-relative instead of fixed-time
type SunSchedule struct {
	Type          SunScheduleType `yaml:"type" json:"type"`
	OffsetMinutes int             `yaml:"offset_minutes" json:"offset_minutes"`

	// SeasonalAdjustment adds a per-season sun offset on top of OffsetMinutes
	SeasonalAdjustment bool `yaml:"seasonal_adjustment" json:"seasonal_adjustment"`
}

// Alarm is the base configuration the optimization pipeline works against
type Alarm struct {
	ID      string    `yaml:"id" json:"id"`
	UserID  string    `yaml:"user_id" json:"user_id"`
	Label   string    `yaml:"label,omitempty" json:"label,omitempty"`
	Time    ClockTime `yaml:"time" json:"time"`
	Enabled bool      `yaml:"enabled" json:"enabled"`

	// Days of week the alarm applies to (0=Sunday); empty means every day
	Days []int `yaml:"days,omitempty" json:"days,omitempty"`

	Optimizations       []SmartOptimization  `yaml:"optimizations,omitempty" json:"optimizations,omitempty"`
	SeasonalAdjustments []SeasonalAdjustment `yaml:"seasonal_adjustments,omitempty" json:"seasonal_adjustments,omitempty"`
	Rules               []ConditionalRule    `yaml:"rules,omitempty" json:"rules,omitempty"`
	Sun                 *SunSchedule         `yaml:"sun,omitempty" json:"sun,omitempty"`

	LastTriggered *time.Time `yaml:"-" json:"last_triggered,omitempty"`
}

// AppliesOn reports whether the alarm is scheduled for the given date's weekday
func (a *Alarm) AppliesOn(date time.Time) bool {
	if len(a.Days) == 0 {
		return true
	}
	day := int(date.Weekday())
	for _, d := range a.Days {
		if d == day {
			return true
		}
	}
	return false
}

// LatLon is a geographic coordinate pair
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
