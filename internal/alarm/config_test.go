package alarm

import (
	"strings"
	"testing"
	"time"
)

const validConfig = `
alarms:
  - id: workday
    user_id: alice
    label: Workday wakeup
    time: "06:45"
    enabled: true
    days: [1, 2, 3, 4, 5]
    optimizations:
      - type: sleep_cycle
        enabled: true
        max_adjustment_minutes: 20
      - type: weather
        enabled: true
    seasonal_adjustments:
      - season: winter
        adjustment_minutes: 15
        active: true
    rules:
      - id: holiday-skip
        type: day_of_week
        action: disable_alarm
        active: true
        conditions:
          days_of_week: [0, 6]
  - id: sunrise-run
    user_id: alice
    time: "07:00"
    enabled: true
    sun:
      type: sunrise
      offset_minutes: -15
      seasonal_adjustment: true

geofences:
  - id: home
    user_id: alice
    name: Home
    latitude: 60.1695
    longitude: 24.9354
    radius_meters: 500
    active: true
    linked_alarms: [workday]
    triggers:
      - type: exit
        action: disable_alarm
      - type: dwell
        action: enable_alarm
        dwell_minutes: 30
`

func TestLoadDefinitions_Valid(t *testing.T) {
	defs, err := LoadDefinitionsFromBytes([]byte(validConfig))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(defs.Alarms) != 2 {
		t.Fatalf("Expected 2 alarms, got %d", len(defs.Alarms))
	}

	workday := defs.Alarms[0]
	if workday.Time.String() != "06:45" {
		t.Errorf("Expected time 06:45, got %s", workday.Time)
	}
	if len(workday.Optimizations) != 2 {
		t.Errorf("Expected 2 optimizations, got %d", len(workday.Optimizations))
	}
	if workday.Optimizations[0].MaxAdjustmentMinutes != 20 {
		t.Errorf("Expected max adjustment 20, got %d", workday.Optimizations[0].MaxAdjustmentMinutes)
	}

	run := defs.Alarms[1]
	if run.Sun == nil || run.Sun.Type != SunSunrise || run.Sun.OffsetMinutes != -15 {
		t.Errorf("Sun schedule not parsed: %+v", run.Sun)
	}

	if len(defs.Geofences) != 1 {
		t.Fatalf("Expected 1 geofence, got %d", len(defs.Geofences))
	}
	if !defs.Geofences[0].LinksAlarm("workday") {
		t.Error("Expected the home geofence linked to the workday alarm")
	}
}

func TestValidateDefinitions_Failures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(d *Definitions)
		wantErr string
	}{
		{
			"duplicate alarm id",
			func(d *Definitions) { d.Alarms = append(d.Alarms, Alarm{ID: "workday", UserID: "alice"}) },
			"duplicate alarm id",
		},
		{
			"day out of range",
			func(d *Definitions) { d.Alarms[0].Days = []int{7} },
			"out of range",
		},
		{
			"two active adjustments for one season",
			func(d *Definitions) {
				d.Alarms[0].SeasonalAdjustments = append(d.Alarms[0].SeasonalAdjustments,
					SeasonalAdjustment{Season: SeasonWinter, AdjustmentMinutes: 5, Active: true})
			},
			"multiple active adjustments",
		},
		{
			"invalid rule action",
			func(d *Definitions) { d.Alarms[0].Rules[0].Action = "snooze_alarm" },
			"invalid action",
		},
		{
			"dwell without duration",
			func(d *Definitions) { d.Geofences[0].Triggers[1].DwellMinutes = 0 },
			"dwell trigger requires",
		},
		{
			"link to unknown alarm",
			func(d *Definitions) { d.Geofences[0].LinkedAlarmIDs = []string{"missing"} },
			"not defined",
		},
		{
			"zero radius",
			func(d *Definitions) { d.Geofences[0].RadiusMeters = 0 },
			"radius must be positive",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defs, err := LoadDefinitionsFromBytes([]byte(validConfig))
			if err != nil {
				t.Fatalf("Base config should be valid: %v", err)
			}

			c.mutate(defs)

			err = ValidateDefinitions(defs)
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("Expected error containing %q, got %q", c.wantErr, err)
			}
		})
	}
}

func TestAlarm_AppliesOn(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	everyday := Alarm{ID: "a", UserID: "u"}
	if !everyday.AppliesOn(saturday) || !everyday.AppliesOn(tuesday) {
		t.Error("Expected an alarm with no days to apply every day")
	}

	weekdays := Alarm{ID: "a", UserID: "u", Days: []int{1, 2, 3, 4, 5}}
	if weekdays.AppliesOn(saturday) {
		t.Error("Expected a weekday alarm not to apply on Saturday")
	}
	if !weekdays.AppliesOn(tuesday) {
		t.Error("Expected a weekday alarm to apply on Tuesday")
	}
}

func TestSeasonOf(t *testing.T) {
	cases := []struct {
		month time.Month
		want  Season
	}{
		{time.January, SeasonWinter},
		{time.February, SeasonWinter},
		{time.March, SeasonSpring},
		{time.May, SeasonSpring},
		{time.June, SeasonSummer},
		{time.August, SeasonSummer},
		{time.September, SeasonFall},
		{time.November, SeasonFall},
		{time.December, SeasonWinter},
	}

	for _, c := range cases {
		date := time.Date(2026, c.month, 15, 0, 0, 0, 0, time.UTC)
		if got := SeasonOf(date); got != c.want {
			t.Errorf("SeasonOf(%s) = %s, want %s", c.month, got, c.want)
		}
	}
}
