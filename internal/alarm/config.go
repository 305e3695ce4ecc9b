package alarm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions holds the declarative alarm and geofence configuration
// loaded from the alarms YAML file
type Definitions struct {
	Alarms    []Alarm    `yaml:"alarms"`
	Geofences []Geofence `yaml:"geofences"`
}

// LoadDefinitions loads alarm definitions from a YAML file
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alarm config: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse alarm config YAML: %w", err)
	}

	if err := ValidateDefinitions(&defs); err != nil {
		return nil, fmt.Errorf("alarm config validation failed: %w", err)
	}

	return &defs, nil
}

// LoadDefinitionsFromBytes loads alarm definitions from byte data (useful for testing)
func LoadDefinitionsFromBytes(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse alarm config YAML: %w", err)
	}

	if err := ValidateDefinitions(&defs); err != nil {
		return nil, fmt.Errorf("alarm config validation failed: %w", err)
	}

	return &defs, nil
}

// ValidateDefinitions checks structural validity of loaded definitions
func ValidateDefinitions(defs *Definitions) error {
	alarmIDs := make(map[string]bool)

	for i := range defs.Alarms {
		a := &defs.Alarms[i]
		if a.ID == "" {
			return fmt.Errorf("alarm %d: id is required", i)
		}
		if alarmIDs[a.ID] {
			return fmt.Errorf("duplicate alarm id %q", a.ID)
		}
		alarmIDs[a.ID] = true

		if a.UserID == "" {
			return fmt.Errorf("alarm %s: user_id is required", a.ID)
		}
		for _, d := range a.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("alarm %s: day of week %d out of range", a.ID, d)
			}
		}
		for _, opt := range a.Optimizations {
			if opt.MaxAdjustmentMinutes < 0 {
				return fmt.Errorf("alarm %s: optimization %s has negative max adjustment", a.ID, opt.Type)
			}
		}

		// Exactly one adjustment per season may be active
		activeSeasons := make(map[Season]bool)
		for _, adj := range a.SeasonalAdjustments {
			if !adj.Active {
				continue
			}
			if activeSeasons[adj.Season] {
				return fmt.Errorf("alarm %s: multiple active adjustments for season %s", a.ID, adj.Season)
			}
			activeSeasons[adj.Season] = true
		}

		for _, rule := range a.Rules {
			if rule.Action != RuleActionEnable && rule.Action != RuleActionDisable {
				return fmt.Errorf("alarm %s: rule %s has invalid action %q", a.ID, rule.ID, rule.Action)
			}
			for _, d := range rule.Conditions.DaysOfWeek {
				if d < 0 || d > 6 {
					return fmt.Errorf("alarm %s: rule %s day of week %d out of range", a.ID, rule.ID, d)
				}
			}
		}

		if a.Sun != nil && a.Sun.Type != SunSunrise && a.Sun.Type != SunSunset {
			return fmt.Errorf("alarm %s: invalid sun schedule type %q", a.ID, a.Sun.Type)
		}
	}

	geofenceIDs := make(map[string]bool)
	for i := range defs.Geofences {
		g := &defs.Geofences[i]
		if g.ID == "" {
			return fmt.Errorf("geofence %d: id is required", i)
		}
		if geofenceIDs[g.ID] {
			return fmt.Errorf("duplicate geofence id %q", g.ID)
		}
		geofenceIDs[g.ID] = true

		if g.RadiusMeters <= 0 {
			return fmt.Errorf("geofence %s: radius must be positive", g.ID)
		}
		for _, alarmID := range g.LinkedAlarmIDs {
			if !alarmIDs[alarmID] {
				return fmt.Errorf("geofence %s: linked alarm %q not defined", g.ID, alarmID)
			}
		}
		for _, tr := range g.Triggers {
			if tr.Type == TriggerDwell && tr.DwellMinutes <= 0 {
				return fmt.Errorf("geofence %s: dwell trigger requires positive dwell_minutes", g.ID)
			}
		}
	}

	return nil
}

// GeofencesForAlarm returns the active geofences linked to the given alarm
func (d *Definitions) GeofencesForAlarm(alarmID string) []Geofence {
	var linked []Geofence
	for _, g := range d.Geofences {
		if g.Active && g.LinksAlarm(alarmID) {
			linked = append(linked, g)
		}
	}
	return linked
}
