package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wakewise/wakewise-platform/internal/alarm"
	"github.com/wakewise/wakewise-platform/internal/behavior"
)

// applyConditionalRules evaluates the alarm's active rules and reports
// whether firing is suppressed. A disable rule suppresses when its
// condition holds; an enable rule suppresses when its condition does not
// hold. Any evaluation error fails open.
func (e *Engine) applyConditionalRules(ctx context.Context, alm *alarm.Alarm, date time.Time) bool {
	for _, rule := range alm.Rules {
		if !rule.Active {
			continue
		}

		holds, err := e.conditionHolds(ctx, alm, &rule, date)
		if err != nil {
			e.logger.Warn("Rule evaluation failed, alarm allowed",
				"alarm_id", alm.ID,
				"rule_id", rule.ID,
				"rule_type", rule.Type,
				"policy", responseTo(failRuleEvaluation),
				"error", err)
			continue
		}

		suppressed := (rule.Action == alarm.RuleActionDisable && holds) ||
			(rule.Action == alarm.RuleActionEnable && !holds)
		if suppressed {
			e.logger.Info("Alarm suppressed by rule",
				"alarm_id", alm.ID,
				"rule_id", rule.ID,
				"rule_type", rule.Type,
				"action", rule.Action)
			return true
		}
	}

	return false
}

// conditionHolds evaluates one rule's condition against live context
func (e *Engine) conditionHolds(ctx context.Context, alm *alarm.Alarm, rule *alarm.ConditionalRule, date time.Time) (bool, error) {
	switch rule.Type {
	case alarm.RuleWeather:
		tctx, cancel := context.WithTimeout(ctx, e.providerTimeout)
		defer cancel()

		forecast, err := e.weather.Forecast(tctx, date)
		if err != nil {
			return false, fmt.Errorf("weather lookup failed: %w", err)
		}

		c := rule.Conditions
		if c.TemperatureMin != nil && forecast.Temperature < *c.TemperatureMin {
			return false, nil
		}
		if c.TemperatureMax != nil && forecast.Temperature > *c.TemperatureMax {
			return false, nil
		}
		if len(c.WeatherConditions) == 0 {
			return true, nil
		}
		condition := strings.ToLower(forecast.Condition)
		for _, want := range c.WeatherConditions {
			if strings.Contains(condition, strings.ToLower(want)) {
				return true, nil
			}
		}
		return false, nil

	case alarm.RuleCalendar:
		tctx, cancel := context.WithTimeout(ctx, e.providerTimeout)
		defer cancel()

		events, err := e.calendar.Events(tctx, alm.UserID, date)
		if err != nil {
			return false, fmt.Errorf("calendar lookup failed: %w", err)
		}
		return (len(events) > 0) == rule.Conditions.HasCalendarEvent, nil

	case alarm.RuleSleepQuality:
		sleep := e.patterns.Pattern(ctx, alm.UserID, behavior.PatternSleepQuality)
		if sleep == nil {
			return false, fmt.Errorf("no sleep quality data for user %s", alm.UserID)
		}
		quality, ok := sleep.Numeric["quality"]
		if !ok {
			return false, fmt.Errorf("sleep pattern has no quality field")
		}
		return quality >= rule.Conditions.MinSleepQuality, nil

	case alarm.RuleDayOfWeek:
		day := int(date.Weekday())
		for _, d := range rule.Conditions.DaysOfWeek {
			if d == day {
				return true, nil
			}
		}
		return false, nil

	case alarm.RuleTimeSinceLast:
		if alm.LastTriggered == nil {
			// Never fired: any minimum gap is satisfied
			return true, nil
		}
		elapsed := time.Since(*alm.LastTriggered).Hours()
		return elapsed >= rule.Conditions.MinHoursSinceLast, nil
	}

	return false, fmt.Errorf("unknown rule type: %s", rule.Type)
}
