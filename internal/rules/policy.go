// Package rules applies smart optimizations, seasonal offsets, geofence
// triggers, conditional rules, and sun-relative scheduling to produce the
// final fire/no-fire decision and effective time for one alarm and date.
package rules

// failureClass groups the ways an evaluation step can go wrong
type failureClass string

const (
	failProviderUnavailable failureClass = "provider_unavailable"
	failStateUnavailable    failureClass = "state_unavailable"
	failRuleEvaluation      failureClass = "rule_evaluation"
)

// failureResponse is what the pipeline does about a failure
type failureResponse string

const (
	// responseSkipStep drops the failed step's contribution and continues
	responseSkipStep failureResponse = "skip_step"

	// responseFailOpen lets the alarm fire rather than silently suppress it
	responseFailOpen failureResponse = "fail_open"
)

// failurePolicy is the single place failure semantics are decided.
// A wake-up alarm must never be silently lost to an infrastructure hiccup.
var failurePolicy = map[failureClass]failureResponse{
	failProviderUnavailable: responseSkipStep,
	failStateUnavailable:    responseSkipStep,
	failRuleEvaluation:      responseFailOpen,
}

func responseTo(class failureClass) failureResponse {
	return failurePolicy[class]
}
