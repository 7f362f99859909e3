// Package analysis turns a metrics snapshot into a bounded list of typed
// optimization decisions. Two engines exist: a deterministic rule engine and
// an LLM engine that falls back to the rules on any failure.
package analysis

import "time"

// DecisionType identifies the action the orchestrator should take
type DecisionType string

const (
	DecisionGenerateCreative      DecisionType = "GENERATE_CREATIVE"
	DecisionPauseUnderperformer   DecisionType = "PAUSE_UNDERPERFORMER"
	DecisionBudgetReallocate      DecisionType = "BUDGET_REALLOCATE"
	DecisionDuplicateAdSetForTest DecisionType = "DUPLICATE_ADSET_FOR_TEST"
	DecisionPromoteWinner         DecisionType = "PROMOTE_WINNER"
)

// KnownDecisionTypes is the closed set an engine may emit
var KnownDecisionTypes = map[DecisionType]bool{
	DecisionGenerateCreative:      true,
	DecisionPauseUnderperformer:   true,
	DecisionBudgetReallocate:      true,
	DecisionDuplicateAdSetForTest: true,
	DecisionPromoteWinner:         true,
}

// Priority levels for decisions
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// MaxDecisions caps the output of a single analysis pass
const MaxDecisions = 5

// CreativeContext is the payload of a GENERATE_CREATIVE decision
type CreativeContext struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
	Objective   string `json:"objective"`
	Audience    string `json:"audience,omitempty"`
	Tone        string `json:"tone,omitempty"`
}

// ReallocationParams is the payload of a BUDGET_REALLOCATE decision
type ReallocationParams struct {
	FromAdID string  `json:"from_ad_id"`
	ToAdID   string  `json:"to_ad_id"`
	Amount   float64 `json:"amount"`
}

// ExperimentParams is the payload of a DUPLICATE_ADSET_FOR_TEST decision
type ExperimentParams struct {
	ExperimentName string        `json:"experiment_name"`
	Hypothesis     string        `json:"hypothesis"`
	Variants       []VariantSpec `json:"variants"`
	TargetMetrics  []string      `json:"target_metrics,omitempty"`
	DurationDays   int           `json:"duration_days,omitempty"`
	Budget         float64       `json:"budget"`
}

// VariantSpec describes one arm of a proposed experiment
type VariantSpec struct {
	Name     string `json:"name"`
	Audience string `json:"audience"`
}

// Decision is a typed instruction for the pipeline orchestrator. Created once
// per run, consumed exactly once, never persisted standalone.
type Decision struct {
	Type       DecisionType        `json:"type"`
	Priority   string              `json:"priority"`
	Reason     string              `json:"reason"`
	TargetID   string              `json:"target_id,omitempty"`
	CampaignID string              `json:"campaign_id,omitempty"`
	AdSetID    string              `json:"ad_set_id,omitempty"`
	Context    *CreativeContext    `json:"context,omitempty"`
	Realloc    *ReallocationParams `json:"reallocation,omitempty"`
	Experiment *ExperimentParams   `json:"experiment,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}
