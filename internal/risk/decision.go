package risk

import (
	"strings"

	"github.com/serenity-health/risk-api/pkg/logging"
)

// Action is the recommended response tier for an analyzed message.
type Action string

const (
	ActionNormal           Action = "normal"
	ActionUncertainSupport Action = "uncertain_support"
	ActionCrisisHigh       Action = "crisis_high"
	ActionCrisisCritical   Action = "crisis_critical"
)

// lowConfidenceThreshold is the policy cutoff below which a non-flagged,
// non-suicidal prediction gets a cautious response instead of the normal path.
// Confidence exactly at the threshold is NOT uncertain.
const lowConfidenceThreshold = 0.55

// suicidalLabels are the classifier labels that escalate on their own.
var suicidalLabels = map[string]struct{}{
	"suicidal": {},
	"suicide":  {},
}

// Decide maps a prediction and the matched safety flags to an action tier.
// It is pure and deterministic; precedence is evaluated top-down and the
// first rule that matches wins. Rule flags always dominate model confidence,
// and the model label can only escalate, never de-escalate.
func Decide(label string, confidence float64, flags Flags) Action {
	// Co-occurring planning/intent/imminence is the strongest signal,
	// independent of model output.
	if (flags.Has(FlagIntent) && flags.Has(FlagTime)) ||
		(flags.Has(FlagPlan) && (flags.Has(FlagIntent) || flags.Has(FlagTime))) {
		return ActionCrisisCritical
	}

	// Any single rule hit is treated as high risk without corroboration,
	// favoring false positives over missed escalations.
	if len(flags) > 0 {
		return ActionCrisisHigh
	}

	if _, ok := suicidalLabels[strings.ToLower(label)]; ok {
		return ActionCrisisHigh
	}

	if confidence < lowConfidenceThreshold {
		return ActionUncertainSupport
	}

	return ActionNormal
}

// Engine wraps Decide with the severity logging the audit trail expects:
// error for crisis_high, critical for crisis_critical.
type Engine struct {
	logger *logging.Logger
}

// NewEngine creates a decision engine.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{logger: logger}
}

// Decide selects the action tier and logs escalations.
func (e *Engine) Decide(label string, confidence float64, flags Flags) Action {
	action := Decide(label, confidence, flags)

	switch action {
	case ActionCrisisCritical:
		e.logger.Critical("critical crisis indicators detected",
			"label", label,
			"confidence", confidence,
			"flags", flags.Strings(),
		)
	case ActionCrisisHigh:
		e.logger.Error("high risk indicators detected",
			"label", label,
			"confidence", confidence,
			"flags", flags.Strings(),
		)
	case ActionUncertainSupport:
		e.logger.Warn("low confidence prediction",
			"label", label,
			"confidence", confidence,
		)
	}

	return action
}
