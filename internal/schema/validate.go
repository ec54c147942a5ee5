package schema

import (
	"github.com/qphase-sched/qphase-sched/internal/errs"
)

// ValidateNumericVector checks that, if present under params, an
// initial-condition field is structurally a flat list of numbers
// (spec.md §4.3: "Initial-condition vectors parseable (if present) — the
// core does not know the physical meaning; it only checks structure").
// field is usually "initial_condition" or "ic"; absence is not an error.
func ValidateNumericVector(params *Node, field string) error {
	if params == nil || params.Kind != KindMapping {
		return nil
	}
	v, ok := params.Fields[field]
	if !ok || v.IsEmpty() {
		return nil
	}
	if v.Kind != KindSequence {
		return errs.New(errs.SchemaInvalid, "params.%s must be a list of numbers", field)
	}
	for i, item := range v.Items {
		if item == nil || item.Kind != KindScalar {
			return errs.New(errs.SchemaInvalid, "params.%s[%d] must be a number", field, i)
		}
		switch item.Scalar.(type) {
		case float64, int:
		default:
			return errs.New(errs.SchemaInvalid, "params.%s[%d] must be a number, got %v", field, i, item.Scalar)
		}
	}
	return nil
}

// knownInitialConditionFields lists the field names the core recognizes
// as initial-condition vectors without knowing their physical meaning.
var knownInitialConditionFields = []string{"initial_condition", "ic", "y0", "x0"}

// ValidateJobParams runs the structural checks spec.md §4.3 assigns to
// free-form params: every recognized initial-condition field, if present,
// must be a flat numeric vector.
func ValidateJobParams(params *Node) error {
	for _, field := range knownInitialConditionFields {
		if err := ValidateNumericVector(params, field); err != nil {
			return err
		}
	}
	return nil
}
