package workflow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Deductions applied while scoring a phase.
const (
	missingOutputPenalty = 0.2
	customIssuePenalty   = 0.1
	minCoverage          = 90.0
)

// finding is one structural problem with a deduction and remediation.
type finding struct {
	issue       string
	penalty     float64
	remediation string
}

// structuralChecks are the phase-specific checks on top of the required
// output fields.
var structuralChecks = map[Phase]func(outputs map[string]any) []finding{
	PhaseSpecification: func(o map[string]any) []finding {
		var fs []finding
		if n, ok := count(o["acceptance_criteria"]); ok && n > 0 {
			if reqs, ok := count(o["requirements"]); ok && n < reqs {
				fs = append(fs, finding{
					issue:       fmt.Sprintf("%d requirement(s) but only %d acceptance criteria", reqs, n),
					penalty:     0.1,
					remediation: "Give every requirement at least one acceptance criterion",
				})
			}
		}
		return fs
	},
	PhasePseudocode: func(o map[string]any) []finding {
		if s, ok := o["flow"].(string); ok && len(strings.Fields(s)) < 3 {
			return []finding{{
				issue:       "control flow description is too terse",
				penalty:     0.1,
				remediation: "Describe the control flow step by step",
			}}
		}
		return nil
	},
	PhaseArchitecture: func(o map[string]any) []finding {
		if n, ok := count(o["components"]); ok && n > 0 && n < 2 {
			return []finding{{
				issue:       "architecture names a single component",
				penalty:     0.1,
				remediation: "Break the design into components with clear responsibilities",
			}}
		}
		return nil
	},
	PhaseRefinement: func(o map[string]any) []finding {
		var fs []finding
		if cov, ok := number(o["coverage"]); ok && cov < minCoverage {
			fs = append(fs, finding{
				issue:       fmt.Sprintf("test coverage %.1f%% is below %.0f%%", cov, minCoverage),
				penalty:     0.2,
				remediation: fmt.Sprintf("Add tests until coverage reaches %.0f%%", minCoverage),
			})
		}
		if passed, ok := o["tests_passed"].(bool); ok && !passed {
			fs = append(fs, finding{
				issue:       "tests are failing",
				penalty:     0.2,
				remediation: "Fix failing tests before leaving refinement",
			})
		}
		return fs
	},
	PhaseCompletion: func(o map[string]any) []finding {
		if passed, ok := o["validation"].(bool); ok && !passed {
			return []finding{{
				issue:       "final validation did not pass",
				penalty:     0.2,
				remediation: "Resolve the final validation failures",
			}}
		}
		return nil
	},
}

// present reports whether an output value counts as supplied. Nil, blank
// strings and empty collections do not. False and zero do.
func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

// count returns the element count of a collection, or 1 for a non-empty
// scalar.
func count(v any) (int, bool) {
	if !present(v) {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 1, true
}

// number reads a numeric output. Strings may carry a trailing percent.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	}
	return 0, false
}
