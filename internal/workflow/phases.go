package workflow

import (
	"fmt"
	"strings"
)

// Phase names a workflow phase.
type Phase string

const (
	PhaseSpecification Phase = "specification"
	PhasePseudocode    Phase = "pseudocode"
	PhaseArchitecture  Phase = "architecture"
	PhaseRefinement    Phase = "refinement"
	PhaseCompletion    Phase = "completion"
)

// PhaseSpec is the static description of a phase.
type PhaseSpec struct {
	Name            Phase    `json:"name"`
	Description     string   `json:"description"`
	RequiredOutputs []string `json:"required_outputs"`
	QualityGate     float64  `json:"quality_gate"`
}

var phases = []PhaseSpec{
	{
		Name:            PhaseSpecification,
		Description:     "requirements and acceptance criteria",
		RequiredOutputs: []string{"requirements", "constraints", "acceptance_criteria"},
		QualityGate:     0.85,
	},
	{
		Name:            PhasePseudocode,
		Description:     "design sketch of algorithms and data structures",
		RequiredOutputs: []string{"algorithms", "data_structures", "flow"},
		QualityGate:     0.85,
	},
	{
		Name:            PhaseArchitecture,
		Description:     "components, interfaces and data flow",
		RequiredOutputs: []string{"components", "interfaces", "data_flow"},
		QualityGate:     0.90,
	},
	{
		Name:            PhaseRefinement,
		Description:     "implementation with tests",
		RequiredOutputs: []string{"code", "tests", "coverage"},
		QualityGate:     0.95,
	},
	{
		Name:            PhaseCompletion,
		Description:     "documentation, deployment and final validation",
		RequiredOutputs: []string{"documentation", "deployment", "validation"},
		QualityGate:     0.90,
	},
}

// aliases are keyed by normalized name; see normalizePhase.
var aliases = map[string]Phase{
	"spec":                      PhaseSpecification,
	"design":                    PhasePseudocode,
	"design_sketch":             PhasePseudocode,
	"implementation":            PhaseRefinement,
	"implementation_with_tests": PhaseRefinement,
}

// Phases returns the phase list in order.
func Phases() []PhaseSpec {
	out := make([]PhaseSpec, len(phases))
	for i, p := range phases {
		p.RequiredOutputs = append([]string(nil), p.RequiredOutputs...)
		out[i] = p
	}
	return out
}

var phaseNameReplacer = strings.NewReplacer("-", "_", " ", "_")

// normalizePhase lowercases name and treats hyphens and spaces as
// underscores, so "design-sketch" and "Design Sketch" both match.
func normalizePhase(name string) string {
	return phaseNameReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// ParsePhase resolves a phase name or alias.
func ParsePhase(name string) (Phase, error) {
	n := normalizePhase(name)
	if p, ok := aliases[n]; ok {
		return p, nil
	}
	if _, ok := phaseIndex(Phase(n)); ok {
		return Phase(n), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, name)
}

func phaseIndex(p Phase) (int, bool) {
	for i, spec := range phases {
		if spec.Name == p {
			return i, true
		}
	}
	return 0, false
}
