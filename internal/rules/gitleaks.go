package rules

import (
	"fmt"
	"strings"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// GitleaksMatcher runs the gitleaks default rule set (several hundred
// provider-specific patterns) as a single matcher.
//
// The compiled gitleaks config is shared; a fresh detector is created per
// scan because detectors accumulate findings across calls.
type GitleaksMatcher struct {
	cfg gitleaksconfig.Config
}

// NewGitleaksMatcher loads the gitleaks default configuration.
func NewGitleaksMatcher() (*GitleaksMatcher, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("load gitleaks config: %w", err)
	}
	return &GitleaksMatcher{cfg: d.Config}, nil
}

// Match implements Matcher. Offsets are not reported by gitleaks for string
// scans; matches are located in text by value where possible.
func (m *GitleaksMatcher) Match(text string) []Match {
	findings := detect.NewDetector(m.cfg).DetectString(text)

	out := make([]Match, 0, len(findings))
	for _, f := range findings {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if i := strings.Index(text, secret); i >= 0 && secret != "" {
			out = append(out, newMatch(text, i, i+len(secret)))
			continue
		}
		out = append(out, Match{Text: secret, Start: -1, End: -1, Line: f.StartLine})
	}
	return out
}

// NewGitleaksRule wraps the gitleaks rule set as a CRITICAL secrets rule.
func NewGitleaksRule() (Rule, error) {
	m, err := NewGitleaksMatcher()
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Name:        "gitleaks",
		Category:    CategorySecrets,
		Type:        TypeHardcodedSecret,
		Matcher:     m,
		Severity:    SeverityCritical,
		Message:     "Credential matched the gitleaks rule set ({count} occurrence(s))",
		Remediation: "Revoke the credential and load it from a secret manager",
		Redact:      true,
	}, nil
}
