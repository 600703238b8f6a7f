package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a rule.
//
// A definition with guards becomes an UnguardedMatcher triggered by
// Pattern; one with Exclude becomes a FilterMatcher.
type Definition struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Type        string   `yaml:"type"`
	Severity    string   `yaml:"severity"`
	Pattern     string   `yaml:"pattern"`
	Group       int      `yaml:"group"`
	Exclude     string   `yaml:"exclude"`
	Guards      []string `yaml:"guards"`
	Message     string   `yaml:"message"`
	Remediation string   `yaml:"remediation"`
	Redact      bool     `yaml:"redact"`
}

// Pack is a file of rule definitions.
type Pack struct {
	Name  string       `yaml:"name"`
	Rules []Definition `yaml:"rules"`
}

// LoadPack reads and compiles a YAML rule pack.
func LoadPack(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack %s: %w", path, err)
	}
	rules, err := ParsePack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParsePack compiles YAML rule definitions.
func ParsePack(data []byte) ([]Rule, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}

	out := make([]Rule, 0, len(pack.Rules))
	for i, d := range pack.Rules {
		r, err := d.Compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, d.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Compile turns a definition into a Rule.
func (d Definition) Compile() (Rule, error) {
	sev, err := ParseSeverity(d.Severity)
	if err != nil {
		return Rule{}, err
	}
	if d.Pattern == "" {
		return Rule{}, fmt.Errorf("%w: missing pattern", ErrInvalidPack)
	}

	var m Matcher
	base, err := NewRegexMatcher(d.Pattern, d.Group)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: pattern: %v", ErrInvalidPack, err)
	}
	m = base
	if d.Exclude != "" {
		if m, err = NewFilterMatcher(m, d.Exclude); err != nil {
			return Rule{}, fmt.Errorf("%w: exclude: %v", ErrInvalidPack, err)
		}
	}
	if len(d.Guards) > 0 {
		if m, err = NewUnguardedMatcher(m, d.Guards...); err != nil {
			return Rule{}, fmt.Errorf("%w: guard: %v", ErrInvalidPack, err)
		}
	}

	r := Rule{
		Name:        d.Name,
		Category:    Category(d.Category),
		Type:        d.Type,
		Matcher:     m,
		Severity:    sev,
		Message:     d.Message,
		Remediation: d.Remediation,
		Redact:      d.Redact,
	}
	if r.Message == "" {
		r.Message = d.Name + " matched"
	}
	return r, r.validate()
}
