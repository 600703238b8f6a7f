package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity ranks a rule's impact.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Rank orders severities; lower is more severe. Unknown severities rank last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() < 4
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
	return sev, nil
}

// Category groups rules. The validator runs categories in a fixed order.
type Category string

const (
	CategorySecrets          Category = "secrets"
	CategorySQLInjection     Category = "sql_injection"
	CategoryXSS              Category = "xss"
	CategoryCommandInjection Category = "command_injection"
	CategoryPerformance      Category = "performance"
	CategoryQuality          Category = "quality"
)

// SecurityCategories lists the security categories in scan order.
var SecurityCategories = []Category{
	CategorySecrets,
	CategorySQLInjection,
	CategoryXSS,
	CategoryCommandInjection,
}

func (c Category) valid() bool {
	switch c {
	case CategorySecrets, CategorySQLInjection, CategoryXSS, CategoryCommandInjection,
		CategoryPerformance, CategoryQuality:
		return true
	}
	return false
}

// Violation types produced by the built-in rules.
const (
	TypeHardcodedSecret      = "hardcoded_secret"
	TypeSQLInjection         = "sql_injection"
	TypeXSS                  = "xss"
	TypeCommandInjection     = "command_injection"
	TypeHashmapPerformance   = "hashmap_performance"
	TypePerformance          = "performance_antipattern"
	TypeMissingErrorHandling = "missing_error_handling"
	TypeHardcodedValue       = "hardcoded_value"
	TypeMemoryLeak           = "potential_memory_leak"
)

// Match is one raw hit of a matcher. Start and End are byte offsets into
// the scanned text; Line is 1-based.
type Match struct {
	Text  string
	Start int
	End   int
	Line  int
}

// Matcher finds matches in text. Implementations must be pure and safe for
// concurrent use.
type Matcher interface {
	Match(text string) []Match
}

// Rule is a named detection rule.
type Rule struct {
	Name        string
	Category    Category
	Type        string
	Matcher     Matcher
	Severity    Severity
	Message     string
	Remediation string

	// Redact marks matches as sensitive; callers must mask them before
	// reporting.
	Redact bool
}

// Describe renders the rule message for n matches. A "{count}" placeholder
// in the message is replaced with n.
func (r Rule) Describe(n int) string {
	return strings.ReplaceAll(r.Message, "{count}", strconv.Itoa(n))
}

func (r Rule) validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRule)
	case r.Type == "":
		return fmt.Errorf("%w: rule %q has no type", ErrInvalidRule, r.Name)
	case r.Matcher == nil:
		return fmt.Errorf("%w: rule %q has no matcher", ErrInvalidRule, r.Name)
	case !r.Category.valid():
		return fmt.Errorf("%w: rule %q has unknown category %q", ErrInvalidRule, r.Name, r.Category)
	case !r.Severity.Valid():
		return fmt.Errorf("%w: rule %q: %q", ErrInvalidSeverity, r.Name, r.Severity)
	}
	return nil
}
