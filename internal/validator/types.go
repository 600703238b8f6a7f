package validator

import (
	"time"

	"github.com/fyrsmithlabs/gatekeeper/internal/rules"
)

// Violation is one rule that matched during pre-execution validation.
// Matches of secret rules are masked.
type Violation struct {
	Type       string         `json:"type"`
	Rule       string         `json:"rule"`
	Category   rules.Category `json:"category"`
	Severity   rules.Severity `json:"severity"`
	Message    string         `json:"message"`
	Matches    []string       `json:"matches"`
	Suggestion string         `json:"suggestion"`
}

// Result is the outcome of ValidatePre.
type Result struct {
	Passed       bool          `json:"passed"`
	Violations   []Violation   `json:"violations"`
	ResponseTime time.Duration `json:"response_time_ns"`
	BudgetMet    bool          `json:"budget_met"`
}

// CountBySeverity tallies violations per severity.
func (r Result) CountBySeverity() map[rules.Severity]int {
	counts := make(map[rules.Severity]int, 4)
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return counts
}

// HasCritical reports whether any violation is CRITICAL.
func (r Result) HasCritical() bool {
	for _, v := range r.Violations {
		if v.Severity == rules.SeverityCritical {
			return true
		}
	}
	return false
}

// Issue is one failed quality check from ValidatePost. Each issue type
// deducts its points once regardless of how many matches it has.
type Issue struct {
	Type       string         `json:"type"`
	Severity   rules.Severity `json:"severity"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion"`
	Deduction  float64        `json:"deduction"`
	Matches    []string       `json:"matches,omitempty"`
}

// PostResult is the outcome of ValidatePost.
type PostResult struct {
	Passed       bool          `json:"passed"`
	QualityScore float64       `json:"quality_score"`
	Issues       []Issue       `json:"issues"`
	ResponseTime time.Duration `json:"response_time_ns"`
	BudgetMet    bool          `json:"budget_met"`
}

// Stats is a point-in-time readout of validator activity.
type Stats struct {
	PreCalls        int64         `json:"pre_calls"`
	PostCalls       int64         `json:"post_calls"`
	ViolationsFound int64         `json:"violations_found"`
	IssuesFound     int64         `json:"issues_found"`
	FailOpen        int64         `json:"fail_open"`
	BudgetMisses    int64         `json:"budget_misses"`
	AvgPreTime      time.Duration `json:"avg_pre_time_ns"`
	AvgPostTime     time.Duration `json:"avg_post_time_ns"`
}
