package orchestrator

import (
	"fmt"
	"strings"
)

// Feedback block delimiters.
const (
	FeedbackMarker    = "--- VALIDATION FEEDBACK"
	FeedbackEndMarker = "--- END VALIDATION FEEDBACK ---"
)

// BuildFeedback renders the feedback block for a failed attempt.
func BuildFeedback(attempt int, issues []Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (attempt %d) ---\n", FeedbackMarker, attempt)
	b.WriteString("The previous attempt did not pass validation. Fix the following before resubmitting:\n")
	for i, is := range issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, is.Message)
		if is.Suggestion != "" {
			fmt.Fprintf(&b, "   Suggestion: %s\n", is.Suggestion)
		}
	}
	b.WriteString(FeedbackEndMarker)
	return b.String()
}

// StripFeedback removes a trailing feedback block from task.
func StripFeedback(task string) string {
	if i := strings.Index(task, FeedbackMarker); i >= 0 {
		return strings.TrimRight(task[:i], " \t\r\n")
	}
	return task
}

// WithFeedback returns task with any earlier feedback block replaced by one
// for attempt.
func WithFeedback(task string, attempt int, issues []Issue) string {
	return StripFeedback(task) + "\n\n" + BuildFeedback(attempt, issues)
}
