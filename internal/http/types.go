package http

import (
	"encoding/json"

	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	"github.com/fyrsmithlabs/gatekeeper/internal/scoring"
	"github.com/fyrsmithlabs/gatekeeper/internal/workflow"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidatePreRequest is the request body for POST /api/v1/validate/pre.
type ValidatePreRequest struct {
	Text string `json:"text"`
}

// ValidatePostRequest is the request body for POST /api/v1/validate/post.
// Result may be a string or any JSON object carrying a code field.
type ValidatePostRequest struct {
	Result json.RawMessage `json:"result"`
}

// HookRequest is the request body for POST /api/v1/hooks/pre and
// /api/v1/hooks/post. Result is only read by post hooks.
type HookRequest struct {
	Tool    string          `json:"tool"`
	Params  map[string]any  `json:"params"`
	Result  json.RawMessage `json:"result,omitempty"`
	Context hooks.Context   `json:"context,omitempty"`
}

// HookToggleRequest is the request body for POST /api/v1/hooks/toggle.
type HookToggleRequest struct {
	Phase   hooks.Phase `json:"phase"`
	ID      string      `json:"id"`
	Enabled bool        `json:"enabled"`
}

// ScoreRequest is the request body for POST /api/v1/score.
type ScoreRequest struct {
	Text string `json:"text"`
}

// VerifyRequest is the request body for POST /api/v1/verify. A zero
// Threshold uses the default of 0.95.
type VerifyRequest struct {
	Text      string  `json:"text"`
	Threshold float64 `json:"threshold"`
}

// DashboardResponse wraps the scoring dashboard with the configured
// thresholds so readers can render status bands.
type DashboardResponse struct {
	scoring.Dashboard
	Thresholds Thresholds `json:"thresholds"`
}

// Thresholds are the status classification bounds.
type Thresholds struct {
	Excellent float64 `json:"excellent"`
	Warning   float64 `json:"warning"`
	Critical  float64 `json:"critical"`
}

// WorkflowStartRequest is the request body for POST /api/v1/workflow/start.
type WorkflowStartRequest struct {
	Task string `json:"task"`
}

// PhaseRequest is the request body for POST /api/v1/workflow/validate.
type PhaseRequest struct {
	Phase   workflow.Phase `json:"phase"`
	Outputs map[string]any `json:"outputs"`
}

// WorkflowResponse is the response body for GET /api/v1/workflow.
type WorkflowResponse struct {
	Active   bool               `json:"active"`
	Workflow *workflow.Workflow `json:"workflow,omitempty"`
}

// OrchestrateRequest is the request body for POST /api/v1/orchestrate.
type OrchestrateRequest struct {
	Task       string `json:"task"`
	MaxRetries *int   `json:"max_retries,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
	Priority   string `json:"priority,omitempty"`
	MaxAgents  int    `json:"max_agents,omitempty"`
}
