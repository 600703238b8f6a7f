package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	"github.com/fyrsmithlabs/gatekeeper/internal/hooks"
	httpserver "github.com/fyrsmithlabs/gatekeeper/internal/http"
)

// MetricsClient reads the gatekeeper HTTP API.
type MetricsClient struct {
	baseURL string
	client  *http.Client
}

// NewMetricsClient creates a new metrics client
func NewMetricsClient(baseURL string) *MetricsClient {
	return &MetricsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// Health fetches /health.
func (c *MetricsClient) Health(ctx context.Context) (httpserver.HealthResponse, error) {
	var out httpserver.HealthResponse
	err := c.get(ctx, "/health", nil, &out)
	return out, err
}

// Status fetches /api/v1/status.
func (c *MetricsClient) Status(ctx context.Context) (engine.Status, error) {
	var out engine.Status
	err := c.get(ctx, "/api/v1/status", nil, &out)
	return out, err
}

// Dashboard fetches /api/v1/dashboard for the given period. A non-positive
// period asks for the whole history.
func (c *MetricsClient) Dashboard(ctx context.Context, period time.Duration) (httpserver.DashboardResponse, error) {
	var q url.Values
	if period > 0 {
		q = url.Values{"period": {period.String()}}
	}
	var out httpserver.DashboardResponse
	err := c.get(ctx, "/api/v1/dashboard", q, &out)
	return out, err
}

func (c *MetricsClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr httpserver.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Snapshot fetches everything the dashboard renders in one pass.
func (c *MetricsClient) Snapshot(ctx context.Context, period time.Duration) (MetricsSnapshot, error) {
	health, err := c.Health(ctx)
	if err != nil {
		return MetricsSnapshot{}, err
	}
	status, err := c.Status(ctx)
	if err != nil {
		return MetricsSnapshot{}, err
	}
	dash, err := c.Dashboard(ctx, period)
	if err != nil {
		return MetricsSnapshot{}, err
	}
	return newSnapshot(health, status, dash), nil
}

// MetricsSnapshot holds the current readout.
type MetricsSnapshot struct {
	Health    string
	Version   string
	Uptime    time.Duration
	Telemetry string

	// Scoring
	Samples     int
	Overall     float64
	Security    float64
	Quality     float64
	Performance float64
	ScoreStatus string
	Trend       string
	Critical    int
	Excellent   float64
	Warning     float64

	// Validator
	PreCalls     int64
	PostCalls    int64
	Violations   int64
	Issues       int64
	FailOpen     int64
	BudgetMisses int64
	AvgPreTime   time.Duration

	// Hooks
	Strict        bool
	HookCount     int
	Interventions int64
	HookErrors    int64
	PreRunP95     time.Duration
	PostRunP95    time.Duration

	// Historical data for sparklines (last N points)
	ScoreHistory     []float64
	ViolationHistory []float64
	LatencyHistory   []float64
}

func newSnapshot(health httpserver.HealthResponse, st engine.Status, dash httpserver.DashboardResponse) MetricsSnapshot {
	s := MetricsSnapshot{
		Health:       health.Status,
		Version:      health.Version,
		Uptime:       st.Uptime,
		Telemetry:    telemetryState(st),
		Samples:      dash.Samples,
		Overall:      dash.OverallScore,
		Security:     dash.Components.Security,
		Quality:      dash.Components.Quality,
		Performance:  dash.Components.Performance,
		ScoreStatus:  string(dash.Status),
		Trend:        string(dash.Trend),
		Critical:     dash.Critical,
		Excellent:    dash.Thresholds.Excellent,
		Warning:      dash.Thresholds.Warning,
		PreCalls:     st.Validator.PreCalls,
		PostCalls:    st.Validator.PostCalls,
		Violations:   st.Validator.ViolationsFound,
		Issues:       st.Validator.IssuesFound,
		FailOpen:     st.Validator.FailOpen,
		BudgetMisses: st.Validator.BudgetMisses,
		AvgPreTime:   st.Validator.AvgPreTime,
		Strict:       st.Hooks.Strict,
		HookCount:    len(st.Hooks.Pre) + len(st.Hooks.Post),
		PreRunP95:    st.Hooks.PreRuns.P95,
		PostRunP95:   st.Hooks.PostRuns.P95,
	}
	for _, hs := range [][]hooks.HookMetrics{st.Hooks.Pre, st.Hooks.Post} {
		for _, h := range hs {
			s.Interventions += h.Flagged
			s.HookErrors += h.Errors
		}
	}
	return s
}

func telemetryState(st engine.Status) string {
	switch {
	case !st.Telemetry.Enabled:
		return "off"
	case st.Telemetry.Degraded:
		return "degraded"
	default:
		return "on"
	}
}
