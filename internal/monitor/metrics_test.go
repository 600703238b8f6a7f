package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	httpserver "github.com/fyrsmithlabs/gatekeeper/internal/http"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
)

// newGatekeeper serves the real API over a default engine.
func newGatekeeper(t *testing.T) (*engine.Engine, *httptest.Server) {
	t.Helper()
	eng, err := engine.New(context.Background(), config.Default(), engine.WithLogger(logging.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = eng.Shutdown(context.Background())
	})

	srv, err := httpserver.NewServer(eng, logging.Nop(), &httpserver.Config{Version: "test"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return eng, ts
}

func TestNewMetricsClient(t *testing.T) {
	client := NewMetricsClient("http://localhost:9191/")
	assert.Equal(t, "http://localhost:9191", client.baseURL)
	assert.NotNil(t, client.client)
}

func TestMetricsClient_Snapshot(t *testing.T) {
	eng, ts := newGatekeeper(t)
	ctx := context.Background()

	_, err := eng.ValidatePre(ctx, `const password = "hunter2hunter2"`)
	require.NoError(t, err)
	_, err = eng.Score(ctx, "const sum = (a, b) => a + b")
	require.NoError(t, err)

	snap, err := NewMetricsClient(ts.URL).Snapshot(ctx, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "ok", snap.Health)
	assert.Equal(t, "test", snap.Version)
	assert.Equal(t, 1, snap.Samples)
	assert.Positive(t, snap.Overall)
	assert.NotEmpty(t, snap.ScoreStatus)
	assert.Equal(t, 0.95, snap.Excellent)
	assert.GreaterOrEqual(t, snap.PreCalls, int64(1))
	assert.Positive(t, snap.HookCount)
	assert.Equal(t, "off", snap.Telemetry)
}

func TestMetricsClient_Dashboard_Empty(t *testing.T) {
	_, ts := newGatekeeper(t)

	dash, err := NewMetricsClient(ts.URL).Dashboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, dash.Samples)
	assert.Equal(t, "no_data", string(dash.Status))
}

func TestMetricsClient_PeriodQuery(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("period")
		json.NewEncoder(w).Encode(httpserver.DashboardResponse{})
	}))
	defer server.Close()

	_, err := NewMetricsClient(server.URL).Dashboard(context.Background(), 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1m30s", got)
}

func TestMetricsClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewMetricsClient(server.URL).Health(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestMetricsClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(httpserver.ErrorResponse{Error: "engine is shutting down"})
	}))
	defer server.Close()

	_, err := NewMetricsClient(server.URL).Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "engine is shutting down")
}

func TestMetricsClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	_, err := NewMetricsClient(server.URL).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestFetchMetrics(t *testing.T) {
	_, ts := newGatekeeper(t)

	msg := fetchMetrics(ts.URL, 0)()
	snap, ok := msg.(metricsMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "ok", snap.Health)

	ts.Close()
	_, ok = fetchMetrics(ts.URL, 0)().(errMsg)
	assert.True(t, ok)
}
