package monitor

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

const testURL = "http://localhost:9191"

func TestNewModel(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, time.Hour)
	assert.Equal(t, testURL, model.serverURL)
	assert.Equal(t, 5*time.Second, model.interval)
	assert.Equal(t, time.Hour, model.period)
	assert.False(t, model.quitting)
}

func TestModel_Init(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)
	assert.NotNil(t, model.Init())
}

func TestModel_Update_QuitKey(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	updatedModel, cmd := model.Update(keyMsg)

	m := updatedModel.(Model)
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestModel_Update_RefreshKey(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	updatedModel, cmd := model.Update(keyMsg)

	m := updatedModel.(Model)
	assert.False(t, m.quitting)
	assert.NotNil(t, cmd)
}

func TestModel_Update_TickMsg(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	updatedModel, cmd := model.Update(tickMsg(time.Now()))

	m := updatedModel.(Model)
	assert.False(t, m.quitting)
	assert.NotNil(t, cmd)
}

func TestModel_Update_MetricsMsg(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	updatedModel, cmd := model.Update(metricsMsg(MetricsSnapshot{
		Health:     "ok",
		Samples:    3,
		Overall:    0.91,
		Violations: 4,
		PreRunP95:  12 * time.Millisecond,
	}))

	m := updatedModel.(Model)
	assert.Equal(t, 0.91, m.metrics.Overall)
	assert.Equal(t, []float64{0.91}, m.metrics.ScoreHistory)
	// The first readout has no baseline to diff against.
	assert.Equal(t, []float64{0}, m.metrics.ViolationHistory)
	assert.Equal(t, []float64{12}, m.metrics.LatencyHistory)
	assert.False(t, m.lastUpdate.IsZero())
	assert.Nil(t, cmd)

	updatedModel, _ = m.Update(metricsMsg(MetricsSnapshot{
		Health:     "ok",
		Samples:    4,
		Overall:    0.85,
		Violations: 7,
	}))
	m = updatedModel.(Model)
	assert.Equal(t, []float64{0.91, 0.85}, m.metrics.ScoreHistory)
	assert.Equal(t, []float64{0, 3}, m.metrics.ViolationHistory)
}

func TestModel_Update_MetricsMsgWithoutSamples(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	updatedModel, _ := model.Update(metricsMsg(MetricsSnapshot{Health: "ok"}))

	m := updatedModel.(Model)
	assert.Empty(t, m.metrics.ScoreHistory)
	assert.Len(t, m.metrics.LatencyHistory, 1)
}

func TestModel_Update_ErrMsg(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	updatedModel, cmd := model.Update(errMsg(fmt.Errorf("connection refused")))

	m := updatedModel.(Model)
	assert.ErrorContains(t, m.err, "connection refused")
	assert.Nil(t, cmd)

	// A later successful fetch clears the error.
	updatedModel, _ = m.Update(metricsMsg(MetricsSnapshot{Health: "ok"}))
	assert.NoError(t, updatedModel.(Model).err)
}

func TestAppendToHistory(t *testing.T) {
	var h []float64
	for i := 0; i < historySize+5; i++ {
		h = appendToHistory(h, float64(i))
	}
	assert.Len(t, h, historySize)
	assert.Equal(t, float64(5), h[0])
	assert.Equal(t, float64(historySize+4), h[len(h)-1])
}

func TestModel_View_WithMetrics(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)
	model.metrics = MetricsSnapshot{
		Health:        "ok",
		Version:       "1.2.3",
		Uptime:        2*time.Hour + 15*time.Minute,
		Telemetry:     "off",
		Samples:       12,
		Overall:       0.873,
		Security:      0.9,
		Quality:       0.8,
		Performance:   1,
		ScoreStatus:   "warning",
		Trend:         "improving",
		Excellent:     0.95,
		Warning:       0.7,
		PreCalls:      1500,
		PostCalls:     20,
		Violations:    42,
		AvgPreTime:    12300 * time.Microsecond,
		HookCount:     4,
		Interventions: 7,
		PreRunP95:     2 * time.Millisecond,
	}
	model.lastUpdate = time.Date(2024, 1, 1, 12, 34, 56, 0, time.UTC)

	view := model.View()

	assert.Contains(t, view, "gatekeeper Monitor")
	assert.Contains(t, view, "12:34:56")
	assert.Contains(t, view, "2h 15m")
	assert.Contains(t, view, "1.2.3")
	assert.Contains(t, view, "Truth Score")
	assert.Contains(t, view, "0.873")
	assert.Contains(t, view, "improving")
	assert.Contains(t, view, "90.0%")
	assert.Contains(t, view, "Validator")
	assert.Contains(t, view, "1.5k")
	assert.Contains(t, view, "12.3ms")
	assert.Contains(t, view, "Hooks")
	assert.Contains(t, view, "advisory")
	assert.Contains(t, view, "[q]")
	assert.Contains(t, view, "[r]")
}

func TestModel_View_WithError(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)
	model.err = fmt.Errorf("connection refused")

	view := model.View()

	assert.Contains(t, view, "Cannot reach gatekeeper")
	assert.Contains(t, view, "connection refused")
	assert.Contains(t, view, testURL)
	assert.Contains(t, view, "[q]")
	assert.Contains(t, view, "[r]")
}

func TestModel_View_NoData(t *testing.T) {
	model := NewModel(testURL, 5*time.Second, 0)

	view := model.View()

	assert.Contains(t, view, "gatekeeper Monitor")
	assert.Contains(t, view, "no data")
	assert.Contains(t, view, "[q]")
}

func TestGetStatusBadge(t *testing.T) {
	assert.Contains(t, getStatusBadge(MetricsSnapshot{}), "waiting")
	assert.Contains(t, getStatusBadge(MetricsSnapshot{Health: "shutting_down"}), "shutting_down")
	assert.Contains(t, getStatusBadge(MetricsSnapshot{Health: "ok", Critical: 1}), "CRITICAL")
	assert.Contains(t, getStatusBadge(MetricsSnapshot{Health: "ok", ScoreStatus: "warning"}), "WARN")
	assert.Contains(t, getStatusBadge(MetricsSnapshot{Health: "ok", ScoreStatus: "excellent"}), "HEALTHY")
}
