package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	fetchTimeout    = 5 * time.Second
)

// Model represents the BubbleTea dashboard model
type Model struct {
	serverURL  string
	interval   time.Duration
	period     time.Duration
	lastUpdate time.Time
	metrics    MetricsSnapshot
	err        error
	quitting   bool

	// Component score bars
	securityProgress    progress.Model
	qualityProgress     progress.Model
	performanceProgress progress.Model
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	// Header style - bright cyan background, bold black text
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	// Section title style - bold bright cyan
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	// Dim style - for units and secondary info
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard polling the gatekeeper server at serverURL
// every interval. Scores are averaged over period; zero covers the whole
// history.
func NewModel(serverURL string, interval, period time.Duration) Model {
	bar := func() progress.Model {
		return progress.New(
			progress.WithGradient("#ff0000", "#00ff00"),
			progress.WithWidth(40),
		)
	}

	return Model{
		serverURL:           serverURL,
		interval:            interval,
		period:              period,
		securityProgress:    bar(),
		qualityProgress:     bar(),
		performanceProgress: bar(),
		metrics: MetricsSnapshot{
			ScoreHistory:     make([]float64, 0, historySize),
			ViolationHistory: make([]float64, 0, historySize),
			LatencyHistory:   make([]float64, 0, historySize),
		},
	}
}

// getScoreBadge returns a colored badge for a score status.
func getScoreBadge(status string) string {
	switch status {
	case "excellent", "good":
		return healthyStyle.Render("[✓]")
	case "warning":
		return warningStyle.Render("[⚠]")
	case "critical":
		return errorStyle.Render("[✗]")
	default:
		return dimStyle.Render("[-]")
	}
}

// getStatusBadge returns the overall server badge.
func getStatusBadge(m MetricsSnapshot) string {
	switch {
	case m.Health == "":
		return dimStyle.Render("… waiting")
	case m.Health != "ok":
		return warningStyle.Render("⚠ " + m.Health)
	case m.Critical > 0 || m.ScoreStatus == "critical":
		return errorStyle.Render("✗ CRITICAL")
	case m.ScoreStatus == "warning" || m.FailOpen > 0:
		return warningStyle.Render("⚠ WARN")
	default:
		return healthyStyle.Render("✓ HEALTHY")
	}
}

func trendArrow(trend string) string {
	switch trend {
	case "improving":
		return healthyStyle.Render("↑ improving")
	case "declining":
		return errorStyle.Render("↓ declining")
	case "stable":
		return dimStyle.Render("→ stable")
	default:
		return dimStyle.Render("-")
	}
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}

	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type metricsMsg MetricsSnapshot
type errMsg error

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchMetrics(m.serverURL, m.period),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchMetrics reads one snapshot from the server.
func fetchMetrics(serverURL string, period time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		snap, err := NewMetricsClient(serverURL).Snapshot(ctx, period)
		if err != nil {
			return errMsg(err)
		}
		return metricsMsg(snap)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchMetrics(m.serverURL, m.period)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetchMetrics(m.serverURL, m.period),
		)

	case metricsMsg:
		next := MetricsSnapshot(msg)

		// Violations are plotted per refresh, not cumulatively.
		var delta float64
		if !m.lastUpdate.IsZero() && next.Violations >= m.metrics.Violations {
			delta = float64(next.Violations - m.metrics.Violations)
		}
		next.ScoreHistory = m.metrics.ScoreHistory
		if next.Samples > 0 {
			next.ScoreHistory = appendToHistory(m.metrics.ScoreHistory, next.Overall)
		}
		next.ViolationHistory = appendToHistory(m.metrics.ViolationHistory, delta)
		next.LatencyHistory = appendToHistory(m.metrics.LatencyHistory, float64(next.PreRunP95)/float64(time.Millisecond))

		m.metrics = next
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render("gatekeeper Monitor")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Cannot reach gatekeeper") + "\n"
	content += "\n"
	content += dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL) + "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("Start the server with: gatekeeper serve") + "\n"
	content += "\n"
	content += footerStyle.Render("[q] quit  [r] retry") + "\n"

	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderDashboard() string {
	var content string
	s := m.metrics

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	header := headerStyle.Render(" gatekeeper Monitor ")
	headerLine := fmt.Sprintf("%s   %s   %s   %s   %s",
		getStatusBadge(s),
		dimStyle.Render("Uptime:"),
		valueStyle.Render(FormatUptime(s.Uptime)),
		dimStyle.Render(s.Version),
		dimStyle.Render(lastUpdateStr))

	content += header + "\n"
	content += headerLine + "\n"

	// Truth score
	content += "\n" + sectionStyle.Render("┃ Truth Score") + "\n"
	if s.Samples == 0 {
		content += labelStyle.Render("  Overall: ") + dimStyle.Render("no data") + "\n"
	} else {
		content += labelStyle.Render("  Overall: ") +
			valueStyle.Render(FormatScore(s.Overall)) +
			" " + getScoreBadge(s.ScoreStatus) +
			" " + trendArrow(s.Trend) +
			"   " + createSparkline(s.ScoreHistory) + "\n"
		content += labelStyle.Render("  Samples: ") + valueStyle.Render(fmt.Sprintf("%d", s.Samples)) +
			dimStyle.Render("  critical: ") + valueStyle.Render(fmt.Sprintf("%d", s.Critical)) +
			dimStyle.Render(fmt.Sprintf("  bands: excellent≥%.2f warning≥%.2f", s.Excellent, s.Warning)) + "\n"
		content += labelStyle.Render("  Security:    ") + m.securityProgress.ViewAs(clamp(s.Security)) +
			" " + dimStyle.Render(FormatPercentage(s.Security)) + "\n"
		content += labelStyle.Render("  Quality:     ") + m.qualityProgress.ViewAs(clamp(s.Quality)) +
			" " + dimStyle.Render(FormatPercentage(s.Quality)) + "\n"
		content += labelStyle.Render("  Performance: ") + m.performanceProgress.ViewAs(clamp(s.Performance)) +
			" " + dimStyle.Render(FormatPercentage(s.Performance)) + "\n"
	}

	// Validator
	content += "\n" + sectionStyle.Render("┃ Validator") + "\n"
	content += labelStyle.Render("  Calls: ") +
		valueStyle.Render(FormatCount(s.PreCalls)) + dimStyle.Render(" pre  ") +
		valueStyle.Render(FormatCount(s.PostCalls)) + dimStyle.Render(" post") + "\n"
	content += labelStyle.Render("  Violations: ") +
		valueStyle.Render(FormatCount(s.Violations)) +
		dimStyle.Render("  issues: ") + valueStyle.Render(FormatCount(s.Issues)) +
		"   " + createSparkline(s.ViolationHistory) + "\n"
	failOpen := valueStyle.Render(FormatCount(s.FailOpen))
	if s.FailOpen > 0 {
		failOpen = warningStyle.Render(FormatCount(s.FailOpen))
	}
	content += labelStyle.Render("  Avg pre: ") + valueStyle.Render(FormatLatency(s.AvgPreTime)) +
		dimStyle.Render("  over budget: ") + valueStyle.Render(FormatCount(s.BudgetMisses)) +
		dimStyle.Render("  fail-open: ") + failOpen + "\n"

	// Hooks
	mode := "advisory"
	if s.Strict {
		mode = "strict"
	}
	content += "\n" + sectionStyle.Render("┃ Hooks") + "\n"
	content += labelStyle.Render("  Registered: ") + valueStyle.Render(fmt.Sprintf("%d", s.HookCount)) +
		dimStyle.Render("  mode: ") + valueStyle.Render(mode) + "\n"
	content += labelStyle.Render("  Interventions: ") + valueStyle.Render(FormatCount(s.Interventions)) +
		dimStyle.Render("  errors: ") + valueStyle.Render(FormatCount(s.HookErrors)) + "\n"
	content += labelStyle.Render("  Run p95: ") +
		valueStyle.Render(FormatLatency(s.PreRunP95)) + dimStyle.Render(" pre  ") +
		valueStyle.Render(FormatLatency(s.PostRunP95)) + dimStyle.Render(" post") +
		"   " + createSparkline(s.LatencyHistory) + "\n"

	content += "\n" + sectionStyle.Render("┃ System") + "\n"
	content += labelStyle.Render("  Telemetry: ") + valueStyle.Render(s.Telemetry) + "\n"

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))

	content += "\n" + footer

	return containerStyle.Render(content)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
