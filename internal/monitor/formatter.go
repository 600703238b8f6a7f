package monitor

import (
	"fmt"
	"time"
)

// FormatScore formats a 0-1 score with three decimals.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.3f", score)
}

// FormatLatency formats a duration as "X.Xms" or "X.Xs"
func FormatLatency(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 1.0 {
		return fmt.Sprintf("%.1fms", seconds*1000)
	}
	return fmt.Sprintf("%.1fs", seconds)
}

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatCount abbreviates large counters as "1.2k" or "3.4M".
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatUptime formats uptime as "Xh Ym" or "Xm"
func FormatUptime(d time.Duration) string {
	return FormatDuration(int64(d / time.Second))
}

// FormatDuration formats duration in seconds to "Xh Ym" or "Xm"
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
