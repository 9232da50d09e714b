package output

import (
	"fmt"
	"strings"
)

// ScoreBar renders a visual bar for a 0-100 percentage such as a clear rate.
// Example: "████████░░ 80%"
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := fill(score/100.0, width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	var style func(string) string
	switch {
	case score >= 60:
		style = func(s string) string { return StyleSuccess.Render(s) }
	case score >= 30:
		style = func(s string) string { return StyleWarning.Render(s) }
	default:
		style = func(s string) string { return StyleError.Render(s) }
	}

	return fmt.Sprintf("%s %s", style(bar), StyleMuted.Render(fmt.Sprintf("%.0f%%", score)))
}

// Bar renders an unlabeled bar for value out of total. Used for rating
// distributions and per-step funnels.
func Bar(value, total float64, width int) string {
	if width <= 0 {
		width = 20
	}
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := fill(value/total, width)
	return StyleSuccess.Render(strings.Repeat("█", filled)) + StyleMuted.Render(strings.Repeat("░", width-filled))
}

// RiskBar renders a 0-1 failure rate; higher is worse.
func RiskBar(rate float64, width int) string {
	if width <= 0 {
		width = 10
	}
	filled := fill(rate, width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case rate >= 0.5:
		return StyleError.Render(bar)
	case rate >= 0.25:
		return StyleWarning.Render(bar)
	default:
		return StyleMuted.Render(bar)
	}
}

func fill(fraction float64, width int) int {
	n := int(fraction * float64(width))
	if n > width {
		return width
	}
	if n < 0 {
		return 0
	}
	return n
}

// TrendArrow returns a styled indicator for a change in percentage points.
// higherIsBetter decides whether an increase is rendered as good or bad.
func TrendArrow(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	var arrow string
	if delta > 0 {
		arrow = fmt.Sprintf("▲ +%.0fpt", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.0fpt", delta)
	}

	if (delta > 0) == higherIsBetter {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
