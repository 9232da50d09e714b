package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/questwatch/internal/analytics"
	"github.com/blackwell-systems/questwatch/internal/analyzer"
	"github.com/blackwell-systems/questwatch/internal/quest"
)

// missing is shown for values that could not be computed.
const missing = "-"

// FormatFloat renders an optional average with the given decimals.
func FormatFloat(v *float64, decimals int) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

// FormatMinutes renders an optional whole-minute duration.
func FormatMinutes(v *int) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%d min", *v)
}

// FormatRate renders a 0-1 ratio as a whole percentage.
func FormatRate(r float64) string {
	return fmt.Sprintf("%.0f%%", r*100)
}

// FormatRating renders an optional 1-5 rating as stars.
func FormatRating(v *int) string {
	if v == nil {
		return StyleMuted.Render("no rating")
	}
	n := min(max(*v, 0), 5)
	return StyleWarning.Render(strings.Repeat("★", n)) + StyleMuted.Render(strings.Repeat("☆", 5-n))
}

// unavailable renders the placeholder for a section whose source failed.
func unavailable(reason string) string {
	msg := " unavailable"
	if reason != "" {
		msg += ": " + reason
	}
	return StyleError.Render(msg) + "\n"
}

// SummaryTable renders the quest overview rows. Columns whose source failed
// are marked with "!".
func SummaryTable(rows []analytics.QuestSummary) *Table {
	tbl := NewTable("QUEST", "TITLE", "PLAYS", "PLAYERS", "CLEAR", "AVG TIME", "RATING", "REVIEWS")
	for _, r := range rows {
		plays := fmt.Sprintf("%d", r.PlayCount)
		clearRate := fmt.Sprintf("%d%%", r.ClearRate)
		players := fmt.Sprintf("%d", r.UniquePlayers)
		duration := FormatMinutes(r.AvgDurationMin)
		if r.Sources.Sessions != analytics.StatusOK {
			plays, clearRate, players, duration = flag(), flag(), flag(), flag()
		}

		rating := FormatFloat(r.AvgRating, 2)
		reviews := fmt.Sprintf("%d", r.ReviewCount)
		if r.Sources.Reviews != analytics.StatusOK {
			rating, reviews = flag(), flag()
		}

		title := r.Title
		if title == "" {
			title = StyleMuted.Render("(untitled)")
		}
		tbl.AddRow(r.QuestID, title, plays, players, clearRate, duration, rating, reviews)
	}
	return tbl
}

func flag() string {
	return StyleError.Render("!")
}

// Detail renders the full snapshot of one quest.
func Detail(d analytics.QuestDetailAnalytics) string {
	var sb strings.Builder

	title := d.Title
	if title == "" {
		title = d.QuestID
	}
	fmt.Fprintf(&sb, "\n %s  %s\n", StyleBold.Render(title),
		StyleMuted.Render(fmt.Sprintf("(%s, window %s)", d.QuestID, d.Window)))

	sb.WriteString(Section("Summary") + "\n")
	if !d.Summary.OK() {
		sb.WriteString(unavailable(d.Summary.Error))
	} else {
		m := d.Summary.Data
		writeMetric(&sb, "Plays", fmt.Sprintf("%d", m.PlayCount))
		writeMetric(&sb, "Unique players", fmt.Sprintf("%d", m.UniquePlayers))
		writeMetric(&sb, "Clears", fmt.Sprintf("%d", m.ClearCount))
		writeMetric(&sb, "Clear rate", ScoreBar(float64(m.ClearRate), 20))
		writeMetric(&sb, "Avg clear time", FormatMinutes(m.AvgDurationMin))
		writeMetric(&sb, "Avg hints", FormatFloat(m.AvgHints, 1))
		writeMetric(&sb, "Avg wrong answers", FormatFloat(m.AvgWrongs, 1))
	}

	sb.WriteString(Section("Funnel") + "\n")
	sb.WriteString(funnel(d.Steps))

	sb.WriteString(Section("Reviews") + "\n")
	sb.WriteString(reviews(d.Reviews))

	sb.WriteString(Section("Gameplay") + "\n")
	sb.WriteString(gameplay(d.GameplayEvents))

	sb.WriteString(Section("Feedback") + "\n")
	sb.WriteString(feedback(d.FeedbackStats))

	return sb.String()
}

func writeMetric(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, " %s %s\n", StyleLabel.Render(label), value)
}

func funnel(s analytics.Section[[]analyzer.FunnelStep]) string {
	if !s.OK() {
		return unavailable(s.Error)
	}
	if len(s.Data) == 0 {
		return StyleMuted.Render(" no step definitions") + "\n"
	}

	tbl := NewTable("#", "STEP", "REACHED", "", "DROP", "HINTS*", "WRONG*")
	top := float64(s.Data[0].Reached)
	for _, st := range s.Data {
		tbl.AddRow(
			fmt.Sprintf("%d", st.Step),
			st.Name,
			fmt.Sprintf("%d", st.Reached),
			Bar(float64(st.Reached), top, 16),
			FormatRate(st.DropRate),
			StyleEstimate.Render(FormatFloat(st.AvgHints, 1)),
			StyleEstimate.Render(FormatFloat(st.AvgWrongs, 1)),
		)
	}
	return indent(tbl.Render()) + StyleMuted.Render(" * estimated from per-session totals") + "\n"
}

func reviews(s analytics.Section[analyzer.ReviewStats]) string {
	if !s.OK() {
		return unavailable(s.Error)
	}
	r := s.Data
	var sb strings.Builder
	writeMetric(&sb, "Average rating", FormatFloat(r.AvgRating, 2))
	writeMetric(&sb, "Rated reviews", fmt.Sprintf("%d", r.Count))

	peak := 0
	for _, n := range r.Distribution {
		peak = max(peak, n)
	}
	for star := 5; star >= 1; star-- {
		n := r.Distribution[star]
		fmt.Fprintf(&sb, "   %d★ %s %d\n", star, Bar(float64(n), float64(peak), 20), n)
	}

	if len(r.Latest) > 0 {
		sb.WriteString("\n")
		for _, rv := range r.Latest {
			line := fmt.Sprintf(" %s %s", FormatRating(rv.Rating), StyleMuted.Render(formatDate(rv.CreatedAt)))
			if rv.Comment != "" {
				line += "  " + rv.Comment
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func gameplay(s analytics.Section[analyzer.EventStats]) string {
	if !s.Usable() {
		return unavailable(s.Error)
	}
	e := s.Data
	var sb strings.Builder
	if s.Status == analytics.StatusPartial {
		writeMetric(&sb, "Hint usage", StyleError.Render("unavailable"))
	} else {
		writeMetric(&sb, "Hint usage", FormatRate(e.HintUsageRate))
	}
	writeMetric(&sb, "Arrival failures", FormatRate(e.ArrivalFailRate))

	if len(e.DropOffByMode) > 0 {
		tbl := NewTable("DROP-OFF MODE", "ABANDONS")
		for _, m := range e.DropOffByMode {
			tbl.AddRow(m.Mode, fmt.Sprintf("%d", m.Count))
		}
		sb.WriteString("\n" + indent(tbl.Render()))
	}

	if len(e.PuzzleErrorRate) > 0 {
		tbl := NewTable("SPOT", "SUBMITS", "WRONG", "ERROR RATE", "")
		for _, sp := range e.PuzzleErrorRate {
			tbl.AddRow(sp.SpotID,
				fmt.Sprintf("%d", sp.TotalSubmits),
				fmt.Sprintf("%d", sp.WrongSubmits),
				FormatRate(sp.Rate),
				RiskBar(sp.Rate, 10),
			)
		}
		sb.WriteString("\n" + indent(tbl.Render()))
	}
	return sb.String()
}

func feedback(s analytics.Section[analyzer.FeedbackStats]) string {
	if !s.OK() {
		return unavailable(s.Error)
	}
	f := s.Data
	if f.Total == 0 {
		return StyleMuted.Render(" no feedback") + "\n"
	}

	var sb strings.Builder
	tbl := NewTable("CATEGORY", "COUNT", "")
	for _, c := range f.ByCategory {
		tbl.AddRow(c.Label, fmt.Sprintf("%d", c.Count), Bar(float64(c.Count), float64(f.Total), 16))
	}
	sb.WriteString(indent(tbl.Render()))

	if len(f.Recent) > 0 {
		sb.WriteString("\n")
		for _, fb := range f.Recent {
			label := quest.Category(fb.Category).Label()
			fmt.Fprintf(&sb, " %s %s  %s\n",
				StyleMuted.Render(formatDate(fb.CreatedAt)), StyleWarning.Render("["+label+"]"), fb.Message)
		}
	}
	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "----------"
	}
	return t.Format("2006-01-02")
}
