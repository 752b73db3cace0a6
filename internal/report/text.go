package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/stats"
)

const (
	barWidth   = 15
	ruleWidth  = 40
	maxRows    = 30
	titleWidth = 50
)

// Text renders reports for a terminal. Colours are only emitted when the
// writer is a terminal that supports them.
type Text struct {
	w io.Writer

	bold      lipgloss.Style
	underline lipgloss.Style
	dim       lipgloss.Style
	green     lipgloss.Style
	yellow    lipgloss.Style
	red       lipgloss.Style
	cyan      lipgloss.Style
	magenta   lipgloss.Style
}

// NewText creates a text renderer writing to w.
func NewText(w io.Writer) *Text {
	r := lipgloss.NewRenderer(w)
	return &Text{
		w:         w,
		bold:      r.NewStyle().Bold(true),
		underline: r.NewStyle().Bold(true).Underline(true),
		dim:       r.NewStyle().Faint(true),
		green:     r.NewStyle().Foreground(lipgloss.Color("2")),
		yellow:    r.NewStyle().Foreground(lipgloss.Color("3")),
		red:       r.NewStyle().Foreground(lipgloss.Color("1")),
		cyan:      r.NewStyle().Foreground(lipgloss.Color("6")),
		magenta:   r.NewStyle().Foreground(lipgloss.Color("5")),
	}
}

func (t *Text) flush(sb *strings.Builder) error {
	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *Text) rateStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= stats.ThresholdHealthy:
		return t.green
	case rate >= stats.ThresholdAttention:
		return t.yellow
	default:
		return t.red
	}
}

func (t *Text) rate(rate float64) string {
	return t.rateStyle(rate).Render(fmt.Sprintf("%.1f%%", rate))
}

// Bar draws rate as a fixed-width bar of filled and empty cells.
func Bar(rate float64) string {
	filled := int(math.Round(rate / 100 * barWidth))
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func rule() string {
	return strings.Repeat("─", ruleWidth)
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, dashboard.Truncate(s, width))
}

// CI renders a CI report.
func (t *Text) CI(r dashboard.CIReport) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", t.bold.Render("CI Status: "+r.Window.Label))
	if r.Branch != "" {
		fmt.Fprintf(&sb, "%s %s\n", t.dim.Render("Branch:"), r.Branch)
	}
	sb.WriteString("\n")
	t.auth(&sb, r.Auth)

	for _, sec := range r.Sections {
		t.section(&sb, sec)
	}
	for _, src := range r.Empty {
		fmt.Fprintf(&sb, "%s  %s\n\n", t.underline.Render(src), t.dim.Render("No workflow runs found."))
	}
	t.summary(&sb, r.Summary, len(r.Sections))
	t.warnings(&sb, r.Warnings)
	return t.flush(&sb)
}

func (t *Text) auth(sb *strings.Builder, lines []dashboard.AuthLine) {
	for _, a := range lines {
		if a.Authenticated {
			fmt.Fprintf(sb, "  %s %s %s\n", t.green.Render("✓"), a.Provider, t.dim.Render("("+a.User+")"))
			continue
		}
		fmt.Fprintf(sb, "  %s %s %s\n", t.red.Render("✗"), a.Provider, t.dim.Render("not authenticated: "+a.Error))
	}
	sb.WriteString("\n")
}

func (t *Text) section(sb *strings.Builder, sec dashboard.Section) {
	o := sec.Overall
	fmt.Fprintf(sb, "%s  %s %s (%d/%d concluded runs succeeded)\n",
		t.underline.Render(sec.Source), t.rate(o.SuccessRate),
		t.rateStyle(o.SuccessRate).Render(sec.Health), o.Success+o.Cancelled, o.Total)
	if o.Total == 0 {
		fmt.Fprintf(sb, "  %s\n\n", t.dim.Render("No runs in this period."))
		return
	}

	fmt.Fprintf(sb, "  %s\n", t.dim.Render(fmt.Sprintf("%-32s %5s %5s %5s %6s %7s", "Workflow", "Runs", "Pass", "Fail", "Cancel", "Rate")))
	for i, g := range sec.Groups {
		if i == maxRows {
			fmt.Fprintf(sb, "  %s\n", t.dim.Render(fmt.Sprintf("... and %d more", len(sec.Groups)-maxRows)))
			break
		}
		fmt.Fprintf(sb, "  %s %5d %5d %5d %6d %7s\n", pad(g.Name, 32), g.Total, g.Success, g.Failed, g.Cancelled,
			t.rateStyle(g.SuccessRate).Render(fmt.Sprintf("%6.1f%%", g.SuccessRate)))
	}

	fmt.Fprintf(sb, "\n  Latest: %s, %s, %s\n",
		t.red.Render(fmt.Sprintf("%d failing", sec.Status.Failing)),
		t.yellow.Render(fmt.Sprintf("%d in progress", sec.Status.InProgress)),
		t.green.Render(fmt.Sprintf("%d passing", sec.Status.Passing)))
	for _, run := range sec.Latest {
		fmt.Fprintf(sb, "    %s %s %s\n", t.runIcon(run), pad(run.Group, 32), t.dim.Render(run.Title))
	}
	sb.WriteString("\n")
}

func (t *Text) runIcon(r domain.RunRecord) string {
	switch stats.Classify(r) {
	case domain.OutcomeSuccess:
		return t.green.Render("✓")
	case domain.OutcomeFailure:
		return t.red.Render("✗")
	case domain.OutcomeCancelled:
		return t.dim.Render("○")
	}
	if stats.IsInFlight(r) {
		return t.yellow.Render("●")
	}
	return "?"
}

func (t *Text) summary(sb *strings.Builder, s dashboard.Summary, sections int) {
	fmt.Fprintf(sb, "%s\n", t.underline.Render("Summary"))
	if s.Overall.Total == 0 {
		fmt.Fprintf(sb, "  Overall: %s\n", t.dim.Render(stats.HealthNoData+", no runs in this period"))
		return
	}
	fmt.Fprintf(sb, "  Overall: %s %s (%d runs across %d source(s))\n",
		t.rate(s.Overall.SuccessRate), t.rateStyle(s.Overall.SuccessRate).Render(s.Health), s.Overall.Total, sections)

	if len(s.Attention.Trouble) > 0 {
		fmt.Fprintf(sb, "\n  %s\n", t.bold.Render("Workflows needing attention:"))
		for _, g := range s.Attention.Trouble {
			fmt.Fprintf(sb, "    %s %s %s (%d runs, %d failed)\n", t.red.Render("✗"), pad(g.Name, 32), t.rate(g.SuccessRate), g.Total, g.Failed)
		}
	}
	if len(s.Attention.AlwaysFailing) > 0 {
		fmt.Fprintf(sb, "\n  %s\n", t.bold.Render("Always failing:"))
		for _, g := range s.Attention.AlwaysFailing {
			fmt.Fprintf(sb, "    %s %s (%d failures)\n", t.red.Render("✗"), g.Name, g.Failed)
		}
	}
	if len(s.Attention.HighVolume) > 0 {
		fmt.Fprintf(sb, "\n  %s\n", t.bold.Render("High-volume workflows with failures:"))
		for _, g := range s.Attention.HighVolume {
			fmt.Fprintf(sb, "    %s %s %s (%d of %d failed)\n", t.yellow.Render("!"), pad(g.Name, 32), t.rate(g.SuccessRate), g.Failed, g.Total)
		}
	}

	sb.WriteString("\n")
	t.week(sb, s.Daily, s.Trend)

	var rec lipgloss.Style
	switch s.Health {
	case stats.HealthHealthy:
		rec = t.green
	case stats.HealthAttention:
		rec = t.yellow
	default:
		rec = t.red
	}
	fmt.Fprintf(sb, "\n  %s\n", rec.Render(s.Recommendation))
}

var arrows = map[stats.TrendDirection]string{
	stats.TrendImproving: "↑",
	stats.TrendDeclining: "↓",
	stats.TrendStable:    "→",
}

func (t *Text) week(sb *strings.Builder, days []stats.DailyRate, trend *stats.TrendSummary) {
	fmt.Fprintf(sb, "%s\n", t.underline.Render("Week Trend"))
	var prev *float64
	for _, d := range days {
		rate, ok := d.Rate()
		if !ok {
			fmt.Fprintf(sb, "  %s %s  %s\n", d.Label, t.dim.Render(d.Date), t.dim.Render("no data"))
			continue
		}
		arrow := " "
		if prev != nil {
			arrow = arrows[stats.TrendLabel(*prev, rate)]
		}
		fmt.Fprintf(sb, "  %s %s  %s %s %s %s\n", d.Label, t.dim.Render(d.Date),
			t.rateStyle(rate).Render(Bar(rate)), t.rate(rate), arrow, t.dim.Render(fmt.Sprintf("(%d runs)", d.Total)))
		prev = &rate
	}
	if trend == nil {
		return
	}
	label := strings.ToUpper(string(trend.Direction[:1])) + string(trend.Direction[1:])
	style := t.yellow
	switch trend.Direction {
	case stats.TrendImproving:
		style = t.green
	case stats.TrendDeclining:
		style = t.red
	}
	fmt.Fprintf(sb, "  %s (%+.1f%% from %s to %s)\n", style.Render(label), trend.Delta, trend.From, trend.To)
}

func (t *Text) warnings(sb *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s\n", t.yellow.Render("Warnings:"))
	for _, w := range warnings {
		fmt.Fprintf(sb, "  ! %s\n", w)
	}
}

// Inspection renders a workflow inspection.
func (t *Text) Inspection(ins dashboard.Inspection) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", t.bold.Render("Inspecting workflow: ")+t.cyan.Render(ins.Query), rule())

	if !ins.Found {
		fmt.Fprintf(&sb, "%s\n", t.yellow.Render(fmt.Sprintf("No workflows found matching %q.", ins.Query)))
		for _, a := range ins.Available {
			fmt.Fprintf(&sb, "\nAvailable %s workflows:\n", a.Source)
			for _, name := range a.Names {
				fmt.Fprintf(&sb, "  - %s\n", name)
			}
		}
		t.warnings(&sb, ins.Warnings)
		return t.flush(&sb)
	}

	s := ins.Stats
	fmt.Fprintf(&sb, "%s %s\n\n", t.dim.Render("Source:"), ins.Source)
	fmt.Fprintf(&sb, "  Workflow: %s\n", t.bold.Render(s.Name))
	fmt.Fprintf(&sb, "  Total runs: %d\n", s.Total)
	fmt.Fprintf(&sb, "  %s, %s, %s\n\n",
		t.green.Render(fmt.Sprintf("%d passed", s.Success)),
		t.red.Render(fmt.Sprintf("%d failed", s.Failed)),
		t.dim.Render(fmt.Sprintf("%d cancelled", s.Cancelled)))

	if s.Failed == 0 {
		fmt.Fprintf(&sb, "%s\n", t.green.Render("No failures found for this workflow."))
		t.warnings(&sb, ins.Warnings)
		return t.flush(&sb)
	}

	for _, f := range ins.Failures {
		t.failedRun(&sb, f)
	}
	if ins.Pattern != nil {
		t.pattern(&sb, *ins.Pattern)
	}
	t.warnings(&sb, ins.Warnings)
	return t.flush(&sb)
}

func (t *Text) failedRun(sb *strings.Builder, f dashboard.FailedRun) {
	r := f.Run
	fmt.Fprintf(sb, "%s\n\n  %s %s\n", rule(), t.bold.Render(runName(r)), r.Timestamp().Format("Mon Jan 2 15:04"))
	if r.HTMLURL != "" {
		fmt.Fprintf(sb, "  %s\n", t.dim.Render(r.HTMLURL))
	}
	if r.Title != "" {
		fmt.Fprintf(sb, "  Commit: %s\n", t.dim.Render(r.Title))
	}
	if f.Note != "" {
		fmt.Fprintf(sb, "  %s\n\n", t.dim.Render(f.Note))
		return
	}

	fmt.Fprintf(sb, "  %s:\n\n", t.red.Render(fmt.Sprintf("%d failed job(s)", len(f.Jobs))))
	for _, j := range f.Jobs {
		fmt.Fprintf(sb, "  %s %s\n", t.red.Render("✗"), t.bold.Render(j.Name))
		for _, step := range j.FailedSteps {
			fmt.Fprintf(sb, "    Step: %s\n", t.red.Render(step))
		}
		if !j.LogFound {
			fmt.Fprintf(sb, "    %s\n", t.yellow.Render("Could not download log for this job."))
			continue
		}
		for _, snip := range j.Snippets {
			fmt.Fprintf(sb, "    %s\n", t.dim.Render("┌"+strings.Repeat("─", ruleWidth-1)))
			for _, line := range snip.Lines {
				fmt.Fprintf(sb, "    %s %s\n", t.dim.Render("│"), line)
			}
			fmt.Fprintf(sb, "    %s\n", t.dim.Render("└"+strings.Repeat("─", ruleWidth-1)))
		}
		sb.WriteString("\n")
	}
}

func runName(r domain.RunRecord) string {
	if r.Number > 0 {
		return fmt.Sprintf("Run #%d", r.Number)
	}
	return "Run " + r.ID
}

func (t *Text) pattern(sb *strings.Builder, p stats.FailurePattern) {
	fmt.Fprintf(sb, "%s\n\n%s\n\n", rule(), t.bold.Render("Failure Pattern Summary"))
	fmt.Fprintf(sb, "  %d failures in the date range.\n", p.Total)
	switch p.Label {
	case stats.PatternIncreasing:
		fmt.Fprintf(sb, "  %s Failures are %s: most failures occurred in the second half of the period.\n",
			t.red.Render("→"), t.red.Render(string(p.Label)))
	case stats.PatternDecreasing:
		fmt.Fprintf(sb, "  %s Failures are %s: most failures occurred in the first half of the period.\n",
			t.green.Render("→"), t.green.Render(string(p.Label)))
	default:
		fmt.Fprintf(sb, "  %s Failures are %s across the period.\n",
			t.yellow.Render("→"), t.yellow.Render(string(p.Label)))
	}
}

// Age formats the time since t in the largest fitting unit.
func Age(now, t time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days < 1:
		return "<1d"
	case days < 7:
		return fmt.Sprintf("%dd", days)
	case days < 30:
		return fmt.Sprintf("%dw", days/7)
	case days < 365:
		return fmt.Sprintf("%dmo", days/30)
	default:
		return fmt.Sprintf("%dy", days/365)
	}
}
