package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	schedymcp "github.com/valter-silva-au/schedy/internal/mcp"
	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/pkg/models"
)

// Panels, cycled with tab.
const (
	panelSchedule = iota
	panelUnderstanding
	panelAlerts
	numPanels
)

const (
	upcomingLimit = 5
	barWidth      = 20
)

var dashboardSince string

type dashboard struct {
	since  string
	focus  int
	width  int
	height int

	snap    *snapshot
	loading bool
	err     error
}

// snapshot is everything one refresh reads from the services.
type snapshot struct {
	pending  int
	done     int
	upcoming []dueTask
	metrics  *observability.Metrics
	alerts   []observability.Alert
}

type snapshotMsg struct {
	snap *snapshot
	err  error
}

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("25")).
			Padding(0, 1)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	focusedBoxStyle = boxStyle.BorderForeground(lipgloss.Color("33"))
	boxTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func newDashboard(since string) dashboard {
	return dashboard{since: since, focus: panelSchedule, loading: true}
}

func (d dashboard) Init() tea.Cmd {
	return refresh(d.since)
}

func (d dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return d, tea.Quit
		case "tab", "right", "l":
			d.focus = (d.focus + 1) % numPanels
		case "shift+tab", "left", "h":
			d.focus = (d.focus + numPanels - 1) % numPanels
		case "r":
			d.loading = true
			return d, refresh(d.since)
		}
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
	case snapshotMsg:
		d.loading = false
		d.err = msg.err
		if msg.err == nil {
			d.snap = msg.snap
		}
	}
	return d, nil
}

func (d dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}
	banner := bannerStyle.Render("schedy · last " + d.since)
	footer := footerStyle.Render("tab/←/→ panel · r refresh · q quit")

	var body string
	switch {
	case d.err != nil:
		body = "  Error: " + d.err.Error()
	case d.loading || d.snap == nil:
		body = "  Loading data..."
	default:
		body = d.panels()
	}
	return banner + "\n\n" + body + "\n\n" + footer
}

// panels lays the three boxes side by side on wide terminals and stacks
// them otherwise.
func (d dashboard) panels() string {
	contents := []string{
		scheduleBox(d.snap),
		understandingBox(d.snap.metrics),
		alertsBox(d.snap.alerts),
	}
	wide := d.width >= 120
	w := d.width - 4
	if wide {
		w = d.width/numPanels - 4
	}
	boxes := make([]string, len(contents))
	for i, c := range contents {
		style := boxStyle
		if i == d.focus {
			style = focusedBoxStyle
		}
		boxes[i] = style.Width(max(w, 24)).Render(c)
	}
	if wide {
		return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

func scheduleBox(s *snapshot) string {
	var b strings.Builder
	b.WriteString(boxTitleStyle.Render("Tasks") + "\n")
	fmt.Fprintf(&b, "%s %d   %s %d\n", outcomeClarify.Render("pending"), s.pending, outcomeAccept.Render("done"), s.done)
	if len(s.upcoming) == 0 {
		b.WriteString(dimStyle.Render("nothing scheduled"))
		return b.String()
	}
	b.WriteString("\nUp next\n")
	for _, u := range s.upcoming {
		fmt.Fprintf(&b, "%s %s\n", dimStyle.Render(u.due.In(Location).Format("Mon 02 Jan 15:04")), u.task.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func understandingBox(m *observability.Metrics) string {
	var b strings.Builder
	b.WriteString(boxTitleStyle.Render("Understanding") + "\n")
	if m == nil {
		b.WriteString(dimStyle.Render("event log disabled"))
		return b.String()
	}
	if m.Utterances == 0 {
		b.WriteString(dimStyle.Render("no utterances yet"))
		return b.String()
	}
	fmt.Fprintf(&b, "%d utterances, confidence %.2f\n\n", m.Utterances, m.AverageConfidence)
	for _, o := range []models.Outcome{models.OutcomeAccept, models.OutcomeClarify, models.OutcomeReject} {
		rate := m.Rate(string(o))
		fmt.Fprintf(&b, "%-8s %s %3.0f%%\n", o, outcomeStyle(o).Render(bar(rate)), rate*100)
	}
	if reason := topKey(m.ByReason); reason != "" {
		fmt.Fprintf(&b, "\nmost common reason: %s", reason)
	}
	return strings.TrimRight(b.String(), "\n")
}

func alertsBox(alerts []observability.Alert) string {
	var b strings.Builder
	b.WriteString(boxTitleStyle.Render("Alerts") + "\n")
	if len(alerts) == 0 {
		b.WriteString(dimStyle.Render("all clear"))
		return b.String()
	}
	for _, a := range alerts {
		tag := "[" + strings.ToUpper(string(a.Severity)) + "]"
		style := outcomeClarify
		if a.Severity == observability.SeverityHigh {
			style = outcomeReject
		}
		fmt.Fprintf(&b, "%s %s\n%s\n", style.Render(tag), a.Message,
			dimStyle.Render(a.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC")))
	}
	return strings.TrimRight(b.String(), "\n")
}

// bar draws rate in [0,1] as a fixed-width horizontal bar.
func bar(rate float64) string {
	n := int(rate*barWidth + 0.5)
	n = min(max(n, 0), barWidth)
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

// topKey returns the key with the highest count, ties broken by name.
func topKey(counts map[string]int) string {
	best := ""
	for k, v := range counts {
		if best == "" || v > counts[best] || (v == counts[best] && k < best) {
			best = k
		}
	}
	return best
}

func severityRank(s observability.AlertSeverity) int {
	switch s {
	case observability.SeverityHigh:
		return 0
	case observability.SeverityMedium:
		return 1
	default:
		return 2
	}
}

func refresh(since string) tea.Cmd {
	return func() tea.Msg {
		snap, err := loadSnapshot(since)
		return snapshotMsg{snap: snap, err: err}
	}
}

func loadSnapshot(window string) (*snapshot, error) {
	current := now()
	since, err := schedymcp.ParseSince(window, current.UTC())
	if err != nil {
		return nil, fmt.Errorf("parsing --since: %w", err)
	}

	snap := &snapshot{}
	if Tasks != nil {
		all, err := Tasks.GetAllTasks()
		if err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
		var pending []models.Task
		for _, t := range all {
			if t.Status == models.StatusDone {
				snap.done++
				continue
			}
			pending = append(pending, t)
		}
		snap.pending = len(pending)
		due, err := upcoming(pending, current.In(Location))
		if err != nil {
			return nil, err
		}
		snap.upcoming = due[:min(len(due), upcomingLimit)]
	}

	if MetricsCalc != nil {
		if snap.metrics, err = MetricsCalc.Calculate(since); err != nil {
			return nil, fmt.Errorf("loading metrics: %w", err)
		}
	}
	if AlertEngine != nil {
		if snap.alerts, err = AlertEngine.Evaluate(since, current.UTC()); err != nil {
			return nil, fmt.Errorf("loading alerts: %w", err)
		}
		sort.SliceStable(snap.alerts, func(i, j int) bool {
			return severityRank(snap.alerts[i].Severity) < severityRank(snap.alerts[j].Severity)
		})
	}
	return snap, nil
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive view of tasks, understanding quality and alerts",
	Long: `Open a terminal dashboard with three panels: pending and done tasks with
what is due next, how recent utterances were understood, and active alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task service not initialized")
		}
		if _, err := schedymcp.ParseSince(dashboardSince, now()); err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		_, err := tea.NewProgram(newDashboard(dashboardSince), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardSince, "since", "7d", "Window for metrics and alerts (e.g. 7d, 24h)")
	rootCmd.AddCommand(dashboardCmd)
}
