package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/schedy/pkg/models"
)

var (
	sayNow    string
	sayLocale string
	sayApply  bool
	sayJSON   bool
	sayPick   string
)

var (
	outcomeAccept  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	outcomeClarify = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	outcomeReject  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var sayCmd = &cobra.Command{
	Use:   "say <utterance...>",
	Short: "Interpret a transcribed voice command",
	Long: `Interpret a transcribed voice command against the stored tasks.

The result is accept, clarify or reject. With --apply an accepted result
is saved: a new task is created, or the referenced task is completed,
rescheduled or deleted. With --pick a clarify result is resolved to the
chosen candidate and applied.`,
	Example: `  schedy say "Напомни мне сделать утреннюю зарядку в 7 утра" --apply
  schedy say "Удали зарядку" --pick TASK-00002
  schedy say --locale en "move the dentist to friday at 3pm" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task service not initialized")
		}
		ref, err := referenceTime(sayNow)
		if err != nil {
			return err
		}

		res, err := Tasks.Interpret(cmd.Context(), strings.Join(args, " "), sayLocale, ref)
		if err != nil {
			return err
		}

		var applied *models.Task
		switch {
		case sayPick != "":
			applied, err = Tasks.ApplyChoice(res, sayPick, now())
		case sayApply && res.Outcome == models.OutcomeAccept:
			applied, err = Tasks.Apply(res, now())
		}
		if err != nil {
			return fmt.Errorf("applying result: %w", err)
		}

		out := cmd.OutOrStdout()
		if sayJSON {
			return writeJSON(out, struct {
				Result  models.Result `json:"result"`
				Applied *models.Task  `json:"applied,omitempty"`
			}{res, applied})
		}
		renderResult(out, res)
		if applied != nil {
			fmt.Fprintf(out, "\nSaved %s: %s\n", applied.ID, applied.Title)
		}
		return nil
	},
}

// referenceTime parses --now, defaulting to the wall clock in the
// configured time zone.
func referenceTime(s string) (time.Time, error) {
	if s == "" {
		return now().In(Location), nil
	}
	t, err := time.ParseInLocation(time.RFC3339, s, Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --now: %w", err)
	}
	return t, nil
}

func outcomeStyle(o models.Outcome) lipgloss.Style {
	switch o {
	case models.OutcomeAccept:
		return outcomeAccept
	case models.OutcomeClarify:
		return outcomeClarify
	default:
		return outcomeReject
	}
}

func renderResult(w io.Writer, res models.Result) {
	head := strings.ToUpper(string(res.Outcome))
	if res.Reason != models.ReasonNone {
		head += " (" + string(res.Reason) + ")"
	}
	fmt.Fprintln(w, outcomeStyle(res.Outcome).Render(head))
	fmt.Fprintf(w, "  %-12s %s %s\n", "intent:", res.Intent.Intent, dimStyle.Render(fmt.Sprintf("%.2f", res.Intent.Confidence)))
	fmt.Fprintf(w, "  %-12s %.2f\n", "confidence:", res.Confidence)

	switch {
	case res.Task != nil:
		fmt.Fprintf(w, "  %-12s %s\n", "title:", res.Task.Title)
		fmt.Fprintf(w, "  %-12s %s\n", "when:", res.Task.Schedule)
		if len(res.Task.People) > 0 {
			fmt.Fprintf(w, "  %-12s %s\n", "with:", strings.Join(res.Task.People, ", "))
		}
		if res.Task.Location != "" {
			fmt.Fprintf(w, "  %-12s %s\n", "where:", res.Task.Location)
		}
		fmt.Fprintf(w, "  %-12s %s\n", "priority:", res.Task.Priority)
	case res.Mutation != nil:
		target := res.Mutation.TargetID
		if target == "" {
			target = "?"
		}
		fmt.Fprintf(w, "  %-12s %s %s %s\n", "change:", res.Mutation.Kind, target, res.Mutation.TargetTitle)
		if res.Mutation.NewSchedule != nil {
			fmt.Fprintf(w, "  %-12s %s\n", "new time:", res.Mutation.NewSchedule)
		}
	case res.Query != nil:
		if res.Query.Window != nil {
			fmt.Fprintf(w, "  %-12s %s - %s\n", "window:",
				res.Query.Window.Start.Format("2006-01-02 15:04"), res.Query.Window.End.Format("2006-01-02 15:04"))
		}
	}

	if len(res.Candidates) > 0 {
		fmt.Fprintln(w, "  candidates:")
		for _, c := range res.Candidates {
			fmt.Fprintf(w, "    %-12s %-30s %s\n", c.TaskID, c.Title, dimStyle.Render(fmt.Sprintf("%.2f", c.Score)))
		}
	}
	if res.CreatePlausible {
		fmt.Fprintln(w, dimStyle.Render("  this may have been meant as a new task"))
	}
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, dimStyle.Render("  warning: "+string(warn)))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	return nil
}

func init() {
	sayCmd.Flags().StringVar(&sayNow, "now", "", "Reference time as RFC 3339 (default: current time)")
	sayCmd.Flags().StringVar(&sayLocale, "locale", "", "Language of the utterance, e.g. ru or en (default: detected)")
	sayCmd.Flags().BoolVar(&sayApply, "apply", false, "Save the result when it is accepted")
	sayCmd.Flags().BoolVar(&sayJSON, "json", false, "Output the result as JSON")
	sayCmd.Flags().StringVar(&sayPick, "pick", "", "Resolve a clarify result to this task ID and apply it")
	rootCmd.AddCommand(sayCmd)
}
