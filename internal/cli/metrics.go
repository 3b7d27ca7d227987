package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	schedymcp "github.com/valter-silva-au/schedy/internal/mcp"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display understanding and task metrics",
	Long: `Display metrics derived from the event log: how many utterances were
accepted, clarified or rejected, the intents and reasons seen, the average
confidence, and how many tasks were created, completed, rescheduled and
deleted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}
		since, err := schedymcp.ParseSince(metricsSince, now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		m, err := MetricsCalc.Calculate(since)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			return writeJSON(out, m)
		}

		fmt.Fprintf(out, "Metrics (since %s)\n\n", since.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", m.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Utterances:", m.Utterances)
		fmt.Fprintf(out, "  %-24s %.2f\n", "Average confidence:", m.AverageConfidence)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", m.TasksCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", m.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks rescheduled:", m.TasksRescheduled)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks deleted:", m.TasksDeleted)

		printCounts(cmd, "Outcomes", m.ByOutcome)
		printCounts(cmd, "Intents", m.ByIntent)
		printCounts(cmd, "Reasons", m.ByReason)

		if m.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", m.OldestEvent.Format(time.RFC3339))
		}
		if m.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", m.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

// printCounts prints a labelled map in key order.
func printCounts(cmd *cobra.Command, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s:\n", label)
	for _, k := range keys {
		fmt.Fprintf(out, "    %-20s %d\n", k+":", counts[k])
	}
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
