package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	schedymcp "github.com/valter-silva-au/schedy/internal/mcp"
)

var (
	alertsSince  string
	alertsNotify bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts fire when too many utterances are rejected or need clarification, or
when the average confidence drops, once enough utterances have been seen.
With --notify the active alerts are also posted to the Slack webhook set as
alerts.slack_webhook_url.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (event log may be disabled)")
		}
		if alertsNotify && Notifier == nil {
			return fmt.Errorf("--notify needs alerts.slack_webhook_url in .schedyconfig")
		}
		current := now().UTC()
		since, err := schedymcp.ParseSince(alertsSince, current)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		alerts, err := AlertEngine.Evaluate(since, current)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if alertsNotify {
			if err := Notifier.Notify(cmd.Context(), since, alerts); err != nil {
				return fmt.Errorf("sending alert notification: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}
		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			fmt.Fprintf(out, "  [%s] %s\n", strings.ToUpper(string(alert.Severity)), alert.Message)
			fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().StringVar(&alertsSince, "since", "7d", "Time window to evaluate (e.g. 7d, 24h)")
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post active alerts to the configured Slack webhook")
	rootCmd.AddCommand(alertsCmd)
}
