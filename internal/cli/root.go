package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "schedy",
	Short: "schedy - voice commands for a personal task scheduler",
	Long: `schedy turns transcribed voice commands into scheduled tasks.

Say "Напомни мне сделать утреннюю зарядку в 7 утра" or "move the dentist
to Friday at 3pm" and schedy works out the intent, the time and the task
you mean. When it is not sure it asks instead of guessing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			LogLevel.SetLevel(zap.DebugLevel)
		}
		Logger.Debug("running command", zap.String("command", cmd.CommandPath()), zap.String("base_path", BasePath))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "schedy %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
