package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/pkg/models"
)

var (
	batchWorkers int
	batchLocale  string
	batchNow     string
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Interpret many utterances, one per line",
	Long: `Interpret utterances read one per line from a file, or from stdin when
the file is omitted or "-". Every line is understood against the same
snapshot of stored tasks and nothing is saved. Results are written as
JSON Lines in input order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Pipeline == nil || Tasks == nil {
			return fmt.Errorf("pipeline not initialized")
		}
		ref, err := referenceTime(batchNow)
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening batch file: %w", err)
			}
			defer f.Close()
			in = f
		}
		lines, err := readUtterances(in)
		if err != nil {
			return err
		}

		pending, err := Tasks.GetTasksByStatus(models.StatusPending)
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		known := make([]models.KnownTask, len(pending))
		for i, t := range pending {
			known[i] = t.Known()
		}

		reqs := make([]core.Request, len(lines))
		for i, line := range lines {
			reqs[i] = core.Request{Text: line, Reference: ref, Locale: batchLocale, KnownTasks: known}
		}
		results, err := core.RunBatch(cmd.Context(), Pipeline, reqs, batchWorkers)
		if err != nil {
			return fmt.Errorf("running batch: %w", err)
		}
		Logger.Info("batch finished", zap.Int("utterances", len(results)), zap.Int("workers", batchWorkers))

		out := cmd.OutOrStdout()
		for _, res := range results {
			if err := writeJSONLine(out, res); err != nil {
				return err
			}
		}
		return nil
	},
}

// readUtterances returns the non-blank lines of r.
func readUtterances(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading utterances: %w", err)
	}
	return lines, nil
}

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 4, "Number of utterances processed concurrently")
	batchCmd.Flags().StringVar(&batchLocale, "locale", "", "Language of every utterance (default: detected per line)")
	batchCmd.Flags().StringVar(&batchNow, "now", "", "Reference time as RFC 3339 (default: current time)")
	rootCmd.AddCommand(batchCmd)
}
