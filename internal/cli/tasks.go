package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/pkg/models"
)

var (
	tasksStatusFilter string
	tasksJSON         bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and manage stored tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task service not initialized")
		}
		var tasks []models.Task
		var err error
		switch models.TaskStatus(tasksStatusFilter) {
		case "":
			tasks, err = Tasks.GetAllTasks()
		case models.StatusPending, models.StatusDone:
			tasks, err = Tasks.GetTasksByStatus(models.TaskStatus(tasksStatusFilter))
		default:
			return fmt.Errorf("invalid status %q: must be pending or done", tasksStatusFilter)
		}
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if tasksJSON {
			return writeJSON(out, tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}
		fmt.Fprintf(out, "%-12s %-8s %-8s %-24s %s\n", "ID", "STATUS", "PRIO", "WHEN", "TITLE")
		for _, t := range tasks {
			fmt.Fprintf(out, "%-12s %-8s %-8s %-24s %s\n", t.ID, t.Status, t.Priority, t.Schedule, t.Title)
		}
		return nil
	},
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its aliases and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task service not initialized")
		}
		t, err := Tasks.GetTask(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if tasksJSON {
			return writeJSON(out, t)
		}
		fmt.Fprintf(out, "%s  %s\n", t.ID, t.Title)
		fmt.Fprintf(out, "  %-10s %s\n", "status:", t.Status)
		fmt.Fprintf(out, "  %-10s %s\n", "priority:", t.Priority)
		fmt.Fprintf(out, "  %-10s %s\n", "when:", t.Schedule)
		if t.Schedule.IsRecurring() {
			fmt.Fprintf(out, "  %-10s %s\n", "cron:", t.Schedule.Recurrence.CronSpec())
		}
		if end, ok := t.Schedule.End(); ok {
			fmt.Fprintf(out, "  %-10s %s\n", "ends:", end.In(Location).Format("2006-01-02 15:04"))
		}
		if len(t.People) > 0 {
			fmt.Fprintf(out, "  %-10s %s\n", "with:", strings.Join(t.People, ", "))
		}
		if t.Location != "" {
			fmt.Fprintf(out, "  %-10s %s\n", "where:", t.Location)
		}
		fmt.Fprintf(out, "  %-10s %q\n", "said:", t.SourceUtterance)
		for _, a := range t.Aliases {
			fmt.Fprintf(out, "  %-10s %s\n", "alias:", a)
		}
		for _, h := range t.History {
			fmt.Fprintf(out, "  %-10s %s %s %q\n", "history:", h.At.In(Location).Format("2006-01-02 15:04"), h.Kind, h.SourceUtterance)
		}
		return nil
	},
}

var tasksAliasCmd = &cobra.Command{
	Use:   "alias <task-id> <name>",
	Short: "Add another name for a task",
	Long: `Add another name for a task, in any language. Spoken references are
matched against the title and every alias, so a task titled "Morning
Workout" can be deleted by saying "Удали зарядку" once it has the alias
"утренняя зарядка".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task service not initialized")
		}
		if err := Tasks.AddAlias(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is also known as %q\n", args[0], args[1])
		return nil
	},
}

type dueTask struct {
	task models.Task
	due  time.Time
}

// upcoming orders the scheduled tasks by when they are next due after ref.
// Unscheduled tasks are left out.
func upcoming(tasks []models.Task, ref time.Time) ([]dueTask, error) {
	var due []dueTask
	for _, t := range tasks {
		at, ok, err := core.NextDue(t.Schedule, ref)
		if err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", t.ID, err)
		}
		if ok {
			due = append(due, dueTask{task: t, due: at})
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	return due, nil
}

var tasksNextCmd = &cobra.Command{
	Use:   "next",
	Short: "List pending tasks by when they are next due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task service not initialized")
		}
		pending, err := Tasks.GetTasksByStatus(models.StatusPending)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		due, err := upcoming(pending, now().In(Location))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(due) == 0 {
			fmt.Fprintln(out, "Nothing scheduled.")
			return nil
		}
		for _, d := range due {
			fmt.Fprintf(out, "%s  %-12s %s\n", d.due.In(Location).Format("Mon 2006-01-02 15:04"), d.task.ID, d.task.Title)
		}
		return nil
	},
}

func init() {
	tasksListCmd.Flags().StringVar(&tasksStatusFilter, "status", "", "Filter by status (pending, done)")
	tasksCmd.PersistentFlags().BoolVar(&tasksJSON, "json", false, "Output as JSON")
	tasksCmd.AddCommand(tasksListCmd, tasksShowCmd, tasksAliasCmd, tasksNextCmd)
	rootCmd.AddCommand(tasksCmd)
}
