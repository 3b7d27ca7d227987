// Package mcp provides an MCP (Model Context Protocol) server that lets
// assistants hand spoken commands to schedy and read back its tasks,
// metrics and alerts.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/pkg/models"
)

// Server wraps the schedy services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	tasks       core.TaskService
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	now         func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces the wall clock used as the default reference time.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates an MCP server. metricsCalc and alertEngine may be nil
// when the event log is disabled.
func NewServer(tasks core.TaskService, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		tasks:       tasks,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "schedy", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type processUtteranceInput struct {
	Text      string `json:"text" jsonschema:"required,the transcribed voice command"`
	Locale    string `json:"locale,omitempty" jsonschema:"BCP 47 language tag such as ru or en; detected from the text when empty"`
	Reference string `json:"reference,omitempty" jsonschema:"RFC 3339 reference instant for relative times; defaults to now"`
	Apply     bool   `json:"apply,omitempty" jsonschema:"persist the result when it is accepted"`
}

type processUtteranceOutput struct {
	Result  resultOutput `json:"result"`
	Applied *taskOutput  `json:"applied,omitempty"`
}

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier (e.g. TASK-00042)"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (pending, done)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type addAliasInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
	Alias  string `json:"alias" jsonschema:"required,another name for the task, in any language"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type getAlertsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window to evaluate (e.g. 7d, 24h). Defaults to 7d."`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "process_utterance",
		Description: "Understand a transcribed voice command. Returns accept, clarify or reject with the built task, mutation or query and ranked candidates. With apply=true an accepted result is saved.",
	}, s.handleProcessUtterance)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a stored task by ID, including its schedule, aliases and history.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List stored tasks with an optional status filter.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_alias",
		Description: "Add another name for a task so spoken references in any language match it.",
	}, s.handleAddAlias)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get outcome, intent and reason counts, average confidence and task change counts from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate alerts on reject rate, clarify rate and average confidence.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleProcessUtterance(ctx context.Context, _ *gomcp.CallToolRequest, input processUtteranceInput) (*gomcp.CallToolResult, processUtteranceOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), processUtteranceOutput{}, nil
	}
	ref := s.now()
	if input.Reference != "" {
		parsed, err := time.Parse(time.RFC3339, input.Reference)
		if err != nil {
			return errorResult(fmt.Sprintf("parsing reference: %s", err)), processUtteranceOutput{}, nil
		}
		ref = parsed
	}

	res, err := s.tasks.Interpret(ctx, input.Text, input.Locale, ref)
	if err != nil {
		return errorResult(fmt.Sprintf("processing utterance: %s", err)), processUtteranceOutput{}, nil
	}
	out := processUtteranceOutput{Result: toResultOutput(res)}
	if input.Apply && res.Outcome == models.OutcomeAccept {
		task, err := s.tasks.Apply(res, s.now())
		if err != nil {
			return errorResult(fmt.Sprintf("applying result: %s", err)), out, nil
		}
		out.Applied = toTaskOutput(task)
	}
	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}
	task, err := s.tasks.GetTask(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	return nil, *toTaskOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	var tasks []models.Task
	var err error
	switch models.TaskStatus(input.Status) {
	case "":
		tasks, err = s.tasks.GetAllTasks()
	case models.StatusPending, models.StatusDone:
		tasks, err = s.tasks.GetTasksByStatus(models.TaskStatus(input.Status))
	default:
		return errorResult(fmt.Sprintf("invalid status %q: must be pending or done", input.Status)), listTasksOutput{}, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}
	out := listTasksOutput{Tasks: make([]taskOutput, len(tasks)), Count: len(tasks)}
	for i := range tasks {
		out.Tasks[i] = *toTaskOutput(&tasks[i])
	}
	return nil, out, nil
}

func (s *Server) handleAddAlias(_ context.Context, _ *gomcp.CallToolRequest, input addAliasInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" || input.Alias == "" {
		return errorResult("task_id and alias are required"), messageOutput{}, nil
	}
	if err := s.tasks.AddAlias(input.TaskID, input.Alias); err != nil {
		return errorResult(fmt.Sprintf("adding alias: %s", err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s is also known as %q", input.TaskID, input.Alias)}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}
	since, err := ParseSince(input.Since, s.now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}
	m, err := s.metricsCalc.Calculate(since)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}
	return nil, toMetricsOutput(m), nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, input getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{}, nil
	}
	now := s.now()
	since, err := ParseSince(input.Since, now)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), getAlertsOutput{}, nil
	}
	alerts, err := s.alertEngine.Evaluate(since, now)
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}
	return nil, getAlertsOutput{Alerts: toAlertOutputs(alerts), Count: len(alerts)}, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince turns "7d" or "24h" into the instant that long before now.
// An empty string means seven days.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		s = "7d"
	}
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}
	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
