package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowrequests/internal/engine"
)

// NewRunCmd создаёт группу команд для выполнения workflow.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute workflows and inspect runs",
	}

	cmd.AddCommand(
		newRunExecCmd(outputFn),
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
	)

	return cmd
}

var runHeaders = []string{"ID", "WORKFLOW_ID", "STATUS", "ERROR", "CREATED"}

func runRow(r *RunResponse) []string {
	return []string{r.ID, r.WorkflowID, r.Status, r.Error, r.CreatedAt}
}

var stepHeaders = []string{"STEP", "RESULT", "OUTPUT"}

// stepRows строит строки таблицы шагов. Без order шаги сортируются по имени.
func stepRows(steps map[string]any, order []string) [][]string {
	if order == nil {
		for name := range steps {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	rows := make([][]string, 0, len(order))
	for _, name := range order {
		var output any
		switch rec := steps[name].(type) {
		case engine.StepRecord:
			output = rec.Output
		case map[string]any:
			output = rec["output"]
		}

		result := "ok"
		if engine.IsErrorOutput(output) {
			result = "error"
		}
		rows = append(rows, []string{name, result, truncate(compactJSON(output), 80)})
	}
	return rows
}

func newRunExecCmd(outputFn func() *Output) *cobra.Command {
	var opts ExecOptions

	cmd := &cobra.Command{
		Use:   "exec FILE",
		Short: "Execute a workflow file locally",
		Long: `Execute a workflow file (JSON or YAML) in-process.

Built-in nodes and all statically linked plugins are available.
Failed nodes do not stop the run: their step output is {"error": ...}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			wf, err := LoadWorkflow(args[0])
			if err != nil {
				return err
			}

			state, err := ExecLocal(cmd.Context(), wf, opts)
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(state)
				return nil
			}

			out.Table(stepHeaders, stepRows(state.StepsMap(), state.Order()))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.Env, "env", nil, "Environment value as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&opts.Request, "request", "", "Request context as JSON")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "Seed of the synthetic data generator")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Validate the workflow before execution")

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i := range runs {
				rows[i] = runRow(&runs[i])
			}

			out.Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, COMPLETED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var request string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Enqueue a run of a stored workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := ParseRequest(request)
			if err != nil {
				return err
			}

			run, err := client.CreateRun(args[0], CreateRunRequest{
				Request:        req,
				IdempotencyKey: idempotencyKey,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run enqueued: %s", run.ID))
			out.Print(runHeaders, [][]string{runRow(run)}, run)
			return nil
		},
	}

	cmd.Flags().StringVar(&request, "request", "", "Request context as JSON")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Return the existing run for a repeated key")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details and step records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(run)
				return nil
			}

			out.Table(runHeaders, [][]string{runRow(run)})
			if len(run.Steps) > 0 {
				out.Table(stepHeaders, stepRows(run.Steps, nil))
			}
			return nil
		},
	}
}
