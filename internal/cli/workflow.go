package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflow на сервере.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowImportCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
		newWorkflowValidateCmd(clientFn, outputFn),
		newWorkflowExecuteCmd(clientFn, outputFn),
	)

	return cmd
}

var workflowHeaders = []string{"ID", "NAME", "NODES", "UPDATED"}

func workflowRow(wf *WorkflowResponse) []string {
	return []string{wf.ID, wf.Name, strconv.Itoa(len(wf.Nodes)), wf.UpdatedAt}
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			rows := make([][]string, len(workflows))
			for i := range workflows {
				rows[i] = workflowRow(&workflows[i])
			}

			out.Print(workflowHeaders, rows, workflows)
			return nil
		},
	}
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(wf)
				return nil
			}

			out.Table(workflowHeaders, [][]string{workflowRow(wf)})
			rows := make([][]string, len(wf.Nodes))
			for i, n := range wf.Nodes {
				rows[i] = []string{fmt.Sprint(n["name"]), fmt.Sprint(n["type"]), truncate(compactJSON(n["settings"]), 60)}
			}
			out.Table([]string{"NODE", "TYPE", "SETTINGS"}, rows)
			return nil
		},
	}
}

func newWorkflowImportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var replace string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create a workflow from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := LoadWorkflow(args[0])
			if err != nil {
				return err
			}
			if name != "" {
				wf.Name = name
			}

			var created *WorkflowResponse
			if replace != "" {
				created, err = client.UpdateWorkflow(replace, workflowBody(wf))
			} else {
				created, err = client.CreateWorkflow(workflowBody(wf))
			}
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow saved: %s", created.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(created)}, created)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workflow name (defaults to the file name)")
	cmd.Flags().StringVar(&replace, "replace", "", "Replace the workflow with this ID instead of creating one")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate ID",
		Short: "Validate a workflow against the registered node types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.ValidateWorkflow(args[0])
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(res)
			}
			if !res.Valid {
				return fmt.Errorf("workflow is invalid: %s", res.Error.Message)
			}

			out.Success("Workflow is valid")
			return nil
		},
	}
}

func newWorkflowExecuteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var request string

	cmd := &cobra.Command{
		Use:   "execute ID",
		Short: "Execute a stored workflow synchronously on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := ParseRequest(request)
			if err != nil {
				return err
			}

			state, err := client.ExecuteWorkflow(args[0], req)
			if err != nil {
				return err
			}

			steps, _ := state["steps"].(map[string]any)
			if out.JSONMode() {
				out.JSON(state)
				return nil
			}

			out.Table(stepHeaders, stepRows(steps, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&request, "request", "", "Request context as JSON")

	return cmd
}
