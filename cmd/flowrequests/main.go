// flowrequests CLI — выполнение workflow локально и управление
// workflows, runs, плагинами и schedules через HTTP API.
//
// Использование:
//
//	flowrequests [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	run       Локальное выполнение файла (run exec) и удалённые runs
//	workflow  Управление workflows
//	plugin    Управление плагинами
//	nodes     Каталог типов узлов
//	schedule  Управление schedules
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowrequests/internal/cli"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "flowrequests",
		Short:         "flowrequests — run request workflows locally or on a server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout занят результатом, логи узлов идут в stderr
			telemetry.SetupLoggerTo(os.Stderr)
		},
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("FLOWREQUESTS_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(clientFn, outputFn),
		cli.NewWorkflowCmd(clientFn, outputFn),
		cli.NewPluginCmd(clientFn, outputFn),
		cli.NewNodesCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
