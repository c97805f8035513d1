package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewPluginCmd создаёт группу команд для управления плагинами.
func NewPluginCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage custom node plugins",
	}

	cmd.AddCommand(
		newPluginListCmd(clientFn, outputFn),
		newPluginAddCmd(clientFn, outputFn),
		newPluginRemoveCmd(clientFn, outputFn),
		newPluginToggleCmd(clientFn, outputFn, true),
		newPluginToggleCmd(clientFn, outputFn, false),
	)

	return cmd
}

var pluginHeaders = []string{"ID", "EXPOSED_NAME", "LOCATION", "ENABLED"}

func pluginRow(p *PluginResponse) []string {
	return []string{p.ID, p.ExposedName, p.LocationReference, strconv.FormatBool(p.Enabled)}
}

func newPluginListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plugins, err := client.ListPlugins()
			if err != nil {
				return err
			}

			rows := make([][]string, len(plugins))
			for i := range plugins {
				rows[i] = pluginRow(&plugins[i])
			}

			out.Print(pluginHeaders, rows, plugins)
			return nil
		},
	}
}

func newPluginAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var location string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add EXPOSED_NAME",
		Short: "Register a plugin descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			enabled := !disabled
			p, err := client.AddPlugin(CreatePluginRequest{
				LocationReference: location,
				ExposedName:       args[0],
				Enabled:           &enabled,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plugin registered: %s", p.ID))
			out.Print(pluginHeaders, [][]string{pluginRow(p)}, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "Location reference of the plugin code")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the plugin disabled")

	return cmd
}

func newPluginRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a plugin descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.RemovePlugin(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plugin removed: %s", args[0]))
			return nil
		},
	}
}

func newPluginToggleCmd(clientFn func() *Client, outputFn func() *Output, enabled bool) *cobra.Command {
	verb := "disable"
	if enabled {
		verb = "enable"
	}

	return &cobra.Command{
		Use:   verb + " ID",
		Short: fmt.Sprintf("%s a plugin", capitalize(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.SetPluginEnabled(args[0], enabled); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plugin %sd: %s", verb, args[0]))
			return nil
		},
	}
}

// NewNodesCmd создаёт команду вывода каталога типов узлов.
func NewNodesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List node types available on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			nodes, err := client.ListNodes()
			if err != nil {
				return err
			}

			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				props := make([]string, 0, len(n.Properties))
				for _, p := range n.Properties {
					props = append(props, fmt.Sprint(p["name"]))
				}
				rows[i] = []string{n.Type, n.Name, n.Description, strings.Join(props, ",")}
			}

			out.Print([]string{"TYPE", "NAME", "DESCRIPTION", "PROPERTIES"}, rows, nodes)
			return nil
		},
	}
}
