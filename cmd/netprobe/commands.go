// commands.go contains the cobra command definitions and their flag
// wiring. Each builder creates one command and routes it to its handler.
package main

import (
	"github.com/spf13/cobra"
)

// buildInteractiveCmd creates the "interactive" command: the chat loop.
func buildInteractiveCmd() *cobra.Command {
	var (
		configPath   string
		model        string
		showThinking bool
		debugLogging bool
		skipStartup  bool
	)

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start the conversational network assistant",
		Long: `Start the chat loop backed by a local model endpoint. The assistant
answers network questions by running real diagnostic tools; it never
invents measurements.

Slash commands inside the loop:
  /help           show commands
  /tools          list available tools
  /run NAME JSON  invoke a tool directly
  /quit           exit`,
		Example: `  netprobe interactive
  netprobe interactive --model qwen2.5 --thinking`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), interactiveOptions{
				configPath:   configPath,
				model:        model,
				showThinking: showThinking,
				debug:        debugLogging,
				skipStartup:  skipStartup,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Chat model name (overrides config)")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "Show the model's thinking blocks")
	cmd.Flags().BoolVarP(&debugLogging, "debug", "d", false, "Enable debug logging")
	cmd.Flags().BoolVar(&skipStartup, "skip-startup", false, "Skip the startup readiness checks")

	return cmd
}

// buildRunToolCmd creates the "run-tool" command: one-shot execution.
func buildRunToolCmd() *cobra.Command {
	var (
		configPath string
		argsJSON   string
	)

	cmd := &cobra.Command{
		Use:   "run-tool [name]",
		Short: "Run one tool and print its result envelope as JSON",
		Long: `Without a name, lists every registered tool. With a name, executes it
once and prints the full result envelope to stdout. The exit code is 0
when the tool succeeded and 1 when it failed.`,
		Example: `  netprobe run-tool
  netprobe run-tool get_local_ip
  netprobe run-tool ping_host --args '{"target": "8.8.8.8", "count": 3}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runTool(cmd.Context(), configPath, name, argsJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "{}", "Tool arguments as a JSON object")

	return cmd
}

// buildSelftestCmd creates the "selftest" command.
func buildSelftestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the startup readiness sequence and print a report",
		Long: `Runs the four startup phases (environment, model endpoint, tool
registry, network baseline), validates every exported tool schema, and
prints a summary with collected metrics. The exit code reflects the
overall status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

// buildServerCmd creates the "server" command: the stdio protocol.
func buildServerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the line-framed JSON tool protocol over stdio",
		Long: `Speaks the machine protocol on stdin/stdout: list_tools exports every
tool with its input schema, call_tool executes one. All diagnostics go
to stderr; stdout carries protocol frames only. Shutdown on SIGINT or
SIGTERM drains in-flight calls.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}
