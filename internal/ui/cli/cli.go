// Package cli wires the rds commands: the dev server, one-shot CSS and graph
// inspection, and the terminal dashboard.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is overridden at build time.
var Version = "0.1.0"

type globalOptions struct {
	configPath string
	verbose    bool
}

type devOptions struct {
	ui   bool
	port int
	host string
	open bool
}

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var global globalOptions

	root := &cobra.Command{
		Use:   "rds",
		Short: "Development server for React, TypeScript and utility CSS",
		Long: `rds serves a project's source modules to the browser without bundling.

Modules are compiled on request, cached by content hash and pushed to
connected pages over a websocket when files change. Utility classes found
in the sources are turned into a stylesheet on the fly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&global.configPath, "config", "c", "", "Path to rds.toml (default <root>/rds.toml)")
	root.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		devCmd(&global),
		cssCmd(&global),
		graphCmd(&global),
		versionCmd(),
	)
	return root
}

func devCmd(global *globalOptions) *cobra.Command {
	var opts devOptions
	cmd := &cobra.Command{
		Use:   "dev [root]",
		Short: "Start the development server",
		Long: `Start the development server with hot module replacement.

The server watches the project root, recompiles changed modules and
updates connected browsers in place when possible. Compile errors are
shown in an overlay until the file is fixed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), *global, opts, rootArg(args))
		},
	}
	cmd.Flags().BoolVar(&opts.ui, "ui", false, "Show the terminal dashboard")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVarP(&opts.open, "open", "o", false, "Open the browser once the server is up")
	return cmd
}

func cssCmd(global *globalOptions) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "css <files...>",
		Short: "Print the utility stylesheet generated for the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCSS(*global, root, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Project root (default current directory)")
	return cmd
}

func graphCmd(global *globalOptions) *cobra.Command {
	var (
		root   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Print the import tree of a module and the modules importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), *global, root, args[0], format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Project root (default current directory)")
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "Output format: tree, mermaid or tsv")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rds v%s\n", Version)
		},
	}
}

func rootArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
