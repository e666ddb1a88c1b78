// Package cmd provides the CLI commands for codegraphd.
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestrel-forge/codegraphd/internal/daemon"
)

// socketPath is the resolved Unix-domain socket the serve/reindex/status/
// health subcommands all talk to, flag-overridable.
var socketPath string

// NewRootCmd builds the root codegraphd command, exposing only the thin
// daemon-launcher surface: serve, reindex, status, health (everything
// else is driven through the socket's tools/call, not a CLI subcommand).
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codegraphd",
		Short: "Long-running code-intelligence daemon for AI coding assistants",
		Long: `codegraphd indexes a codebase into a hybrid symbol/vector store and
serves read-only code-intelligence tools over a Unix-domain socket.

Run 'codegraphd serve' to start the daemon, then register a project with
an MCP client bridge.`,
	}

	home, err := daemon.DefaultHome()
	if err != nil {
		home = "."
	}
	cmd.PersistentFlags().StringVar(&socketPath, "socket", filepath.Join(home, "codegraphd.sock"), "daemon Unix-domain socket path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHealthCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
