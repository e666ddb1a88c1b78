package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrel-forge/codegraphd/internal/daemon"
)

func newReindexCmd() *cobra.Command {
	var projectPath string
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Trigger a reindex of the registered project",
		Long: `Ask a running daemon to reindex --project (default: current directory),
either a full sync or, with --path, a single file's fast path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runReindex(ctx, cmd, projectPath, path, force)
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", "", "project directory (default: current directory)")
	cmd.Flags().StringVar(&path, "path", "", "reindex a single file instead of the whole project")
	cmd.Flags().BoolVar(&force, "force", false, "sent to the daemon, which does not act on it: unchanged files are still skipped")
	return cmd
}

func runReindex(ctx context.Context, cmd *cobra.Command, projectPath, path string, force bool) error {
	client := daemon.NewClient(socketPath)
	if !client.IsRunning() {
		return fmt.Errorf("codegraphd: daemon is not running (socket %s)", socketPath)
	}

	if projectPath == "" {
		var err error
		projectPath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("codegraphd: resolve working directory: %w", err)
		}
	}
	if _, err := client.RegisterProject(ctx, projectPath); err != nil {
		return err
	}

	result, err := client.Reindex(ctx, projectPath, path, force)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "files scanned: %d, parsed: %d, deleted: %d, chunks embedded: %d, references resolved: %d, duration: %dms\n",
		result.FilesScanned, result.FilesParsed, result.FilesDeleted, result.ChunksEmbedded, result.ReferencesResolved, result.DurationMS)
	return nil
}
