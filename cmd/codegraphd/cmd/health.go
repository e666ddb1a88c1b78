package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrel-forge/codegraphd/internal/daemon"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Narrow liveness probe",
		Long:  `Check whether the daemon's socket is bound and its store is reachable, exiting non-zero if not.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd)
		},
	}
}

func runHealth(cmd *cobra.Command) error {
	client := daemon.NewClient(socketPath)
	if !client.IsRunning() {
		return fmt.Errorf("codegraphd: daemon is not running (socket %s)", socketPath)
	}
	health, err := client.Health(cmd.Context())
	if err != nil {
		return err
	}
	if !health.SocketBound || !health.Reachable {
		return fmt.Errorf("codegraphd: unhealthy (socket_bound=%v db_reachable=%v)", health.SocketBound, health.Reachable)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
