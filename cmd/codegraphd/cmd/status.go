package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrel-forge/codegraphd/internal/daemon"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Show whether the daemon is running, its uptime, and every currently
registered project with its watcher/embedder state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	client := daemon.NewClient(socketPath)
	if !client.IsRunning() {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]bool{"running": false})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "daemon is not running")
		return nil
	}

	status, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "daemon is running\n  pid:             %d\n  uptime:          %ds\n  projects loaded: %d\n",
		status.PID, status.UptimeSeconds, status.ProjectsLoaded)
	for _, p := range status.Projects {
		fmt.Fprintf(out, "  - %s (uuid %s, watching=%v, embedder=%s)\n", p.ProjectPath, p.ProjectUUID, p.Watching, p.EmbedderName)
	}
	return nil
}
