package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/discover"
)

func newDiscoverCmd() *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find viewers announced on the local network",
		Long:  "Listens for mDNS announcements from viewers started with --mdns and prints their addresses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, window)
		},
	}

	cmd.Flags().DurationVar(&window, "window", 2*time.Second, "how long to listen for announcements")
	return cmd
}

func runDiscover(cmd *cobra.Command, window time.Duration) error {
	entries, err := discover.Browse(cmd.Context(), window)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No viewers found.")
		return nil
	}
	for _, e := range entries {
		addr := e.Host
		if len(e.Addrs) > 0 {
			addr = e.Addrs[0]
		}
		fmt.Fprintf(out, "%s  http://%s:%d/viewer\n", e.Instance, addr, e.Port)
	}
	return nil
}
