package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/store"
)

func newShotsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "shots",
		Short: "List recent screenshots",
		Long:  "Lists the screenshots the server saved, newest first, from the history database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShots(cmd, dbPath, limit)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default ~/.ocpviewer.db)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of screenshots to list")
	return cmd
}

func runShots(cmd *cobra.Command, dbPath string, limit int) error {
	path, err := resolveHomePath(dbPath, ".ocpviewer.db")
	if err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}

	shots, err := st.RecentScreenshots(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(shots) == 0 {
		fmt.Fprintln(out, "No screenshots recorded.")
		return nil
	}
	for _, s := range shots {
		fmt.Fprintf(out, "%s  %4dx%-4d  %7d bytes  %s\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"), s.Width, s.Height, s.SizeBytes, s.Filename)
	}
	return nil
}
