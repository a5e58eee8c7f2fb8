package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/client"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/server"
)

func newSendCmd() *cobra.Command {
	var (
		host        string
		port        int
		file        string
		backendOnly bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a model document to a running viewer",
		Long:  "Reads a model document from a JSON file, shows it in the browser viewer and loads it into the measurement backend of a running server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, host, port, file, backendOnly)
		},
	}

	cmd.Flags().StringVar(&host, "host", server.DefaultHost, "server address")
	cmd.Flags().IntVarP(&port, "port", "p", server.DefaultPort, "server port")
	cmd.Flags().StringVarP(&file, "file", "f", "", "model document to send (required)")
	cmd.Flags().BoolVar(&backendOnly, "backend-only", false, "load into the measurement backend without showing it")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runSend(cmd *cobra.Command, host string, port int, file string, backendOnly bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("send: read %s: %w", file, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	url := fmt.Sprintf("ws://%s:%d/ws", host, port)
	c, err := client.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer c.Close()

	if !backendOnly {
		if err := c.SendModel(data); err != nil {
			return err
		}
	}
	if err := c.LoadModel(data); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s (%d bytes) to %s\n", file, len(data), url)
	return nil
}
