package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/config"
)

func newConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the merged viewer configuration",
		Long:  "Merges the built-in defaults with the user config file and prints the result as YAML, exactly as the viewer would receive it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "viewer config file (default ~/"+config.FileName+")")
	return cmd
}

func runConfig(cmd *cobra.Command, configPath string) error {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
