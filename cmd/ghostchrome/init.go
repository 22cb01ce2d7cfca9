package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/ghostchrome/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config with a fresh marker token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.WriteDefault(configPath)
		if err != nil {
			return err
		}

		printSuccess("Wrote %s", configPath)
		printField("executable", cfg.ExecutablePath)
		printField("marker", cfg.MarkerToken)
		printField("display", cfg.Behavior.DisplayMode)
		return nil
	},
}
