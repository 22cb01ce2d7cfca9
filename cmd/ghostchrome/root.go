package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/ghostchrome/pkg/config"
	"github.com/entrhq/ghostchrome/pkg/logging"
)

const (
	version           = "0.1.0"
	defaultConfigFile = "ghostchrome.yaml"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "ghostchrome",
	Short:   "Run a real Chrome that behaves like a person",
	Version: version,
	Long: `ghostchrome launches a locally installed Chrome with a marker token,
attaches a remote-debugging control channel, and tears the browser down
again, killing stale instances and repairing the profile's crash state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigFile, "path to the config file (YAML or JSON)")

	rootCmd.AddCommand(runCmd, reapCmd, initCmd, versionCmd)
}

// execute runs the root command and returns the process exit code.
func execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}

// loadConfig reads the config file and applies its logging verbosity.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Verbosity)
	if err != nil {
		return nil, nil, err
	}
	logging.SetLevel(level)

	log, err := logging.NewLogger("ghostchrome")
	if err != nil {
		log.Warnf("Failed to initialize logger, using stderr fallback: %v", err)
	}
	return cfg, log, nil
}
