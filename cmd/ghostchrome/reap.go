package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/ghostchrome/pkg/chrome"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Kill browsers left behind by this config and repair the profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Close()

		reaper, err := chrome.NewReaper(cfg, nil, log.With("reaper"))
		if err != nil {
			return err
		}

		result, err := reaper.Reap(cmd.Context())
		if err != nil {
			return err
		}

		if result.Matched == 0 {
			printSuccess("No browsers carry marker %s", cfg.MarkerToken)
			return nil
		}
		printSuccess("Killed %d of %d browser process(es)", result.Killed, result.Matched)
		if result.PrefsRepaired {
			printSuccess("Repaired %s", chrome.PreferencesPath(cfg.ProfileDir))
		}
		for _, e := range result.Errors {
			printWarning("%v", e)
		}
		return nil
	},
}
