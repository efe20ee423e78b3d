package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warepick/warepick/internal/reaper"
	"github.com/warepick/warepick/internal/storage/sqlite"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one maintenance pass: release stale claims, purge aged completions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		rp := reaper.New(store, logger, reaper.Options{
			IdleTimeout: cfg.PickTimeout(),
			Retention:   cfg.CleanupRetention(),
			Interval:    cfg.CleanupInterval(),
			Enabled:     true,
		})
		released, purged, err := rp.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Released %d stale claims, purged %d completed requests\n",
			released, purged)
		return nil
	},
}
