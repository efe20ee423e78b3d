package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warepick/warepick/internal/auth"
	"github.com/warepick/warepick/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema and the bootstrap admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return err
			}
		}
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		mgr := auth.NewManager(cfg.JWTSecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
		if err := auth.EnsureDefaultAdmin(cmd.Context(), store, mgr,
			cfg.DefaultAdminUsername, cfg.DefaultAdminPassword, logger); err != nil {
			return err
		}
		fmt.Printf("Database ready at %s\n", cfg.DatabasePath)
		return nil
	},
}
