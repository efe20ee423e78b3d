package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warepick/warepick/internal/auth"
	"github.com/warepick/warepick/internal/storage/sqlite"
	"github.com/warepick/warepick/internal/types"
)

var (
	userRole     string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := types.Role(userRole)
		if !role.IsValid() {
			return fmt.Errorf("invalid role %q (requester, picker, admin)", userRole)
		}
		if len(userPassword) < 6 {
			return fmt.Errorf("password must be at least 6 characters")
		}

		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		mgr := auth.NewManager(cfg.JWTSecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
		hash, err := mgr.HashPassword(userPassword)
		if err != nil {
			return err
		}
		user := &types.User{
			ID:           uuid.NewString(),
			Username:     strings.ToLower(strings.TrimSpace(args[0])),
			Role:         role,
			Active:       true,
			PasswordHash: hash,
		}
		if err := store.CreateUser(cmd.Context(), user); err != nil {
			return err
		}
		fmt.Printf("Created %s (%s)\n", user.Username, user.Role)
		return nil
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <username>",
	Short: "Deactivate an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.GetUserByUsername(cmd.Context(), strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		user.Active = false
		if err := store.UpdateUser(cmd.Context(), user); err != nil {
			return err
		}
		fmt.Printf("Deactivated %s\n", user.Username)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userRole, "role", "picker", "Account role (requester, picker, admin)")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Account password")
	_ = userAddCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userAddCmd, userDeactivateCmd)
}
