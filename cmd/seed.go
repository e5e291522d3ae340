/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/floorvault/apiserver/internal/db"
	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/internal/slug"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/types"
	"github.com/spf13/cobra"
)

const presetCategoryName = "Presets"

var (
	seedEmail    string
	seedPassword string
	seedName     string
	seedPresets  bool
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert bootstrap data",
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create the Admin role and the first admin account",
	Long: `Creates the Admin role when it is missing, then an active admin account.
With --presets (default) the reserved preset category is created and owned
by that account.

	floorvault seed admin --email admin@example.com --password 'secret123'
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(seedEmail))
		if email == "" {
			return errors.New("--email is required")
		}
		if len(seedPassword) < 8 {
			return errors.New("--password must be at least 8 characters")
		}

		ctx := cmd.Context()
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		roles := store.NewRoleRepository(dbConn)
		users := store.NewUserRepository(dbConn)
		categories := store.NewCategoryRepository(dbConn)

		role, err := roles.FindByName(ctx, types.RoleAdmin)
		if errors.Is(err, store.ErrNotFound) {
			role, err = roles.Create(ctx, types.Role{Name: types.RoleAdmin})
			if err == nil {
				slog.Info("created role", "role_id", role.ID, "name", role.Name)
			}
		}
		if err != nil {
			return fmt.Errorf("ensure admin role: %w", err)
		}

		admin, err := users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			slog.Info("admin account already exists", "user_id", admin.ID, "email", admin.Email)
		case errors.Is(err, store.ErrNotFound):
			hash, err := services.HashPassword(seedPassword)
			if err != nil {
				return err
			}
			admin, err = users.Create(ctx, types.User{
				Email:        email,
				PasswordHash: hash,
				Name:         strings.TrimSpace(seedName),
				RoleID:       role.ID,
				IsActive:     true,
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			slog.Info("created admin account", "user_id", admin.ID, "email", admin.Email)
		default:
			return fmt.Errorf("look up admin: %w", err)
		}

		if !seedPresets {
			return nil
		}
		exists, err := categories.Exists(ctx, types.PresetCategoryID)
		if err != nil {
			return fmt.Errorf("check preset category: %w", err)
		}
		if exists {
			return nil
		}
		preset, err := categories.Create(ctx, types.Category{
			ID:          types.PresetCategoryID,
			Name:        presetCategoryName,
			Slug:        slug.Make(presetCategoryName),
			OwnerUserID: admin.ID,
		})
		if err != nil {
			return fmt.Errorf("create preset category: %w", err)
		}
		slog.Info("created preset category", "category_id", preset.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedAdminCmd)

	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "Admin login email")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "Admin password (8 to 100 characters)")
	seedAdminCmd.Flags().StringVar(&seedName, "name", "Administrator", "Admin display name")
	seedAdminCmd.Flags().BoolVar(&seedPresets, "presets", true, "Also create the preset category")
}
