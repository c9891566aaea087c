package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fieldops/internal/config"
	"fieldops/internal/repository"
	"fieldops/internal/service"
	"fieldops/internal/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Schema migrations and admin seeding for the fieldops database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd(config.MigrateUp, "Apply all pending migrations"))
	rootCmd.AddCommand(migrateCmd(config.MigrateDown, "Roll back the most recent migration"))
	rootCmd.AddCommand(migrateCmd(config.MigrateStatus, "Show the applied state of every migration"))
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and opens the database
func setup(ctx context.Context) (*config.Config, *slog.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := config.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, pool, nil
}

func migrateCmd(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, pool, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			return config.Migrate(cmd.Context(), pool, command, logger)
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the default admin account if it does not exist",
		Long: `Creates the admin account from ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD
(or the matching flags). Running it again is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, pool, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			admin := cfg.Admin
			if username != "" {
				admin.Username = username
			}
			if email != "" {
				admin.Email = email
			}
			if password != "" {
				admin.Password = password
			}
			if admin.Username == "" || admin.Email == "" || admin.Password == "" {
				return fmt.Errorf("admin username, email and password are required")
			}

			auth := service.NewAuthService(repository.NewUserRepository(pool),
				utils.NewJWTUtil(cfg.JWT.SecretKey, cfg.JWT.ExpirationHours), logger)
			created, err := auth.EnsureAdmin(cmd.Context(), admin.Username, admin.Email, admin.Password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", admin.Username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", admin.Username)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username (default $ADMIN_USERNAME)")
	cmd.Flags().StringVar(&email, "email", "", "admin email (default $ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default $ADMIN_PASSWORD)")
	return cmd
}
