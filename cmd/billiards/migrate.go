package main

import (
	"fmt"
	"strconv"

	"github.com/playmatatu/billiards/internal/database"
	"github.com/playmatatu/billiards/internal/migrations"
	"github.com/spf13/cobra"
)

var flagMigrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
	Long: `Apply or roll back the SQL migrations in the migrations directory.
SQLite databases create their schema on start and are not migrated.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		url, err := postgresURL()
		if err != nil {
			return err
		}
		return migrations.Run(url, flagMigrationsDir)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <steps>",
	Short: "Roll back the given number of migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		steps, err := strconv.Atoi(args[0])
		if err != nil || steps <= 0 {
			return fmt.Errorf("steps must be a positive number, got %q", args[0])
		}
		url, err := postgresURL()
		if err != nil {
			return err
		}
		return migrations.Down(url, flagMigrationsDir, steps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, err := postgresURL()
		if err != nil {
			return err
		}
		v, dirty, err := migrations.Version(url, flagMigrationsDir)
		if err != nil {
			return err
		}
		latest := migrations.LatestVersion(flagMigrationsDir)
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (latest %d)", v, latest)
		if dirty {
			fmt.Fprint(cmd.OutOrStdout(), " dirty")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&flagMigrationsDir, "dir", migrations.DefaultDir, "Migrations directory")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func postgresURL() (string, error) {
	cfg := loadConfig()
	if cfg.DatabaseDriver != database.DriverPostgres {
		return "", fmt.Errorf("migrations need DATABASE_DRIVER=postgres, have %q", cfg.DatabaseDriver)
	}
	return cfg.DatabaseURL, nil
}
