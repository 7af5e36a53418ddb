package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"sitesafe-api/config"
	"sitesafe-api/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer func() { _, _ = m.Close() }()

		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Println("No migrations to run - database is up to date")
				return nil
			}
			return fmt.Errorf("migration failed: %w", err)
		}
		version, _, _ := m.Version()
		fmt.Printf("Migrated to version: %d\n", version)
		return nil
	},
}

var dbDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}

		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer func() { _, _ = m.Close() }()

		if err := m.Steps(-steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		version, _, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("All migrations rolled back")
			return nil
		}
		fmt.Printf("Rolled back to version: %d\n", version)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrate()
		if err != nil {
			return err
		}
		defer func() { _, _ = m.Close() }()

		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations have been applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Current version: %d\n", version)
		if dirty {
			fmt.Println("Warning: database is in a dirty state")
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd, dbDownCmd, dbStatusCmd)
	rootCmd.AddCommand(dbCmd)
}

func newMigrate() (*migrate.Migrate, error) {
	migrations, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to get embedded migrations: %w", err)
	}
	src, err := iofs.New(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, config.Current.Database.MigrateURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
