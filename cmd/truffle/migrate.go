package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BaSui01/truffle/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

var migrateFlags struct {
	dbType string
	dbURL  string
	steps  int
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Marker table migrations for the sql store",
	Long: `Applies the embedded schema migrations. The database comes from
store.sql.database in the config unless --db-type and --db-url are given.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			if err := m.Up(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return printVersion(m)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (the last one by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			var err error
			if migrateFlags.steps <= 0 {
				err = m.Down()
			} else {
				err = m.Steps(-migrateFlags.steps)
			}
			if err != nil {
				return fmt.Errorf("migration rollback failed: %w", err)
			}
			return printVersion(m)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			statuses, err := m.Status()
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			return migration.WriteStatus(os.Stdout, statuses)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(printVersion)
	},
}

func init() {
	pf := migrateCmd.PersistentFlags()
	pf.StringVar(&migrateFlags.dbType, "db-type", "", "Database type: postgres, mysql, sqlite (default: from config)")
	pf.StringVar(&migrateFlags.dbURL, "db-url", "", "Database connection URL (default: from config)")
	migrateDownCmd.Flags().IntVar(&migrateFlags.steps, "steps", 1, "Number of migrations to roll back; 0 rolls back all")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrator(fn func(*migration.Migrator) error) error {
	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.close()

	var m *migration.Migrator
	if migrateFlags.dbType != "" && migrateFlags.dbURL != "" {
		d, err := migration.ParseDialect(migrateFlags.dbType)
		if err != nil {
			return err
		}
		m, err = migration.Open(d, migrateFlags.dbURL, rt.logger)
		if err != nil {
			return err
		}
	} else {
		dbCfg := rt.cfg.Store.SQL.Database
		if migrateFlags.dbType != "" {
			dbCfg.Driver = migrateFlags.dbType
		}
		m, err = migration.New(dbCfg, rt.logger)
		if err != nil {
			return err
		}
	}
	defer m.Close()
	return fn(m)
}

func printVersion(m *migration.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	return migration.WriteVersion(os.Stdout, v, dirty)
}
