package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/assignyard/internal/config"
	"github.com/zulandar/assignyard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the assignyard tables",
		Long:  "Creates the MySQL database if needed, then migrates all tables. SQLite files are created on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath, false)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to assignyard config file")
	return cmd
}

func newDBSeedCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Migrate and load demo data",
		Long:  "Migrates all tables, then inserts a demo site, companies, resources, jobs and interventions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath, true)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to assignyard config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string, seed bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config from %s (%s)\n", configPath, cfg.Database.Driver)

	if err := db.CreateDatabase(cfg.Database); err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if seed {
		if err := db.Seed(gormDB, cfg.ManagedCompanyID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded demo data for company %q\n", cfg.ManagedCompanyID)
	}
	return nil
}
