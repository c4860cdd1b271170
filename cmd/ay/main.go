package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zulandar/assignyard/internal/config"
	"github.com/zulandar/assignyard/internal/db"
	"gorm.io/gorm"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "assignyard.yaml"

func newRootCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "ay",
		Short: "Assignyard: plan and edit intervention assignments",
		Long:  "Assignyard edits the assignment rows of interventions: dates, time ranges, workloads, resources and status.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newResourcesCmd())
	cmd.AddCommand(newEditCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ay %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// connectFromConfig loads the config file and opens the database it names.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	return cfg, gormDB, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
