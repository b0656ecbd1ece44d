package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgienger/stride/internal/config"
)

var configInitFlags struct {
	project bool
	force   bool
	baseURL string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stride configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a stride configuration file",
	Long: `Create a stride configuration file with sensible defaults.

By default, creates a global config at ~/.config/stride/stride.yml.
Use --project to create a project-local config in the current directory.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	configInitCmd.Flags().BoolVarP(&configInitFlags.force, "force", "f", false, "Overwrite existing config file")
	configInitCmd.Flags().StringVar(&configInitFlags.baseURL, "base-url", "http://127.0.0.1:8787", "Backend base URL")

	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	if configInitFlags.project {
		targetPath = config.ProjectPath()
	}

	if !configInitFlags.force {
		if _, err := os.Stat(targetPath); err == nil {
			return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
		}
	}

	cfg := &config.Config{
		BaseURL:             configInitFlags.baseURL,
		RequestTimeout:      15 * time.Second,
		LogLevel:            "info",
		RollbackOnFailure:   true,
		CascadeRemote:       true,
		GenerateMaxSubtasks: 5,
		TimerMinutes:        25,
		Dev:                 config.DevConfig{Addr: "127.0.0.1:8787"},
	}

	var err error
	if configInitFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", targetPath)
	return nil
}
