package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/stride/internal/api"
	"github.com/tgienger/stride/internal/config"
	"github.com/tgienger/stride/internal/logger"
	"github.com/tgienger/stride/internal/tasks"
	"github.com/tgienger/stride/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer func() { _ = logger.Close() }()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Terminal task planner backed by the stride API",
	Long: `stride plans tasks and subtasks, tags them, suggests what to work on
next and times work sessions against a REST backend.

Configuration is loaded with the following precedence:
  Environment variables > Project config > Global config > Defaults

Project config: ./stride.yml
Global config: ~/.config/stride/stride.yml`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(devServerCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads and validates the config and applies its log settings
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Open(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*api.Client, error) {
	if err := cfg.Validate(); err != nil {
		if !config.Exists() {
			return nil, fmt.Errorf("%w\n\nRun 'stride config init' to create a config file, or set STRIDE_BASE_URL", err)
		}
		return nil, err
	}
	return api.New(cfg.BaseURL, api.WithRequestTimeout(cfg.RequestTimeout)), nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	app := ui.NewApp(client, ui.Options{
		Policy: tasks.Policy{
			RollbackOnFailure: cfg.RollbackOnFailure,
			CascadeRemote:     cfg.CascadeRemote,
		},
		MaxGenerate:  cfg.GenerateMaxSubtasks,
		TimerMinutes: cfg.TimerMinutes,
	})
	defer app.Close()

	logger.Info("stride %s starting against %s", version, client.BaseURL())
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}
