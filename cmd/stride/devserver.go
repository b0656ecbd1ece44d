package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tgienger/stride/internal/db"
	"github.com/tgienger/stride/internal/devserver"
	"github.com/tgienger/stride/internal/logger"
)

var devServerFlags struct {
	addr   string
	dbPath string
	noSeed bool
}

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a local stub of the backend API",
	Long: `Run a local implementation of the backend API on a sqlite database.

Point base_url at the printed address to use stride without a real backend.
An empty database is seeded with a starter taxonomy and one task.`,
	RunE: runDevServer,
}

func init() {
	devServerCmd.Flags().StringVar(&devServerFlags.addr, "addr", "", "Listen address (default: dev.addr from config)")
	devServerCmd.Flags().StringVar(&devServerFlags.dbPath, "db", "", "Database file (default: dev.db_path from config)")
	devServerCmd.Flags().BoolVar(&devServerFlags.noSeed, "no-seed", false, "Do not seed an empty database")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Dev.Addr
	if devServerFlags.addr != "" {
		addr = devServerFlags.addr
	}
	path := cfg.Dev.DBPath
	if devServerFlags.dbPath != "" {
		path = devServerFlags.dbPath
	}

	store, err := db.New(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	if !devServerFlags.noSeed {
		seeded, err := store.Seed()
		if err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		if seeded {
			logger.Info("devserver: seeded empty database")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (Ctrl+C to stop)\n", addr)
	return devserver.New(store).ListenAndServe(ctx, addr)
}
