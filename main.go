package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campus_market/config"
	"campus_market/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "campusmarket",
	Short:         "Campus marketplace API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	migrateCmd.Flags().Bool("reset", false, "drop every table, migrate and load the default fixtures")
	seedCmd.Flags().String("file", "", "YAML fixtures file (default: built-in fixtures)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg := config.LoadConfig()
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
