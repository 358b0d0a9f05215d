package main

import (
	"context"
	"fmt"

	"campus_market/config"
	"campus_market/internal/app"
	"campus_market/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load fixture users, categories and listings",
	RunE:  runSeed,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if err := config.Migrate(db, log); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Info("storage ready", zap.String("driver", cfg.StorageDriver))
	return app.New(cfg, db, store, log).Run(ctx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	reset, _ := cmd.Flags().GetBool("reset")
	if reset {
		return config.ResetAndMigrate(db, log)
	}
	return config.Migrate(db, log)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if err := config.Migrate(db, log); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		if err := config.SeedUsers(db, log); err != nil {
			return err
		}
		return config.SeedProducts(db, log)
	}
	fixtures, err := config.LoadFixtures(path)
	if err != nil {
		return err
	}
	return config.SeedFixtures(db, log, fixtures)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StorageDriver {
	case "gridfs":
		store, err := storage.NewGridFSStore(ctx, cfg.MongoURI, cfg.MongoDatabase, "/api/files")
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close(context.Background()) }, nil
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
