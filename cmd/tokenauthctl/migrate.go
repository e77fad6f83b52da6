package main

import (
	"context"

	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/postgres"
	"go.uber.org/zap"
)

func runMigrate(ctx context.Context, s *config.Settings, log *zap.Logger) error {
	db, err := postgres.Open(ctx, s.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
