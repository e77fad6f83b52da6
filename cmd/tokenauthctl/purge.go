package main

import (
	"context"
	"flag"
	"time"

	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/postgres"
	"go.uber.org/zap"
)

type expiredPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

func runPurge(ctx context.Context, s *config.Settings, log *zap.Logger, args []string) error {
	flags := flag.NewFlagSet("purge", flag.ContinueOnError)
	retention := flags.Duration("retention", s.RefreshRetention(), "keep tokens that expired within this window")
	if err := flags.Parse(args); err != nil {
		return err
	}

	db, err := postgres.Open(ctx, s.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	return purgeExpired(ctx, postgres.NewRefreshTokenRepository(db), time.Now(), *retention, log)
}

func purgeExpired(ctx context.Context, p expiredPurger, now time.Time, retention time.Duration, log *zap.Logger) error {
	if retention < 0 {
		retention = 0
	}
	cutoff := now.Add(-retention)
	n, err := p.PurgeExpired(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Info("expired refresh tokens purged", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return nil
}
