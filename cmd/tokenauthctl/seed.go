package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/postgres"
	"go.uber.org/zap"
)

// Client secrets are hashed at the same cost as user passwords.
const clientSecretCost = 10

type clientStore interface {
	Exists(ctx context.Context, clientID string) (bool, error)
	CreateClient(ctx context.Context, c tokenauth.Client) (tokenauth.Client, error)
}

func runSeed(ctx context.Context, s *config.Settings, log *zap.Logger) error {
	seeds := s.ClientSeeds()
	if len(seeds) == 0 {
		return errors.New("no client credentials configured (HRM_CLIENT_ID/HRM_CLIENT_SECRET, CRM_CLIENT_ID/CRM_CLIENT_SECRET)")
	}

	db, err := postgres.Open(ctx, s.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	hasher, err := password.NewBcrypt(clientSecretCost)
	if err != nil {
		return err
	}
	return seedClients(ctx, postgres.NewClientRepository(db), hasher, seeds, log)
}

func seedClients(ctx context.Context, store clientStore, hasher password.Hasher, seeds []config.ClientSeed, log *zap.Logger) error {
	for _, seed := range seeds {
		exists, err := store.Exists(ctx, seed.ClientID)
		if err != nil {
			return err
		}
		if exists {
			log.Info("client exists, skipping", zap.String("client_id", seed.ClientID))
			continue
		}

		hash, err := hasher.Hash(seed.ClientSecret)
		if err != nil {
			return fmt.Errorf("hash secret for %s: %w", seed.ClientID, err)
		}
		_, err = store.CreateClient(ctx, tokenauth.Client{
			ClientID:   seed.ClientID,
			Name:       seed.Name,
			SecretHash: hash,
			IsActive:   true,
		})
		if errors.Is(err, postgres.ErrConflict) {
			log.Info("client created concurrently, skipping", zap.String("client_id", seed.ClientID))
			continue
		}
		if err != nil {
			return err
		}
		log.Info("client created", zap.String("client_id", seed.ClientID))
	}
	return nil
}
