package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/mtlprog/swapkit/internal/config"
	"github.com/mtlprog/swapkit/internal/database"
	"github.com/mtlprog/swapkit/internal/lending"
	"github.com/mtlprog/swapkit/internal/metadata"
	"github.com/mtlprog/swapkit/internal/pump"
	"github.com/mtlprog/swapkit/internal/sui"
)

var (
	errNoRegistry = errors.New("no token registry: set DATABASE_URL or METADATA_URL")
	errNoSigner   = errors.New("SIGNER_KEY is required")
	errNoLending  = errors.New("LENDING_PACKAGE_ID and LENDING_STORAGE_ID are required")
)

func newLedger(cfg config.Config) *sui.Client {
	client := sui.NewClient(cfg.SuiRPCURL, cfg.LedgerRetryMax, cfg.LedgerRetryBaseDelay, cfg.LedgerTimeout)
	client.SetGasBudget(cfg.GasBudget)
	client.SetFinalityTimeout(cfg.FinalityTimeout)
	return client
}

// newSigner loads the signing key; errNoSigner means none is configured.
func newSigner(cfg config.Config) (*sui.Ed25519Signer, error) {
	if cfg.SignerKey == "" {
		return nil, errNoSigner
	}
	return sui.NewEd25519Signer(cfg.SignerKey)
}

func contract(cfg config.Config) pump.Contract {
	return pump.Contract{
		Package:             cfg.PumpPackageID,
		CetusGlobalConfigID: cfg.CetusGlobalConfigID,
		CetusPoolsID:        cfg.CetusPoolsID,
	}
}

func market(cfg config.Config) lending.Market {
	return lending.Market{
		Package:   cfg.LendingPackageID,
		StorageID: cfg.LendingStorageID,
		Primary:   cfg.PrimaryCoinType,
	}
}

func migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrations sub-fs: %v", err))
	}
	return sub
}

// openRegistry prefers PostgreSQL, migrating it first, and falls back to the
// registry HTTP service. The returned close func is never nil.
func openRegistry(ctx context.Context, cfg config.Config) (metadata.Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, pool, migrations()); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("registry: using PostgreSQL")
		return metadata.NewCachedStore(metadata.NewPgStore(pool), metadata.DefaultCacheTTL), pool.Close, nil
	case cfg.MetadataURL != "":
		slog.Info("registry: using HTTP service", "url", cfg.MetadataURL)
		rest := metadata.NewRESTClient(cfg.MetadataURL, cfg.LedgerRetryBaseDelay, cfg.LedgerRetryMax)
		return metadata.NewCachedStore(rest, metadata.DefaultCacheTTL), func() {}, nil
	}
	return nil, nil, errNoRegistry
}
