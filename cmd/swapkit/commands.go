package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/swapkit/internal/api"
	"github.com/mtlprog/swapkit/internal/coinselect"
	"github.com/mtlprog/swapkit/internal/config"
	"github.com/mtlprog/swapkit/internal/database"
	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/export"
	"github.com/mtlprog/swapkit/internal/lending"
	"github.com/mtlprog/swapkit/internal/metrics"
	"github.com/mtlprog/swapkit/internal/preview"
	"github.com/mtlprog/swapkit/internal/trade"
	"github.com/mtlprog/swapkit/internal/worker"
)

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the token status worker",
		Action: func(c *cli.Context) error {
			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ledger := newLedger(cfg)
	registry, closeRegistry, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	engine := preview.NewEngine(ledger, previewConfig(cfg), recorder)

	var trader api.Trader
	var pools export.PoolReader
	signer, err := newSigner(cfg)
	switch {
	case errors.Is(err, errNoSigner):
		slog.Warn("SIGNER_KEY not set, trade endpoint disabled")
	case err != nil:
		return err
	default:
		trader = trade.NewExecutor(ledger, signer, contract(cfg), cfg.PrimaryCoinType, registry, recorder)
		if cfg.HasLending() {
			pools = lending.NewService(ledger, signer, market(cfg), registry)
		}
		slog.Info("trading enabled", "address", signer.Address())
	}

	var hook worker.AfterSyncHook
	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentials != "" {
		sheetsWriter, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentials)
		if err != nil {
			return err
		}
		hook = export.NewService(registry, pools, sheetsWriter, cfg.PrimaryCoinType)
	}

	statusWorker := worker.NewStatusWorker(ledger, registry, cfg.StatusWorkerInterval, recorder, hook)
	go statusWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, trade endpoint is not mounted")
	}

	handler := api.NewSessionHandler(api.NewHandler(ledger, registry, cfg.PrimaryCoinType), engine, trader)
	srv := api.NewServer(cfg.HTTPPort, handler, reg, cfg.AdminAPIKey)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

func previewConfig(cfg config.Config) preview.Config {
	return preview.Config{
		Primary:         cfg.PrimaryCoinType,
		PrimaryDecimals: cfg.PrimaryDecimals,
		Contract:        contract(cfg),
		Rate:            cfg.PreviewRate,
		Burst:           cfg.PreviewBurst,
		SessionTTL:      cfg.PreviewSessionTTL,
		MaxSessions:     cfg.PreviewMaxSessions,
	}
}

func planCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "show how an owner's coins fund an exact amount",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "coin owner address", Required: true},
			&cli.StringFlag{Name: "coin-type", Usage: "coin type (default: primary coin)"},
			&cli.StringFlag{Name: "amount", Usage: "amount in whole coins", Required: true},
			&cli.IntFlag{Name: "decimals", Usage: "coin precision", Value: int(domain.PrimaryDecimals)},
		},
		Action: func(c *cli.Context) error {
			coinType := domain.CoinType(c.String("coin-type"))
			if coinType == "" {
				coinType = cfg.PrimaryCoinType
			}
			target, err := domain.ParseAmount(c.String("amount"), int32(c.Int("decimals")))
			if err != nil {
				return err
			}
			coins, err := newLedger(cfg).ListCoins(c.Context, c.String("owner"), coinType)
			if err != nil {
				return err
			}
			plan, err := coinselect.Select(coins, target)
			if err != nil {
				return err
			}
			return printJSON(plan)
		},
	}
}

func previewCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "simulate a buy or sell and print the expected output",
		Flags: tradeFlags(&cli.StringFlag{Name: "sender", Usage: "address to simulate as", Required: true}),
		Action: func(c *cli.Context) error {
			registry, closeRegistry, err := openRegistry(c.Context, cfg)
			if err != nil {
				return err
			}
			defer closeRegistry()

			token, err := registry.GetToken(c.Context, domain.CoinType(c.String("token")))
			if err != nil {
				return err
			}
			view, err := runPreview(c.Context, cfg, c.String("sender"), token, domain.Direction(c.String("direction")), c.String("amount"))
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
}

func runPreview(ctx context.Context, cfg config.Config, sender string, token domain.Token, dir domain.Direction, amount string) (preview.View, error) {
	engine := preview.NewEngine(newLedger(cfg), previewConfig(cfg), nil)
	s, err := engine.Open(uuid.NewString(), sender, token, dir)
	if err != nil {
		return preview.View{}, err
	}
	defer engine.Close(s.ID())

	view, outcome := s.SetAmount(ctx, amount)
	if outcome == preview.OutcomeFailed {
		return view, view.Err
	}
	return view, nil
}

func tradeFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{Name: "token", Usage: "token coin type", Required: true},
		&cli.StringFlag{Name: "direction", Usage: "buy or sell", Value: string(domain.DirectionBuy)},
		&cli.StringFlag{Name: "amount", Usage: "amount of the input coin, in whole coins", Required: true},
	}, extra...)
}

func tradeCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "trade",
		Usage: "preview, then sign and submit a buy or sell",
		Flags: tradeFlags(),
		Action: func(c *cli.Context) error {
			signer, err := newSigner(cfg)
			if err != nil {
				return err
			}
			registry, closeRegistry, err := openRegistry(c.Context, cfg)
			if err != nil {
				return err
			}
			defer closeRegistry()

			token, err := registry.GetToken(c.Context, domain.CoinType(c.String("token")))
			if err != nil {
				return err
			}
			dir := domain.Direction(c.String("direction"))

			// The preview settles the exact input and whether the graduation call is needed.
			view, err := runPreview(c.Context, cfg, signer.Address(), token, dir, c.String("amount"))
			if err != nil {
				return err
			}
			if view.State != preview.StateApplied {
				return fmt.Errorf("nothing to trade for amount %q", c.String("amount"))
			}
			if view.Adjusted {
				slog.Warn("sell amount reduced to what the pool absorbs", "input", view.Input)
			}

			executor := trade.NewExecutor(newLedger(cfg), signer, contract(cfg), cfg.PrimaryCoinType, registry, nil)
			out, err := executor.Execute(c.Context, trade.Order{
				Sender:     signer.Address(),
				Token:      token,
				Direction:  dir,
				Amount:     view.InputUnits,
				CreatePool: view.WillTriggerStateTransition,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"id":         out.ID,
				"digest":     out.Digest,
				"checkpoint": out.Checkpoint,
				"paid":       out.Paid.String(),
				"received":   out.Received.String(),
				"poolId":     out.PoolID,
			})
		},
	}
}

func lendCommand(cfg config.Config) *cli.Command {
	assetFlag := &cli.StringFlag{Name: "asset", Usage: "listed coin type", Required: true}
	amountFlag := &cli.StringFlag{Name: "amount", Usage: "amount in whole coins", Required: true}

	actionCommand := func(action lending.Action, usage string) *cli.Command {
		return &cli.Command{
			Name:  string(action),
			Usage: usage,
			Flags: []cli.Flag{assetFlag, amountFlag},
			Action: func(c *cli.Context) error {
				return withLending(c.Context, cfg, func(svc *lending.Service, registry lendingRegistry) error {
					asset, err := registry.GetLending(c.Context, domain.CoinType(c.String("asset")))
					if err != nil {
						return err
					}
					amount, err := domain.ParseAmount(c.String("amount"), decimalsOr(asset.Decimals, cfg.PrimaryDecimals))
					if err != nil {
						return err
					}
					receipt, err := svc.Do(c.Context, action, asset, amount)
					if err != nil {
						return err
					}
					return printJSON(map[string]string{"digest": receipt.Digest, "checkpoint": receipt.Checkpoint})
				})
			},
		}
	}

	return &cli.Command{
		Name:  "lend",
		Usage: "lending market operations",
		Subcommands: []*cli.Command{
			actionCommand(lending.ActionSupply, "supply coins to a lending pool"),
			actionCommand(lending.ActionWithdraw, "withdraw supplied coins"),
			actionCommand(lending.ActionBorrow, "borrow against supplied collateral"),
			actionCommand(lending.ActionRepay, "repay borrowed coins"),
			{
				Name:  "add",
				Usage: "list a launched token in the lending market",
				Flags: []cli.Flag{
					assetFlag,
					&cli.IntFlag{Name: "ltv", Usage: "loan-to-value, percent", Value: 50},
					&cli.IntFlag{Name: "liquidation-threshold", Usage: "percent", Value: 75},
				},
				Action: func(c *cli.Context) error {
					return withLending(c.Context, cfg, func(svc *lending.Service, registry lendingRegistry) error {
						coinType := domain.CoinType(c.String("asset"))
						asset := domain.Lending{
							Type:                 coinType,
							Symbol:               coinType.Symbol(),
							Name:                 coinType.Symbol(),
							Decimals:             cfg.PrimaryDecimals,
							LTV:                  c.Int("ltv"),
							LiquidationThreshold: c.Int("liquidation-threshold"),
						}
						var bondingPool string
						if !coinType.Equal(cfg.PrimaryCoinType) {
							token, err := registry.GetToken(c.Context, coinType)
							if err != nil {
								return err
							}
							bondingPool = token.PoolID
							asset.Name, asset.Symbol, asset.Icon = token.Name, token.Symbol, token.Icon
							asset.Decimals, asset.MetadataID = decimalsOr(token.Decimals, cfg.PrimaryDecimals), token.MetadataID
						}
						listed, err := svc.AddAsset(c.Context, asset, bondingPool)
						if err != nil {
							return err
						}
						return printJSON(listed)
					})
				},
			},
			{
				Name:  "pool",
				Usage: "show a lending pool's reserves and rates",
				Flags: []cli.Flag{assetFlag},
				Action: func(c *cli.Context) error {
					return withLending(c.Context, cfg, func(svc *lending.Service, registry lendingRegistry) error {
						asset, err := registry.GetLending(c.Context, domain.CoinType(c.String("asset")))
						if err != nil {
							return err
						}
						stats, err := svc.Pool(c.Context, asset)
						if err != nil {
							return err
						}
						dec := decimalsOr(asset.Decimals, cfg.PrimaryDecimals)
						return printJSON(map[string]any{
							"reserves":      domain.FormatAmount(stats.Reserves, dec),
							"totalSupplies": domain.FormatAmount(stats.TotalSupplies, dec),
							"totalBorrows":  domain.FormatAmount(stats.TotalBorrows, dec),
							"supplyRate":    stats.SupplyRate.StringFixed(2),
							"borrowRate":    stats.BorrowRate.StringFixed(2),
							"utilization":   stats.Utilization().StringFixed(2),
							"lastUpdate":    stats.LastUpdate,
						})
					})
				},
			},
		},
	}
}

type lendingRegistry interface {
	lending.Registry
	GetLending(ctx context.Context, coinType domain.CoinType) (domain.Lending, error)
	GetToken(ctx context.Context, coinType domain.CoinType) (domain.Token, error)
}

func withLending(ctx context.Context, cfg config.Config, fn func(*lending.Service, lendingRegistry) error) error {
	if !cfg.HasLending() {
		return errNoLending
	}
	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}
	registry, closeRegistry, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()
	return fn(lending.NewService(newLedger(cfg), signer, market(cfg), registry), registry)
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write token and lending status to an XLSX file or Google Sheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "XLSX path; omit to write to GOOGLE_SHEETS_ID"},
		},
		Action: func(c *cli.Context) error {
			registry, closeRegistry, err := openRegistry(c.Context, cfg)
			if err != nil {
				return err
			}
			defer closeRegistry()

			var writer export.SheetWriter
			if path := c.String("out"); path != "" {
				writer = export.NewXLSXWriter(path)
			} else {
				if cfg.GoogleSheetsID == "" || cfg.GoogleCredentials == "" {
					return fmt.Errorf("--out or GOOGLE_SHEETS_ID and GOOGLE_CREDENTIALS_JSON are required")
				}
				if writer, err = export.NewSheetsWriter(c.Context, cfg.GoogleSheetsID, cfg.GoogleCredentials); err != nil {
					return err
				}
			}

			var pools export.PoolReader
			if signer, err := newSigner(cfg); err == nil && cfg.HasLending() {
				pools = lending.NewService(newLedger(cfg), signer, market(cfg), nil)
			}
			if err := export.NewService(registry, pools, writer, cfg.PrimaryCoinType).Export(c.Context); err != nil {
				return err
			}
			slog.Info("export completed")
			return nil
		},
	}
}

func migrateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Action: func(c *cli.Context) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			pool, err := database.Connect(c.Context, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.RunMigrations(c.Context, pool, migrations()); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}

func decimalsOr(d, fallback int32) int32 {
	if d > 0 {
		return d
	}
	return fallback
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
