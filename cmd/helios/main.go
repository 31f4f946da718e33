package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/broker/alpaca"
	"github.com/helios-trade/helios/internal/config"
	"github.com/helios-trade/helios/internal/journal"
	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/market"
	"github.com/helios-trade/helios/internal/server"
	"github.com/helios-trade/helios/internal/strategy"
	"github.com/helios-trade/helios/internal/trader"
	"github.com/helios-trade/helios/pkg/errors"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the YAML config file",
		Value:    "helios.yaml",
		Required: false,
	}

	cmd := &cli.Command{
		Name:  "helios",
		Usage: "Automated trading loop",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the trading loop",
				Flags:  []cli.Flag{configFlag},
				Action: runAction,
			},
			{
				Name:  "diagnose",
				Usage: "Probe data feeds and timeframes for a symbol",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"s"},
						Usage:    "Symbol to probe",
						Required: true,
					},
				},
				Action: diagnoseAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// runAction wires the whole system together and runs the loop until an
// interrupt arrives.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	logg, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logg.Sync()

	retry := broker.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		Base:        cfg.RetryBase,
		Min:         broker.DefaultRetryConfig().Min,
		Max:         broker.DefaultRetryConfig().Max,
	}

	client, err := alpaca.New(alpaca.Options{
		APIKey:      cfg.Alpaca.APIKey,
		APISecret:   cfg.Alpaca.APISecret,
		Paper:       cfg.Alpaca.Paper,
		BaseURL:     "",
		DataBaseURL: "",
		Retry:       retry,
	}, logg)
	if err != nil {
		return err
	}

	if err := client.VerifyConnection(ctx); err != nil {
		return err
	}

	source, err := newBarSource(cfg, client)
	if err != nil {
		return err
	}

	fetcher := market.NewFetcher(source, market.FetcherConfig{Feeds: nil, Retry: retry}, logg)
	provider := market.NewProvider(fetcher, cfg.CacheTTL(), logg)

	strategies, err := buildStrategies(cfg, logg)
	if err != nil {
		return err
	}

	sizer, err := trader.NewSizer(cfg.RiskPerTrade, logg)
	if err != nil {
		return err
	}

	var jnl *journal.Journal
	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath, logg)
		if err != nil {
			return err
		}
	}

	t := trader.New(client, provider, strategies, sizer, jnl, trader.Config{
		Symbols:         cfg.Symbols,
		MaxPositions:    cfg.MaxPositions,
		MarketHoursOnly: cfg.MarketHoursOnly,
		Cooldown:        cfg.Cooldown(),
	}, logg)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ServerAddr != "" {
		srv := server.New(cfg.ServerAddr, t, fetcher, provider, logg)

		go func() {
			if err := srv.Start(); err != nil {
				logg.Error("status server failed", zap.Error(err))
			}
		}()

		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logg.Warn("status server shutdown failed", zap.Error(err))
			}
		}()
	}

	return t.Run(runCtx)
}

// diagnoseAction probes every feed and timeframe for one symbol and prints
// the report.
func diagnoseAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	logg, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logg.Sync()

	client, err := alpaca.New(alpaca.Options{
		APIKey:      cfg.Alpaca.APIKey,
		APISecret:   cfg.Alpaca.APISecret,
		Paper:       cfg.Alpaca.Paper,
		BaseURL:     "",
		DataBaseURL: "",
		Retry:       broker.DefaultRetryConfig(),
	}, logg)
	if err != nil {
		return err
	}

	source, err := newBarSource(cfg, client)
	if err != nil {
		return err
	}

	report := market.DiagnoseFeeds(ctx, source, cmd.String("symbol"), nil, logg)

	fmt.Printf("\nFeed diagnostics for %s:\n", report.Symbol)

	for _, result := range report.Results {
		status := "FAIL"
		if result.OK {
			status = "OK"
		}

		fmt.Printf("  %-8s %-6s %-4s bars=%d elapsed=%s %s\n",
			result.Feed, result.Timeframe, status, result.BarCount, result.Elapsed, result.Error)
	}

	if report.WorkingFeed != "" {
		fmt.Printf("\nFirst working feed: %s\n", report.WorkingFeed)
	} else {
		fmt.Println("\nNo working feed found.")
	}

	return nil
}

// schemaAction prints the config JSON schema for editor integration.
func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := strategy.ToJSONSchema(config.Config{})
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// newBarSource builds the configured bar source. Alpaca reuses the trading
// client; polygon and binance get dedicated sources.
func newBarSource(cfg *config.Config, client *alpaca.Client) (market.BarSource, error) {
	switch cfg.DataSource {
	case "alpaca":
		return client, nil
	case "polygon":
		return market.NewPolygonSource(cfg.PolygonAPIKey)
	case "binance":
		return market.NewBinanceSource(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown data source %q", cfg.DataSource)
	}
}

// buildStrategies instantiates the configured strategy set.
func buildStrategies(cfg *config.Config, logg *logger.Logger) ([]strategy.Strategy, error) {
	strategies := make([]strategy.Strategy, 0, len(cfg.Strategies))

	for _, sc := range cfg.Strategies {
		switch sc.Type {
		case "ma_crossover":
			mc := sc.MACrossover
			if mc.Timeframe == "" {
				mc.Timeframe = cfg.Timeframe
			}

			strat, err := strategy.NewMACrossover(mc, logg)
			if err != nil {
				return nil, err
			}

			strategies = append(strategies, strat)
		default:
			return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy type %q", sc.Type)
		}
	}

	return strategies, nil
}
