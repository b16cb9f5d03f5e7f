// Command ladderbot runs DCA bots that buy a base order, average down with a
// ladder of safety orders and exit through a trailing take profit or stop loss.
//
// Usage:
//
//	ladderbot -config config.yaml -web :8080
//	ladderbot -pair ETH_USDT -platform simulate -console
//	ladderbot -setup
//	ladderbot -export orders.xlsx
//
// Required environment variables (also read from .env):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal"
	"github.com/vadiminshakov/ladderbot/internal/clients"
	"github.com/vadiminshakov/ladderbot/internal/console"
	"github.com/vadiminshakov/ladderbot/internal/events"
	"github.com/vadiminshakov/ladderbot/internal/monitoring"
	"github.com/vadiminshakov/ladderbot/internal/report"
	"github.com/vadiminshakov/ladderbot/internal/setup"
	"github.com/vadiminshakov/ladderbot/internal/storage/orders"
	"github.com/vadiminshakov/ladderbot/internal/web"
)

const snapshotBuffer = 64

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configs, opts, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if err := config.LoadEnv(opts.EnvFile); err != nil {
		logger.Fatal("failed to load env file", zap.Error(err))
	}

	if opts.Setup {
		path, err := setup.RunTUI(opts.ConfigPath)
		if err != nil {
			logger.Fatal("setup failed", zap.Error(err))
		}
		if configs, err = config.Load(path); err != nil {
			logger.Fatal("failed to load generated config", zap.Error(err))
		}
	}

	journal, err := orders.NewWALStore(opts.JournalDir)
	if err != nil {
		logger.Fatal("failed to open order journal", zap.Error(err))
	}
	defer journal.Close()

	if opts.ExportPath != "" {
		records, err := journal.RecordsAfter(0)
		if err != nil {
			logger.Fatal("failed to read order journal", zap.Error(err))
		}
		if err := report.WriteOrdersXLSX(records, opts.ExportPath); err != nil {
			logger.Fatal("failed to export order history", zap.Error(err))
		}
		logger.Info("order history exported", zap.String("path", opts.ExportPath), zap.Int("records", len(records)))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, configs, opts, journal); err != nil {
		logger.Error("ladderbot stopped with error", zap.Error(err))
		_ = journal.Close()
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("ladderbot stopped")
}

// run starts every bot plus the dashboard and console. It returns when all bots
// have finished or ctx is cancelled.
func run(ctx context.Context, logger *zap.Logger, configs []config.Config, opts config.Options, journal *orders.WALStore) error {
	broadcaster := events.NewSnapshotBroadcaster(snapshotBuffer)
	metrics := monitoring.NewMetrics()

	refresh := time.Duration(0)
	tradingBots := make([]*internal.TradingBot, 0, len(configs))
	for _, conf := range configs {
		creds, err := config.CredentialsFor(conf.Platform)
		if err != nil {
			return err
		}
		client, err := clients.ForPlatform(conf.Platform, creds, "")
		if err != nil {
			return err
		}

		bot, err := internal.NewBot(logger, conf, client,
			internal.WithJournal(journal),
			internal.WithPublisher(broadcaster),
			internal.WithObserver(metrics),
		)
		if err != nil {
			return err
		}
		tradingBots = append(tradingBots, bot)

		if refresh == 0 || conf.PollPriceInterval < refresh {
			refresh = conf.PollPriceInterval
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	// a fatal error in one bot leaves the others running
	var bots errgroup.Group

	for _, bot := range tradingBots {
		bots.Go(func() error { return bot.Run(gctx) })
		conf := bot.Config()
		logger.Info("started", zap.String("pair", conf.Pair.String()), zap.String("platform", conf.Platform))
	}

	g.Go(func() error {
		err := bots.Wait()
		// dashboard and console have nothing left to show
		cancel()
		return err
	})

	if opts.WebAddr != "" {
		server := web.NewServer(logger, opts.WebAddr, broadcaster, journal, metrics.Handler())
		g.Go(func() error {
			if opts.TLSDomain != "" {
				return server.StartWithAutoTLS(gctx, []string{opts.TLSDomain}, opts.TLSCacheDir)
			}
			return server.Start(gctx)
		})
	}

	if opts.Console && refresh > 0 {
		g.Go(func() error { return console.Run(gctx, os.Stdout, broadcaster, refresh) })
	}

	return g.Wait()
}
