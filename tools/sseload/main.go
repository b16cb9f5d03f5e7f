// Command sseload opens many concurrent connections to a ladderbot dashboard
// stream and reports how many events arrive.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	var (
		cfg      loadConfig
		duration time.Duration
	)
	flag.StringVar(&cfg.url, "url", "http://localhost:8080/status/stream", "SSE endpoint URL")
	flag.IntVar(&cfg.connections, "conns", 1000, "number of concurrent connections to open")
	flag.DurationVar(&duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&cfg.rampUp, "ramp", 0, "spread connection starts across this window")
	flag.DurationVar(&cfg.report, "report", 5*time.Second, "progress report interval")
	flag.Parse()

	if cfg.connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", cfg.connections))
	}
	if cfg.rampUp == 0 && cfg.connections > 100 {
		// 1 second per 500 connections, at least 1 second
		cfg.rampUp = max(time.Duration(cfg.connections/500)*time.Second, time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	logger.Info("starting SSE load", zap.String("url", cfg.url), zap.Int("conns", cfg.connections),
		zap.Duration("duration", duration), zap.Duration("ramp", cfg.rampUp))

	start := time.Now()
	c := runLoad(ctx, logger, cfg)
	elapsed := time.Since(start)

	total := c.statuses.Load() + c.orders.Load() + c.other.Load()
	logger.Info("done", append(c.fields(),
		zap.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
		zap.Float64("events_per_sec", float64(total)/max(elapsed.Seconds(), 0.001)))...)
}
