package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/internal/services/strategy/ladder"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type strategyEngine interface {
	Evaluate(ctx context.Context, state domain.StrategyState, now time.Time) (domain.StrategyState, []domain.Command, error)
	Stop(ctx context.Context, state domain.StrategyState, reason string, now time.Time) (domain.StrategyState, []domain.Command, error)
}

type commandJournal interface {
	Append(commands []domain.Command) error
}

type snapshotPublisher interface {
	Publish(s domain.StatusSnapshot)
}

type cycleObserver interface {
	ObserveCycle(s domain.StatusSnapshot, commands []domain.Command, err error, took time.Duration)
}

// TradingBot drives one strategy engine on a fixed interval and owns its state.
type TradingBot struct {
	l         *zap.Logger
	conf      config.Config
	engine    strategyEngine
	journal   commandJournal
	publisher snapshotPublisher
	observer  cycleObserver
	now       func() time.Time

	mu    sync.RWMutex
	state domain.StrategyState

	stopOnce sync.Once
	stopCh   chan struct{}
}

// BotOption customizes a TradingBot.
type BotOption func(*TradingBot)

// WithJournal persists every command the engine issues.
func WithJournal(j commandJournal) BotOption {
	return func(b *TradingBot) { b.journal = j }
}

// WithPublisher publishes a status snapshot after every cycle.
func WithPublisher(p snapshotPublisher) BotOption {
	return func(b *TradingBot) { b.publisher = p }
}

// WithObserver reports every cycle outcome, e.g. to metrics.
func WithObserver(o cycleObserver) BotOption {
	return func(b *TradingBot) { b.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BotOption {
	return func(b *TradingBot) { b.now = now }
}

// NewTradingBot creates a bot for conf that runs engine.
func NewTradingBot(l *zap.Logger, conf config.Config, engine strategyEngine, opts ...BotOption) *TradingBot {
	b := &TradingBot{
		l:      l,
		conf:   conf,
		engine: engine,
		now:    time.Now,
		state:  domain.NewStrategyState(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Config returns the bot configuration.
func (b *TradingBot) Config() config.Config {
	return b.conf
}

// State returns a copy of the current strategy state.
func (b *TradingBot) State() domain.StrategyState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.state.Clone()
}

// Snapshot returns the current status projection.
func (b *TradingBot) Snapshot() domain.StatusSnapshot {
	return domain.NewStatusSnapshot(b.conf.Pair, b.conf.Platform, b.State(), b.now())
}

// Stop asks Run to cancel the open orders and return. The cycle in flight,
// if any, completes first; no further cycle starts.
func (b *TradingBot) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Run evaluates the strategy right away and then on every poll interval until
// the context is done, Stop is called, a fatal error occurs or the deal closes
// without restart_on_close. Open orders are cancelled on the way out.
func (b *TradingBot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.conf.PollPriceInterval)
	defer ticker.Stop()

	b.l.Info("starting trading loop", zap.Duration("poll_interval", b.conf.PollPriceInterval))

	for {
		select {
		case <-b.stopCh:
			return b.shutdown(ctx, domain.StopReasonRequested)
		default:
		}

		if err := b.runCycle(ctx); domain.IsFatal(err) {
			b.l.Error("fatal strategy error, stopping", zap.Error(err))
			return multierr.Combine(err, b.shutdown(ctx, domain.StopReasonFatalError))
		}

		switch state := b.State(); {
		case !state.Stopped():
		case len(state.PendingCancels) > 0:
			// the next cycle retries them; a new deal could be sold by a leftover order
			b.l.Warn("deal closed with orders left on the book",
				zap.String("reason", state.StopReason),
				zap.Int("pending_cancels", len(state.PendingCancels)))
		case !b.conf.RestartOnClose:
			b.l.Info("deal closed, bot finished", zap.String("reason", state.StopReason))
			return nil
		default:
			b.l.Info("deal closed, starting a new one", zap.String("reason", state.StopReason))
			b.setState(domain.NewStrategyState())
		}

		select {
		case <-ctx.Done():
			b.l.Info("context done, stopping trading loop")
			return multierr.Combine(ctx.Err(), b.shutdown(ctx, ladder.StopReasonFor(ctx.Err())))
		case <-b.stopCh:
			return b.shutdown(ctx, domain.StopReasonRequested)
		case <-ticker.C:
		}
	}
}

func (b *TradingBot) runCycle(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, b.conf.CycleTimeout)
	defer cancel()

	start := b.now()
	state, commands, err := b.engine.Evaluate(cctx, b.State(), start)
	b.setState(state)
	b.record(state, commands, err, b.now().Sub(start))

	switch {
	case err == nil:
	case domain.IsFatal(err):
	case domain.IsTransient(err):
		b.l.Warn("cycle skipped", zap.Error(err))
	default:
		b.l.Error("cycle failed", zap.Error(err))
	}

	return err
}

// shutdown stops the engine on a context that outlives ctx, so orders are
// cancelled even when ctx is already done.
func (b *TradingBot) shutdown(ctx context.Context, reason string) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.conf.CycleTimeout)
	defer cancel()

	start := b.now()
	state, commands, err := b.engine.Stop(sctx, b.State(), reason, start)
	b.setState(state)
	b.record(state, commands, err, b.now().Sub(start))

	if err != nil {
		b.l.Error("failed to cancel all orders on stop", zap.Error(err))
		return errors.Wrap(err, "stop strategy")
	}

	return nil
}

func (b *TradingBot) setState(s domain.StrategyState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *TradingBot) record(state domain.StrategyState, commands []domain.Command, err error, took time.Duration) {
	if b.journal != nil && len(commands) > 0 {
		if jerr := b.journal.Append(commands); jerr != nil {
			b.l.Error("failed to journal order commands", zap.Int("commands", len(commands)), zap.Error(jerr))
		}
	}

	snapshot := domain.NewStatusSnapshot(b.conf.Pair, b.conf.Platform, state, b.now())
	if b.publisher != nil {
		b.publisher.Publish(snapshot)
	}
	if b.observer != nil {
		b.observer.ObserveCycle(snapshot, commands, err, took)
	}
}
