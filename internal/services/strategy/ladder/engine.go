// Package ladder implements the safety-order ladder strategy with trailing
// take-profit and stop-loss protection.
package ladder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"go.uber.org/zap"
)

type exchangeClient interface {
	GetCurrentPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	PlaceBuy(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error)
	PlaceSell(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error)
	CancelOrder(ctx context.Context, pair domain.Pair, orderID string) error
	CancelAll(ctx context.Context, pair domain.Pair) error
	OrderStatus(ctx context.Context, pair domain.Pair, orderID string) (domain.OrderStatus, error)
}

// Engine decides which orders to place, cancel and replace for one pair.
// It holds no strategy state; callers pass the state in and keep the result.
type Engine struct {
	l          *zap.Logger
	pair       domain.Pair
	cfg        domain.StrategyConfig
	exchange   exchangeClient
	newOrderID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithOrderIDs overrides the client order id generator.
func WithOrderIDs(gen func() string) Option {
	return func(e *Engine) {
		e.newOrderID = gen
	}
}

// NewEngine creates an engine for pair after validating cfg.
func NewEngine(l *zap.Logger, pair domain.Pair, cfg domain.StrategyConfig, exchange exchangeClient, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if exchange == nil {
		return nil, errors.Wrap(domain.ErrConfiguration, "exchange client is required")
	}
	if l == nil {
		l = zap.NewNop()
	}

	e := &Engine{
		l:          l,
		pair:       pair,
		cfg:        cfg,
		exchange:   exchange,
		newOrderID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Pair returns the traded pair.
func (e *Engine) Pair() domain.Pair {
	return e.pair
}

// Config returns the strategy parameters.
func (e *Engine) Config() domain.StrategyConfig {
	return e.cfg
}

// Evaluate runs one strategy cycle against a single price observation.
// A stopped state only has its pending cancels retried. The input state is
// never modified. Commands list every order operation
// performed, including failed ones. A non-nil error means the cycle was cut
// short; the returned state is still consistent and must replace the input.
func (e *Engine) Evaluate(ctx context.Context, state domain.StrategyState, now time.Time) (domain.StrategyState, []domain.Command, error) {
	if state.Settled() {
		return state, nil, nil
	}

	c := &cycle{Engine: e, ctx: ctx, state: state.Clone(), now: now}
	c.state.UpdatedAt = now
	if c.state.Stopped() {
		err := c.retryPendingCancels()
		return c.state, c.commands, err
	}

	price, err := e.exchange.GetCurrentPrice(ctx, e.pair)
	if err != nil {
		return c.state, nil, classify(err, domain.ErrMarketDataUnavailable, "get current price")
	}
	c.state.LastPrice = price

	err = c.run(price)

	return c.state, c.commands, err
}

// cycle carries the working copy of the state through one Evaluate call.
type cycle struct {
	*Engine
	ctx      context.Context
	state    domain.StrategyState
	commands []domain.Command
	now      time.Time
}

func (c *cycle) run(price decimal.Decimal) error {
	switch c.state.Phase {
	case domain.PhaseIdle:
		return c.placeBaseOrder(price)
	case domain.PhaseBaseOrderPlaced:
		// base order is on the book but the ladder was never built
		return c.buildLadder()
	}

	if c.state.ProtectionArmed() {
		closed, err := c.detectExit()
		if closed || err != nil {
			return err
		}
	}

	if err := c.fillNextRung(price); err != nil {
		return err
	}

	if !c.state.ProtectionArmed() {
		return nil
	}

	c.trail(price)

	return c.reconcileProtection()
}

func (c *cycle) placeBaseOrder(price decimal.Decimal) error {
	if !c.canPlace() {
		return nil
	}
	if err := c.ensureQuote(c.cfg.BaseOrderSize); err != nil {
		return errors.Wrap(err, "base order")
	}

	size := c.cfg.BaseOrderSize.Div(price)
	order, err := c.place(domain.RoleBase, domain.SideBuy, size, price, 0)
	if err != nil {
		return err
	}

	one := decimal.NewFromInt(1)
	tp := price.Mul(one.Add(c.cfg.TakeProfitPercentage))
	sl := price.Mul(one.Sub(c.cfg.InitialStopLossPercentage))

	c.state.BaseOrder = &order
	c.state.TakeProfitPrice = &tp
	c.state.StopLossPrice = &sl
	c.state.Phase = domain.PhaseBaseOrderPlaced

	c.l.Info("base order placed",
		zap.String("price", order.Price.String()),
		zap.String("size", order.Size.String()),
		zap.String("take_profit", tp.String()),
		zap.String("stop_loss", sl.String()))

	return c.buildLadder()
}

func (c *cycle) buildLadder() error {
	basePrice, _ := c.state.BaseOrder.Requested()
	rungs, err := domain.BuildLadder(basePrice, c.cfg)
	if err != nil {
		return err
	}

	c.state.Ladder = rungs
	c.state.Phase = domain.PhaseSafetyOrdersActive
	if len(rungs) == 0 {
		// nothing to average into, protect the base position right away
		c.state.Phase = domain.PhaseProtectivelyHedged
		return c.reconcileProtection()
	}

	return nil
}

// ensureQuote checks the free quote balance covers notional.
func (c *cycle) ensureQuote(notional decimal.Decimal) error {
	balance, err := c.exchange.GetBalance(c.ctx, c.pair.To)
	if err != nil {
		return classify(err, domain.ErrAccountUnavailable, "get quote balance")
	}
	if balance.LessThan(notional) {
		err := domain.NewOrderRejected(domain.RejectInsufficientFunds,
			"%s balance %s is below %s", c.pair.To, balance.String(), notional.String())
		c.noteRejection(err)
		return err
	}
	return nil
}

// place submits a limit order and records the command.
func (c *cycle) place(role domain.OrderRole, side domain.Side, size, price decimal.Decimal, rung int) (domain.Order, error) {
	id := c.newOrderID()

	var (
		placed domain.Order
		err    error
	)
	if side == domain.SideBuy {
		placed, err = c.exchange.PlaceBuy(c.ctx, c.pair, size, price, id)
	} else {
		placed, err = c.exchange.PlaceSell(c.ctx, c.pair, size, price, id)
	}

	order := domain.Order{
		ID:              id,
		ExchangeOrderID: placed.ExchangeOrderID,
		Role:            role,
		Side:            side,
		Price:           price,
		Size:            size,
		Status:          placed.Status,
		RequestedPrice:  price,
		RequestedSize:   size,
		RungIndex:       rung,
		CreatedAt:       c.now,
	}
	// the venue may round the request down to its lot and tick
	if placed.Price.IsPositive() {
		order.Price = placed.Price
	}
	if placed.Size.IsPositive() {
		order.Size = placed.Size
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusOpen
	}

	c.commands = append(c.commands, domain.PlaceCommand(c.pair, order, err, c.now))
	if err != nil {
		c.noteRejection(err)
		if domain.IsFatal(err) {
			return domain.Order{}, errors.Wrapf(domain.ErrConfiguration, "%s order rejected permanently: %v", role, err)
		}
		return domain.Order{}, errors.Wrapf(err, "place %s order", role)
	}

	c.state.RejectStreak = 0
	c.state.RetryAfter = time.Time{}

	return order, nil
}

// classify keeps domain errors as they are and tags anything else with sentinel.
func classify(err error, sentinel error, msg string) error {
	if errors.Is(err, sentinel) || domain.IsFatal(err) {
		return errors.Wrap(err, msg)
	}
	return errors.Wrapf(sentinel, "%s: %v", msg, err)
}
