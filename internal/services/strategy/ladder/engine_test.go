package ladder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"go.uber.org/zap"
)

type placedCall struct {
	id    string
	side  domain.Side
	size  decimal.Decimal
	price decimal.Decimal
}

// fakeExchange is a scripted exchange: buys fill immediately, sells rest on the book.
type fakeExchange struct {
	price        decimal.Decimal
	priceErr     error
	balance      decimal.Decimal
	balanceErr   error
	buyErrs      []error
	sellErrs     []error
	cancelErrs   map[string]error
	cancelAllErr error
	statuses     map[string]domain.OrderStatus
	// lotStep, when set, floors order sizes the way a venue would; held is the
	// base quantity bought so far, sells above it are rejected.
	lotStep decimal.Decimal
	held    decimal.Decimal

	buys           []placedCall
	sells          []placedCall
	cancels        []string
	cancelAllCalls int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		balance:    decimal.NewFromInt(10000),
		cancelErrs: make(map[string]error),
		statuses:   make(map[string]domain.OrderStatus),
	}
}

func (f *fakeExchange) GetCurrentPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return f.price, f.priceErr
}

func (f *fakeExchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExchange) PlaceBuy(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, id string) (domain.Order, error) {
	f.buys = append(f.buys, placedCall{id: id, side: domain.SideBuy, size: size, price: price})
	if err := pop(&f.buyErrs); err != nil {
		return domain.Order{}, err
	}
	if !f.lotStep.IsPositive() {
		return domain.Order{ID: id, ExchangeOrderID: "x-" + id, Status: domain.OrderStatusFilled}, nil
	}
	qty := f.floor(size)
	f.held = f.held.Add(qty)
	return domain.Order{ID: id, ExchangeOrderID: "x-" + id, Price: price, Size: qty, Status: domain.OrderStatusFilled}, nil
}

func (f *fakeExchange) PlaceSell(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, id string) (domain.Order, error) {
	f.sells = append(f.sells, placedCall{id: id, side: domain.SideSell, size: size, price: price})
	if err := pop(&f.sellErrs); err != nil {
		return domain.Order{}, err
	}
	if !f.lotStep.IsPositive() {
		return domain.Order{ID: id, ExchangeOrderID: "x-" + id, Status: domain.OrderStatusOpen}, nil
	}
	qty := f.floor(size)
	if qty.GreaterThan(f.held) {
		return domain.Order{}, domain.NewOrderRejected(domain.RejectInsufficientFunds,
			"sell %s exceeds held %s", qty.String(), f.held.String())
	}
	return domain.Order{ID: id, ExchangeOrderID: "x-" + id, Price: price, Size: qty, Status: domain.OrderStatusOpen}, nil
}

func (f *fakeExchange) floor(size decimal.Decimal) decimal.Decimal {
	return size.Div(f.lotStep).Floor().Mul(f.lotStep)
}

func (f *fakeExchange) CancelOrder(ctx context.Context, pair domain.Pair, orderID string) error {
	f.cancels = append(f.cancels, orderID)
	return f.cancelErrs[orderID]
}

func (f *fakeExchange) CancelAll(ctx context.Context, pair domain.Pair) error {
	f.cancelAllCalls++
	return f.cancelAllErr
}

func (f *fakeExchange) OrderStatus(ctx context.Context, pair domain.Pair, orderID string) (domain.OrderStatus, error) {
	if status, ok := f.statuses[orderID]; ok {
		return status, nil
	}
	return domain.OrderStatusOpen, nil
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("o-%d", n)
	}
}

var (
	testPair = domain.Pair{From: "BTC", To: "USDT"}
	t0       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T, fx *fakeExchange, cfg domain.StrategyConfig) *Engine {
	t.Helper()
	e, err := NewEngine(zap.NewNop(), testPair, cfg, fx, WithOrderIDs(sequentialIDs()))
	require.NoError(t, err)
	return e
}

// evaluateAt sets the fake price and runs one cycle.
func evaluateAt(t *testing.T, e *Engine, fx *fakeExchange, state domain.StrategyState, price string, now time.Time) (domain.StrategyState, []domain.Command, error) {
	t.Helper()
	fx.price = dec(price)
	return e.Evaluate(context.Background(), state, now)
}

// hedge places the base order at 100 and fills rung 1 at 97.
// Orders: o-1 base, o-2 safety, o-3 take profit, o-4 stop loss.
func hedge(t *testing.T, e *Engine, fx *fakeExchange) domain.StrategyState {
	t.Helper()
	state, _, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.NoError(t, err)
	state, _, err = evaluateAt(t, e, fx, state, "97", t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.PhaseProtectivelyHedged, state.Phase)
	require.Equal(t, "o-3", state.TakeProfitOrder.ID)
	require.Equal(t, "o-4", state.StopLossOrder.ID)
	return state
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.TakeProfitPercentage = decimal.Zero

	_, err := NewEngine(zap.NewNop(), testPair, cfg, newFakeExchange())
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestNewEngine_LadderDeeperThanBasePrice(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.SafetyOrderStepScale = decimal.NewFromInt(2)
	cfg.MaxSafetyOrders = 7

	fx := newFakeExchange()
	_, err := NewEngine(zap.NewNop(), testPair, cfg, fx)
	require.True(t, errors.Is(err, domain.ErrConfiguration))
	require.Empty(t, fx.buys)
}

func TestEvaluate_BaseOrder(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, commands, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.NoError(t, err)

	require.Len(t, commands, 1)
	assert.Equal(t, domain.CommandPlaceBuy, commands[0].Kind)
	assert.Equal(t, domain.RoleBase, commands[0].Role)

	require.NotNil(t, state.BaseOrder)
	assert.True(t, state.BaseOrder.Size.Equal(dec("0.1")))
	assert.True(t, state.BaseOrder.Price.Equal(dec("100")))
	assert.Equal(t, "x-o-1", state.BaseOrder.ExchangeOrderID)
	assert.True(t, state.TakeProfitPrice.Equal(dec("103")))
	assert.True(t, state.StopLossPrice.Equal(dec("99")))
	assert.Equal(t, domain.PhaseSafetyOrdersActive, state.Phase)
	assert.Len(t, state.Ladder, 3)
	assert.Nil(t, state.TakeProfitOrder)
	assert.Nil(t, state.StopLossOrder)
	assert.Empty(t, fx.sells)
}

func TestEvaluate_TracksVenueRoundedSizes(t *testing.T) {
	fx := newFakeExchange()
	fx.lotStep = dec("0.00001")
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, _, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "30001", t0)
	require.NoError(t, err)
	assert.Equal(t, "0.00033", state.BaseOrder.Size.String())
	assert.True(t, state.BaseOrder.RequestedSize.GreaterThan(state.BaseOrder.Size))
	assert.Equal(t, "30001", state.BaseOrder.Price.String())

	// rung 1 triggers at 29550.985
	state, _, err = evaluateAt(t, e, fx, state, "29500", t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.PhaseProtectivelyHedged, state.Phase)
	assert.Equal(t, "0.00066", state.PositionSize().String())

	// the requested sizes add up to 0.000671..., which floors above what is held
	require.Len(t, fx.sells, 2)
	for _, sell := range fx.sells {
		assert.True(t, sell.size.Equal(fx.held), "sell size %s, held %s", sell.size, fx.held)
	}
	assert.Equal(t, "0.00066", state.TakeProfitOrder.Size.String())
	assert.Equal(t, "0.00066", state.StopLossOrder.Size.String())

	_, commands, err := evaluateAt(t, e, fx, state, "29600", t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, commands, "rounded protective orders are not churned")
}

func TestEvaluate_NoChangeIssuesNoCommands(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	next, commands, err := evaluateAt(t, e, fx, state, "97", t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Empty(t, commands)

	assert.Equal(t, t0.Add(2*time.Minute), next.UpdatedAt)
	next.UpdatedAt = state.UpdatedAt
	assert.Equal(t, state, next)
}

func TestEvaluate_OneRungPerCycle(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, _, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.NoError(t, err)

	// 90 is below every rung trigger (98.5, 96.25, 92.875)
	for i := 1; i <= 3; i++ {
		var commands []domain.Command
		state, commands, err = evaluateAt(t, e, fx, state, "90", t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)

		require.Len(t, state.FilledSafetyOrders, i)
		assert.Equal(t, i, state.FilledSafetyOrders[i-1].RungIndex)
		assert.Len(t, state.Ladder, 3-i)

		buys := 0
		for _, c := range commands {
			if c.Kind == domain.CommandPlaceBuy {
				buys++
			}
		}
		assert.Equal(t, 1, buys)

		require.NotNil(t, state.TakeProfitOrder)
		require.NotNil(t, state.StopLossOrder)
		assert.True(t, state.TakeProfitOrder.Size.Equal(state.PositionSize()))
		assert.True(t, state.StopLossOrder.Size.Equal(state.PositionSize()))
	}

	_, commands, err := evaluateAt(t, e, fx, state, "90", t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, commands)
	assert.Len(t, fx.buys, 4)
}

func TestEvaluate_SafetyFillReplacesProtection(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	state, commands, err := evaluateAt(t, e, fx, state, "96", t0.Add(2*time.Minute))
	require.NoError(t, err)

	kinds := make([]domain.CommandKind, 0, len(commands))
	for _, c := range commands {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []domain.CommandKind{
		domain.CommandPlaceBuy,
		domain.CommandCancel, domain.CommandPlaceSell,
		domain.CommandCancel, domain.CommandPlaceSell,
	}, kinds)
	assert.Equal(t, []string{"o-3", "o-4"}, fx.cancels)
	assert.True(t, state.TakeProfitOrder.Size.Equal(state.PositionSize()))
	assert.True(t, state.TakeProfitOrder.Price.Equal(dec("103")))
}

func TestEvaluate_TrailingLevelsRatchetUp(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	state, commands, err := evaluateAt(t, e, fx, state, "104", t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, commands, 4)

	assert.True(t, state.TakeProfitPrice.Equal(dec("104.03")), state.TakeProfitPrice.String())
	assert.True(t, state.StopLossPrice.Equal(dec("99.99")), state.StopLossPrice.String())
	assert.True(t, state.TakeProfitOrder.Price.Equal(dec("104.03")))
	assert.True(t, state.StopLossOrder.Price.Equal(dec("99.99")))
	assert.Equal(t, []string{"o-3", "o-4"}, fx.cancels)
}

func TestEvaluate_StopLossKeepsMargin(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	// 99.99 would sit above 100.5 × 0.99
	state, commands, err := evaluateAt(t, e, fx, state, "100.5", t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, commands)
	assert.True(t, state.StopLossPrice.Equal(dec("99")))

	state, commands, err = evaluateAt(t, e, fx, state, "101.1", t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, commands, 2)
	assert.True(t, state.StopLossPrice.Equal(dec("99.99")))
	assert.True(t, state.TakeProfitPrice.Equal(dec("103")))
}

func TestEvaluate_ProtectiveLevelsNeverDecrease(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	prevTP, prevSL := *state.TakeProfitPrice, *state.StopLossPrice
	path := []string{"104", "110", "101", "95", "120", "80", "125", "97", "130"}
	for i, p := range path {
		var err error
		state, _, err = evaluateAt(t, e, fx, state, p, t0.Add(time.Duration(i+2)*time.Minute))
		require.NoError(t, err)

		assert.True(t, state.TakeProfitPrice.GreaterThanOrEqual(prevTP), "tp fell at %s", p)
		assert.True(t, state.StopLossPrice.GreaterThanOrEqual(prevSL), "sl fell at %s", p)
		prevTP, prevSL = *state.TakeProfitPrice, *state.StopLossPrice
	}
}

func TestEvaluate_CancelRejectedRetriedBeforeReplacement(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	fx.cancelErrs["o-3"] = domain.ErrCancelRejected
	state, _, err := evaluateAt(t, e, fx, state, "104", t0.Add(2*time.Minute))
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrCancelRejected))

	// the old take profit stays tracked, no second take profit was placed
	assert.Equal(t, "o-3", state.TakeProfitOrder.ID)
	assert.True(t, state.TakeProfitOrder.Price.Equal(dec("103")))
	assert.True(t, state.TakeProfitPrice.Equal(dec("104.03")))
	assert.Equal(t, "o-5", state.StopLossOrder.ID)
	assert.Len(t, fx.sells, 3)

	delete(fx.cancelErrs, "o-3")
	state, _, err = evaluateAt(t, e, fx, state, "104", t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, "o-3", state.TakeProfitOrder.ID)
	assert.True(t, state.TakeProfitOrder.Price.Equal(dec("104.03")))

	attempts := 0
	for _, id := range fx.cancels {
		if id == "o-3" {
			attempts++
		}
	}
	assert.Equal(t, 2, attempts)
}

func TestEvaluate_OrderNotFoundOnCancelCountsAsCancelled(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	fx.cancelErrs["o-3"] = errors.Wrap(domain.ErrOrderNotFound, "unknown order")
	state, commands, err := evaluateAt(t, e, fx, state, "104", t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "o-5", state.TakeProfitOrder.ID)
	for _, c := range commands {
		assert.True(t, c.Succeeded(), c.Kind)
	}
}

func TestEvaluate_ProtectiveGapRetriedNextCycle(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, _, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.NoError(t, err)

	fx.sellErrs = []error{domain.NewOrderRejected(domain.RejectRateLimit, "too many requests")}
	state, _, err = evaluateAt(t, e, fx, state, "97", t0.Add(time.Minute))
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrOrderRejected))
	assert.Len(t, state.FilledSafetyOrders, 1)
	assert.Nil(t, state.TakeProfitOrder)
	assert.Equal(t, domain.PhaseProtectivelyHedged, state.Phase)

	state, _, err = evaluateAt(t, e, fx, state, "97", t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, state.TakeProfitOrder)
	require.NotNil(t, state.StopLossOrder)
	assert.Zero(t, state.RejectStreak)
}

func TestEvaluate_RejectedBaseOrderBacksOff(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	fx.buyErrs = []error{domain.NewOrderRejected(domain.RejectInvalidSize, "lot size")}

	state, commands, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrOrderRejected))
	require.Len(t, commands, 1)
	assert.False(t, commands[0].Succeeded())
	assert.Equal(t, domain.PhaseIdle, state.Phase)
	assert.Equal(t, 1, state.RejectStreak)
	assert.Equal(t, t0.Add(5*time.Second), state.RetryAfter)

	state, commands, err = evaluateAt(t, e, fx, state, "100", t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Empty(t, commands)
	assert.Len(t, fx.buys, 1)

	state, _, err = evaluateAt(t, e, fx, state, "100", t0.Add(6*time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSafetyOrdersActive, state.Phase)
	assert.Zero(t, state.RejectStreak)
}

func TestEvaluate_PermanentRejectionIsFatal(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	fx.buyErrs = []error{domain.NewOrderRejected(domain.RejectInvalidPair, "unknown symbol")}

	_, _, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.True(t, domain.IsFatal(err))
}

func TestEvaluate_InsufficientQuoteSkipsOrder(t *testing.T) {
	fx := newFakeExchange()
	fx.balance = decimal.NewFromInt(5)
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, commands, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.Error(t, err)
	assert.Equal(t, domain.RejectInsufficientFunds, domain.RejectReasonOf(err))
	assert.Empty(t, commands)
	assert.Empty(t, fx.buys)
	assert.Equal(t, domain.PhaseIdle, state.Phase)
}

func TestEvaluate_MarketDataUnavailable(t *testing.T) {
	fx := newFakeExchange()
	fx.priceErr = errors.New("connection reset")
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, commands, err := e.Evaluate(context.Background(), domain.NewStrategyState(), t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketDataUnavailable))
	assert.True(t, domain.IsTransient(err))
	assert.Empty(t, commands)
	assert.Equal(t, domain.PhaseIdle, state.Phase)
}

func TestEvaluate_AccountUnavailable(t *testing.T) {
	fx := newFakeExchange()
	fx.balanceErr = errors.New("signature expired")
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	_, commands, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAccountUnavailable))
	assert.Empty(t, commands)
}

func TestEvaluate_FailedSafetyBuyKeepsRung(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())

	state, _, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.NoError(t, err)

	fx.buyErrs = []error{domain.NewOrderRejected(domain.RejectInvalidPrice, "price filter")}
	state, _, err = evaluateAt(t, e, fx, state, "97", t0.Add(time.Minute))
	require.Error(t, err)
	require.Len(t, state.Ladder, 3)
	assert.Equal(t, 1, state.Ladder[0].Index)
	assert.Empty(t, state.FilledSafetyOrders)
	assert.Equal(t, domain.PhaseSafetyOrdersActive, state.Phase)
}

func TestEvaluate_TakeProfitFillClosesRun(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	fx.statuses["o-3"] = domain.OrderStatusFilled
	state, commands, err := evaluateAt(t, e, fx, state, "103.5", t0.Add(2*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseStopped, state.Phase)
	assert.Equal(t, domain.StopReasonTakeProfitFilled, state.StopReason)
	require.NotNil(t, state.ExitOrder)
	assert.Equal(t, "o-3", state.ExitOrder.ID)
	assert.Equal(t, domain.OrderStatusFilled, state.ExitOrder.Status)
	require.Len(t, commands, 1)
	assert.Equal(t, "o-4", commands[0].OrderID)
	assert.Nil(t, state.TakeProfitOrder)
	assert.Nil(t, state.Ladder)

	_, commands, err = evaluateAt(t, e, fx, state, "90", t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, commands)
}

func TestEvaluate_FailedSiblingCancelStaysTracked(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	fx.statuses["o-3"] = domain.OrderStatusFilled
	fx.cancelErrs["o-4"] = domain.ErrCancelRejected
	fx.cancelAllErr = errors.New("venue timeout")

	state, _, err := evaluateAt(t, e, fx, state, "103.5", t0.Add(2*time.Minute))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelRejected))
	assert.Equal(t, domain.PhaseStopped, state.Phase)
	assert.Equal(t, domain.StopReasonTakeProfitFilled, state.StopReason)
	assert.False(t, state.Settled())
	require.Len(t, state.PendingCancels, 1)
	assert.Equal(t, "o-4", state.PendingCancels[0].ID)
	assert.Equal(t, domain.OrderStatusOpen, state.PendingCancels[0].Status)

	// the venue recovers, the next cycle cancels the leftover stop loss only
	delete(fx.cancelErrs, "o-4")
	fx.cancelAllErr = nil
	state, commands, err := evaluateAt(t, e, fx, state, "104", t0.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, domain.CommandCancel, commands[0].Kind)
	assert.Equal(t, "o-4", commands[0].OrderID)
	assert.True(t, state.Settled())
	assert.Len(t, fx.sells, 2, "nothing is placed after the run stopped")

	_, commands, err = e.Stop(context.Background(), state, "", t0.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, commands)
	assert.Equal(t, []string{"o-4", "o-4"}, fx.cancels)
	assert.Equal(t, 1, fx.cancelAllCalls)
}

func TestEvaluate_NoSafetyOrdersProtectsBaseImmediately(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.MaxSafetyOrders = 0
	fx := newFakeExchange()
	e := newTestEngine(t, fx, cfg)

	state, commands, err := evaluateAt(t, e, fx, domain.NewStrategyState(), "100", t0)
	require.NoError(t, err)
	assert.Len(t, commands, 3)
	assert.Equal(t, domain.PhaseProtectivelyHedged, state.Phase)
	require.NotNil(t, state.TakeProfitOrder)
	assert.True(t, state.TakeProfitOrder.Size.Equal(dec("0.1")))
	assert.True(t, state.StopLossOrder.Price.Equal(dec("99")))
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	fx := newFakeExchange()
	e := newTestEngine(t, fx, domain.DefaultStrategyConfig())
	state := hedge(t, e, fx)

	_, _, err := evaluateAt(t, e, fx, state, "104", t0.Add(2*time.Minute))
	require.NoError(t, err)

	assert.True(t, state.TakeProfitPrice.Equal(dec("103")))
	assert.Equal(t, "o-3", state.TakeProfitOrder.ID)
	assert.Equal(t, domain.OrderStatusOpen, state.TakeProfitOrder.Status)
}

func TestRejectBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), rejectBackoff(0))
	assert.Equal(t, 5*time.Second, rejectBackoff(1))
	assert.Equal(t, 10*time.Second, rejectBackoff(2))
	assert.Equal(t, 20*time.Second, rejectBackoff(3))
	assert.Equal(t, 5*time.Minute, rejectBackoff(10))
}
