package trader

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/internal/storage/simstate"
	"go.uber.org/zap"
)

// finished orders kept for status lookups
const maxFinishedOrders = 200

// SimulateTrader is a paper spot exchange for one pair. Prices come from a
// real market; resting limit and stop orders are matched against every price
// the trader fetches. Fills happen at the order price.
type SimulateTrader struct {
	mu        sync.Mutex
	pair      domain.Pair
	l         *zap.Logger
	pricer    priceSource
	wallet    map[string]decimal.Decimal
	orders    []simstate.Order
	lastPrice decimal.Decimal
	store     *simstate.Store
	now       func() time.Time
}

// NewSimulateTrader creates a paper exchange funded with initialQuote of the
// quote currency, unless store holds an earlier state. store may be nil.
func NewSimulateTrader(l *zap.Logger, pair domain.Pair, pricer priceSource, store *simstate.Store, initialQuote decimal.Decimal) (*SimulateTrader, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if pricer == nil {
		return nil, errors.New("pricer is required for SimulateTrader")
	}

	t := &SimulateTrader{
		pair:   pair,
		l:      l,
		pricer: pricer,
		wallet: map[string]decimal.Decimal{pair.From: decimal.Zero, pair.To: initialQuote},
		store:  store,
		now:    time.Now,
	}
	if err := t.restoreState(); err != nil {
		l.Warn("failed to restore simulate state", zap.Error(err))
	}

	l.Info("simulate init",
		zap.String("base", t.wallet[pair.From].String()),
		zap.String("quote", t.wallet[pair.To].String()),
		zap.Int("open_orders", t.openCount()))

	return t, nil
}

// GetCurrentPrice fetches the market price and fills every resting order it crosses.
func (t *SimulateTrader) GetCurrentPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if err := t.checkPair(pair); err != nil {
		return decimal.Zero, errors.Wrap(domain.ErrConfiguration, err.Error())
	}

	price, err := t.pricer.GetPrice(ctx, pair)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "simulate price")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastPrice = price
	if t.match(price) {
		t.persist()
	}

	return price, nil
}

// GetBalance returns the free balance of currency.
func (t *SimulateTrader) GetBalance(_ context.Context, currency string) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.wallet[currency], nil
}

// PlaceBuy places a limit buy. It fills at once when the market is at or below price.
func (t *SimulateTrader) PlaceBuy(_ context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error) {
	return t.place(pair, domain.SideBuy, size, price, clientOrderID)
}

// PlaceSell places a limit sell at or above the market, or a stop sell below it.
func (t *SimulateTrader) PlaceSell(_ context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error) {
	return t.place(pair, domain.SideSell, size, price, clientOrderID)
}

func (t *SimulateTrader) place(pair domain.Pair, side domain.Side, size, price decimal.Decimal, id string) (domain.Order, error) {
	if err := t.checkPair(pair); err != nil {
		return domain.Order{}, err
	}
	if err := validateRequest(pair, size, price); err != nil {
		return domain.Order{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.find(id) != nil {
		return domain.Order{}, domain.NewOrderRejected(domain.RejectUnknown, "duplicate client order id %s", id)
	}

	switch side {
	case domain.SideBuy:
		if need := size.Mul(price); t.wallet[pair.To].LessThan(need) {
			return domain.Order{}, domain.NewOrderRejected(domain.RejectInsufficientFunds,
				"%s balance %s is below %s", pair.To, t.wallet[pair.To].String(), need.String())
		}
	case domain.SideSell:
		if t.wallet[pair.From].LessThan(size) {
			return domain.Order{}, domain.NewOrderRejected(domain.RejectInsufficientFunds,
				"%s balance %s is below %s", pair.From, t.wallet[pair.From].String(), size.String())
		}
	}

	kind := simstate.OrderKindLimit
	if side == domain.SideSell && isStopSell(price, t.lastPrice) {
		kind = simstate.OrderKindStop
	}

	now := t.now()
	t.orders = append(t.orders, simstate.Order{
		ID:        id,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Size:      size,
		Status:    domain.OrderStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if t.lastPrice.IsPositive() {
		t.match(t.lastPrice)
	}
	t.persist()

	o := t.find(id)
	t.l.Info("simulate order placed",
		zap.String("order_id", id),
		zap.String("side", string(side)),
		zap.String("kind", string(kind)),
		zap.String("price", price.String()),
		zap.String("size", size.String()),
		zap.String("status", string(o.Status)))

	return domain.Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    o.Status,
		CreatedAt: now,
	}, nil
}

// CancelOrder cancels an open order. Finished or unknown orders yield ErrOrderNotFound.
func (t *SimulateTrader) CancelOrder(_ context.Context, pair domain.Pair, orderID string) error {
	if err := t.checkPair(pair); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	o := t.find(orderID)
	if o == nil || !o.Status.Active() {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %s", orderID)
	}

	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = t.now()
	t.persist()

	return nil
}

// CancelAll cancels every open order of pair.
func (t *SimulateTrader) CancelAll(_ context.Context, pair domain.Pair) error {
	if err := t.checkPair(pair); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for i := range t.orders {
		if t.orders[i].Status.Active() {
			t.orders[i].Status = domain.OrderStatusCancelled
			t.orders[i].UpdatedAt = now
		}
	}
	t.persist()

	return nil
}

// OrderStatus returns the status of a known order.
func (t *SimulateTrader) OrderStatus(_ context.Context, pair domain.Pair, orderID string) (domain.OrderStatus, error) {
	if err := t.checkPair(pair); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	o := t.find(orderID)
	if o == nil {
		return "", errors.Wrapf(domain.ErrOrderNotFound, "order %s", orderID)
	}

	return o.Status, nil
}

func (t *SimulateTrader) checkPair(pair domain.Pair) error {
	if pair != t.pair {
		return domain.NewOrderRejected(domain.RejectInvalidPair, "simulator trades %s, not %s", t.pair.String(), pair.String())
	}
	return nil
}

// match fills the open orders price crosses, oldest first. It reports whether
// anything changed.
func (t *SimulateTrader) match(price decimal.Decimal) bool {
	changed := false
	for i := range t.orders {
		o := &t.orders[i]
		if !o.Status.Active() || !crosses(*o, price) {
			continue
		}

		changed = true
		o.UpdatedAt = t.now()
		if err := t.settle(*o); err != nil {
			o.Status = domain.OrderStatusCancelled
			t.l.Warn("simulate order cancelled at fill", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}

		o.Status = domain.OrderStatusFilled
		t.l.Info("simulate order filled",
			zap.String("order_id", o.ID),
			zap.String("side", string(o.Side)),
			zap.String("price", o.Price.String()),
			zap.String("size", o.Size.String()),
			zap.String("market", price.String()))
	}

	if changed {
		t.prune()
	}

	return changed
}

func crosses(o simstate.Order, price decimal.Decimal) bool {
	switch {
	case o.Side == domain.SideBuy:
		return price.LessThanOrEqual(o.Price)
	case o.Kind == simstate.OrderKindStop:
		return price.LessThanOrEqual(o.Price)
	default:
		return price.GreaterThanOrEqual(o.Price)
	}
}

// settle moves funds for a fill of o at its price.
func (t *SimulateTrader) settle(o simstate.Order) error {
	base, quote := t.pair.From, t.pair.To
	notional := o.Size.Mul(o.Price)

	if o.Side == domain.SideBuy {
		if t.wallet[quote].LessThan(notional) {
			return errors.Errorf("insufficient %s: %s < %s", quote, t.wallet[quote].String(), notional.String())
		}
		t.wallet[quote] = t.wallet[quote].Sub(notional)
		t.wallet[base] = t.wallet[base].Add(o.Size)
		return nil
	}

	if t.wallet[base].LessThan(o.Size) {
		return errors.Errorf("insufficient %s: %s < %s", base, t.wallet[base].String(), o.Size.String())
	}
	t.wallet[base] = t.wallet[base].Sub(o.Size)
	t.wallet[quote] = t.wallet[quote].Add(notional)

	return nil
}

func (t *SimulateTrader) find(id string) *simstate.Order {
	for i := range t.orders {
		if t.orders[i].ID == id {
			return &t.orders[i]
		}
	}
	return nil
}

func (t *SimulateTrader) openCount() int {
	n := 0
	for _, o := range t.orders {
		if o.Status.Active() {
			n++
		}
	}
	return n
}

// prune drops the oldest finished orders beyond maxFinishedOrders.
func (t *SimulateTrader) prune() {
	finished := len(t.orders) - t.openCount()
	if finished <= maxFinishedOrders {
		return
	}

	drop := finished - maxFinishedOrders
	kept := t.orders[:0]
	for _, o := range t.orders {
		if drop > 0 && !o.Status.Active() {
			drop--
			continue
		}
		kept = append(kept, o)
	}
	t.orders = kept
}

func (t *SimulateTrader) restoreState() error {
	if t.store == nil {
		return nil
	}
	state, err := t.store.Load()
	if err != nil || state == nil {
		return err
	}
	if state.Pair != "" && state.Pair != t.pair.String() {
		return errors.Errorf("state belongs to %s", state.Pair)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for currency, balance := range state.Wallet {
		t.wallet[currency] = balance
	}
	t.orders = state.Orders

	return nil
}

func (t *SimulateTrader) persist() {
	if t.store == nil {
		return
	}

	state := simstate.State{
		Pair:   t.pair.String(),
		Wallet: make(map[string]decimal.Decimal, len(t.wallet)),
		Orders: append([]simstate.Order(nil), t.orders...),
	}
	for currency, balance := range t.wallet {
		state.Wallet[currency] = balance
	}

	if err := t.store.Save(state); err != nil {
		t.l.Warn("failed to persist simulate state", zap.Error(err))
	}
}
