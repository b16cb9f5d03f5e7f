package ladder

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"go.uber.org/zap"
)

// Stop cancels every order still active on the exchange and moves the state
// to stopped. On a stopped state it only retries the cancels that failed
// before, so no order is cancelled twice once a cancel has succeeded.
func (e *Engine) Stop(ctx context.Context, state domain.StrategyState, reason string, now time.Time) (domain.StrategyState, []domain.Command, error) {
	if state.Settled() {
		return state, nil, nil
	}

	c := &cycle{Engine: e, ctx: ctx, state: state.Clone(), now: now}
	c.state.UpdatedAt = now

	if c.state.Stopped() {
		err := c.retryPendingCancels()
		return c.state, c.commands, err
	}
	if reason == "" {
		reason = domain.StopReasonRequested
	}

	err := c.cancelActive(c.bookOrders())
	c.finish(reason)

	e.l.Info("strategy stopped",
		zap.String("reason", reason),
		zap.Int("cancel_commands", len(c.commands)),
		zap.Int("pending_cancels", len(c.state.PendingCancels)))

	return c.state, c.commands, err
}

// bookOrders returns every order of the run that may still rest on the book.
func (c *cycle) bookOrders() []*domain.Order {
	orders := make([]*domain.Order, 0, len(c.state.FilledSafetyOrders)+3)
	if c.state.BaseOrder != nil {
		orders = append(orders, c.state.BaseOrder)
	}
	for i := range c.state.FilledSafetyOrders {
		orders = append(orders, &c.state.FilledSafetyOrders[i])
	}
	return append(orders, c.state.TakeProfitOrder, c.state.StopLossOrder)
}

// retryPendingCancels cancels the orders a stop left on the book. Orders that
// still refuse stay pending for the next attempt.
func (c *cycle) retryPendingCancels() error {
	pending := c.state.PendingCancels
	orders := make([]*domain.Order, len(pending))
	for i := range pending {
		orders[i] = &pending[i]
	}
	err := c.cancelActive(orders)

	var left []domain.Order
	for _, o := range pending {
		if o.Status.Active() {
			left = append(left, o)
			continue
		}
		c.markCancelled(o.ID)
	}
	c.state.PendingCancels = left

	if err != nil {
		c.l.Warn("orders still on the book after stop", zap.Int("pending_cancels", len(left)), zap.Error(err))
	} else {
		c.l.Info("pending cancels cleared")
	}

	return err
}

func (c *cycle) markCancelled(id string) {
	if o := c.state.BaseOrder; o != nil && o.ID == id {
		o.Status = domain.OrderStatusCancelled
	}
	for i := range c.state.FilledSafetyOrders {
		if c.state.FilledSafetyOrders[i].ID == id {
			c.state.FilledSafetyOrders[i].Status = domain.OrderStatusCancelled
		}
	}
}

// cancelActive cancels each active order once. Orders the exchange refused to
// cancel are swept with a single cancel-all.
func (c *cycle) cancelActive(orders []*domain.Order) error {
	var failed []*domain.Order
	for _, o := range orders {
		if o == nil || !o.Status.Active() {
			continue
		}
		if err := c.cancel(o); err != nil {
			c.l.Warn("cancel failed", zap.String("order_id", o.ID), zap.String("role", string(o.Role)), zap.Error(err))
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	err := c.exchange.CancelAll(c.ctx, c.pair)
	cmd := domain.Command{Kind: domain.CommandCancelAll, Pair: c.pair.String(), Time: c.now}
	if err != nil {
		cmd.Err = err.Error()
	}
	c.commands = append(c.commands, cmd)

	if err != nil {
		return classify(err, domain.ErrCancelRejected, "cancel all orders")
	}
	for _, o := range failed {
		o.Status = domain.OrderStatusCancelled
	}

	return nil
}

// finish clears the ladder and protective fields and marks the run stopped.
// Orders still active, because their cancel failed, move to PendingCancels.
func (c *cycle) finish(reason string) {
	for _, o := range c.bookOrders() {
		if o != nil && o.Status.Active() {
			c.state.PendingCancels = append(c.state.PendingCancels, *o)
		}
	}

	c.state.Ladder = nil
	c.state.TakeProfitOrder = nil
	c.state.StopLossOrder = nil
	c.state.TakeProfitPrice = nil
	c.state.StopLossPrice = nil
	c.state.Phase = domain.PhaseStopped
	c.state.StopReason = reason
}

// StopReasonFor maps a terminal error to the reason recorded on the state.
func StopReasonFor(err error) string {
	if err == nil {
		return domain.StopReasonRequested
	}
	if errors.Is(err, context.Canceled) {
		return domain.StopReasonRequested
	}
	return domain.StopReasonFatalError
}
