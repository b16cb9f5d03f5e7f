package ladder

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// trail ratchets the protective levels. Both levels only ever move up.
func (c *cycle) trail(price decimal.Decimal) {
	one := decimal.NewFromInt(1)

	if tp := c.state.TakeProfitPrice; tp != nil && price.GreaterThanOrEqual(*tp) {
		next := tp.Mul(one.Add(c.cfg.TakeProfitIncrementFactor))
		c.l.Info("take profit trailed",
			zap.String("price", price.String()),
			zap.String("from", tp.String()),
			zap.String("to", next.String()))
		c.state.TakeProfitPrice = &next
	}

	if sl := c.state.StopLossPrice; sl != nil {
		next := sl.Mul(one.Add(c.cfg.TrailingDeviation))
		ceiling := price.Mul(one.Sub(c.cfg.TrailingDeviation))
		if next.LessThanOrEqual(ceiling) {
			c.l.Info("stop loss trailed",
				zap.String("price", price.String()),
				zap.String("from", sl.String()),
				zap.String("to", next.String()))
			c.state.StopLossPrice = &next
		}
	}
}

// reconcileProtection makes the book hold one take-profit and one stop-loss
// sell at the current levels, sized to the whole position.
func (c *cycle) reconcileProtection() error {
	if c.state.TakeProfitPrice == nil || c.state.StopLossPrice == nil {
		return nil
	}

	size := c.state.PositionSize()
	if !size.IsPositive() {
		return nil
	}

	var err error
	err = multierr.Append(err, c.syncProtective(&c.state.TakeProfitOrder, domain.RoleTakeProfit, *c.state.TakeProfitPrice, size))
	err = multierr.Append(err, c.syncProtective(&c.state.StopLossOrder, domain.RoleStopLoss, *c.state.StopLossPrice, size))

	return err
}

func (c *cycle) syncProtective(slot **domain.Order, role domain.OrderRole, price, size decimal.Decimal) error {
	current := *slot
	if current != nil && current.Status.Active() {
		if wantPrice, wantSize := current.Requested(); wantPrice.Equal(price) && wantSize.Equal(size) {
			return nil
		}
		if err := c.cancel(current); err != nil {
			c.l.Warn("protective order cancel failed, keeping it until next cycle",
				zap.String("role", string(role)),
				zap.String("order_id", current.ID),
				zap.Error(err))
			return err
		}
		*slot = nil
	}

	if !c.canPlace() {
		return nil
	}

	order, err := c.place(role, domain.SideSell, size, price, 0)
	if err != nil {
		*slot = nil
		c.l.Warn("protective order missing, will retry next cycle",
			zap.String("role", string(role)),
			zap.String("price", price.String()),
			zap.String("size", size.String()),
			zap.Error(err))
		return err
	}
	*slot = &order

	return nil
}

// cancel cancels o and records the command. An order the exchange no longer
// knows counts as cancelled.
func (c *cycle) cancel(o *domain.Order) error {
	err := c.exchange.CancelOrder(c.ctx, c.pair, o.ID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		c.l.Info("order already gone on exchange", zap.String("order_id", o.ID), zap.String("role", string(o.Role)))
		err = nil
	}

	c.commands = append(c.commands, domain.CancelCommand(c.pair, *o, err, c.now))
	if err != nil {
		return classify(err, domain.ErrCancelRejected, "cancel "+string(o.Role)+" order")
	}

	o.Status = domain.OrderStatusCancelled
	return nil
}

// detectExit refreshes the protective orders and closes the run when one of
// them has filled.
func (c *cycle) detectExit() (bool, error) {
	for _, o := range []*domain.Order{c.state.TakeProfitOrder, c.state.StopLossOrder} {
		if o == nil || !o.Status.Active() {
			continue
		}

		status, err := c.exchange.OrderStatus(c.ctx, c.pair, o.ID)
		if err != nil {
			c.l.Warn("order status unavailable", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		o.Status = status

		if status != domain.OrderStatusFilled {
			continue
		}

		reason := domain.StopReasonTakeProfitFilled
		if o.Role == domain.RoleStopLoss {
			reason = domain.StopReasonStopLossFilled
		}

		c.l.Info("position closed",
			zap.String("role", string(o.Role)),
			zap.String("price", o.Price.String()),
			zap.String("size", o.Size.String()))

		exit := *o
		// the filled order is no longer active, this cancels its sibling and
		// any safety buy still resting
		cancelErr := c.cancelActive(c.bookOrders())

		c.finish(reason)
		c.state.ExitOrder = &exit

		return true, cancelErr
	}

	return false, nil
}
