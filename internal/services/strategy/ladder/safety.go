package ladder

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"go.uber.org/zap"
)

// fillNextRung buys the lowest-index rung reached by price. At most one rung
// is consumed per cycle even when price gapped through several.
func (c *cycle) fillNextRung(price decimal.Decimal) error {
	if len(c.state.Ladder) == 0 {
		return nil
	}

	rung := c.state.Ladder[0]
	if price.GreaterThan(rung.TriggerPrice) {
		return nil
	}
	if !c.canPlace() {
		return nil
	}
	if err := c.ensureQuote(rung.Size); err != nil {
		return errors.Wrapf(err, "safety order %d", rung.Index)
	}

	c.state.Ladder = c.state.Ladder[1:]

	order, err := c.place(domain.RoleSafety, domain.SideBuy, rung.BaseQuantity(), rung.TriggerPrice, rung.Index)
	if err != nil {
		// the rung stays available for the next cycle
		c.state.Ladder = append([]domain.SafetyOrderRung{rung}, c.state.Ladder...)
		return err
	}

	c.state.FilledSafetyOrders = append(c.state.FilledSafetyOrders, order)
	c.state.Phase = domain.PhaseProtectivelyHedged

	c.l.Info("safety order placed",
		zap.Int("rung", rung.Index),
		zap.String("trigger_price", rung.TriggerPrice.String()),
		zap.String("price", price.String()),
		zap.String("size", order.Size.String()),
		zap.Int("remaining_rungs", len(c.state.Ladder)),
		zap.String("position_size", c.state.PositionSize().String()))

	return nil
}
