// Package trader implements the exchange clients the ladder engine trades
// through: Binance and Bybit spot, and a paper exchange for simulation.
package trader

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

type priceSource interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// symbolRules are the venue increments orders must be rounded to.
type symbolRules struct {
	qtyStep  decimal.Decimal
	tickSize decimal.Decimal
}

// round floors size and price to the venue increments. A zero increment
// leaves the value untouched.
func (r symbolRules) round(size, price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return floorToStep(size, r.qtyStep), floorToStep(price, r.tickSize)
}

func floorToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// rulesCache memoizes symbol rules per symbol. Failed lookups are retried on
// the next call.
type rulesCache struct {
	mu    sync.Mutex
	rules map[string]symbolRules
}

func (c *rulesCache) get(ctx context.Context, symbol string, fetch func(ctx context.Context) (symbolRules, error)) (symbolRules, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.rules[symbol]; ok {
		return r, nil
	}

	r, err := fetch(ctx)
	if err != nil {
		return symbolRules{}, err
	}
	if c.rules == nil {
		c.rules = make(map[string]symbolRules)
	}
	c.rules[symbol] = r

	return r, nil
}

// stopLimitSlippage is how far below the trigger a stop-loss limit may fill.
var stopLimitSlippage = decimal.RequireFromString("0.005")

// isStopSell reports whether a sell at price must rest as a stop order:
// limit sells below the market would fill immediately.
func isStopSell(price, market decimal.Decimal) bool {
	return market.IsPositive() && price.LessThan(market)
}

func validateRequest(pair domain.Pair, size, price decimal.Decimal) error {
	if !size.IsPositive() {
		return domain.NewOrderRejected(domain.RejectInvalidSize, "%s order size %s is not positive", pair.String(), size.String())
	}
	if !price.IsPositive() {
		return domain.NewOrderRejected(domain.RejectInvalidPrice, "%s order price %s is not positive", pair.String(), price.String())
	}
	return nil
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
