// Package pricer reads last traded prices from exchanges.
package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/pkg/retrier"
)

func newRetrier() *retrier.Retrier {
	return retrier.New(retrier.WithRetryIf(func(err error) bool {
		return !domain.IsFatal(err) && !errors.Is(err, context.Canceled)
	}))
}

// parsePrice validates a price string returned by an exchange.
func parsePrice(pair domain.Pair, raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrMarketDataUnavailable, "parse %s price %q: %v", pair.String(), raw, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(domain.ErrMarketDataUnavailable, "non-positive %s price %s", pair.String(), raw)
	}

	return price, nil
}
