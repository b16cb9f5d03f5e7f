package pricer

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/pkg/retrier"
)

// BybitPricer fetches spot prices from the Bybit V5 tickers endpoint.
type BybitPricer struct {
	client  *bybit.Client
	retrier *retrier.Retrier
}

// NewBybitPricer creates a pricer on top of client.
func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client, retrier: newRetrier()}
}

// GetPrice returns the last traded price of pair.
func (p *BybitPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, err
		}

		result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   &symbol,
		})
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrMarketDataUnavailable, "bybit tickers for %s: %v", pair.String(), err)
		}
		if result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
			return decimal.Zero, errors.Wrapf(domain.ErrMarketDataUnavailable, "bybit API returned empty prices for %s", pair.String())
		}

		return parsePrice(pair, result.Result.Spot.List[0].LastPrice)
	})
}
