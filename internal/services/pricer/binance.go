package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/pkg/retrier"
)

// binance error code for an unknown symbol
const binanceInvalidSymbol = -1121

// BinancePricer fetches prices from the Binance public ticker endpoint, which
// needs no authentication. It serves both the Binance venue and the simulator.
type BinancePricer struct {
	client  *binance.Client
	retrier *retrier.Retrier
}

// NewBinancePricer creates a pricer on top of client.
func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client, retrier: newRetrier()}
}

// GetPrice returns the last traded price of pair.
func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		prices, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
		if err != nil {
			var apiErr *common.APIError
			if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
				return decimal.Zero, errors.Wrapf(domain.ErrConfiguration, "binance does not list %s", pair.Symbol())
			}
			return decimal.Zero, errors.Wrapf(domain.ErrMarketDataUnavailable, "binance prices for %s: %v", pair.String(), err)
		}
		if len(prices) == 0 {
			return decimal.Zero, errors.Wrapf(domain.ErrMarketDataUnavailable, "binance API returned empty prices for %s", pair.String())
		}

		return parsePrice(pair, prices[0].Price)
	})
}
