package trader

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/pkg/retrier"
)

// binance API error codes
const (
	binanceCodeTooManyRequests = -1003
	binanceCodeTooManyOrders   = -1015
	binanceCodeFilterFailure   = -1013
	binanceCodeBadPrecision    = -1111
	binanceCodeInvalidSymbol   = -1121
	binanceCodeNewOrderReject  = -2010
	binanceCodeCancelReject    = -2011
	binanceCodeNoSuchOrder     = -2013
)

// BinanceTrader trades one account on Binance spot with limit and
// stop-loss-limit orders. Orders are addressed by their client order id.
type BinanceTrader struct {
	client  *binance.Client
	prices  priceSource
	rules   rulesCache
	retrier *retrier.Retrier
}

// NewBinanceTrader creates a trader on top of an authenticated client.
// prices decides whether a sell rests as a limit or a stop order.
func NewBinanceTrader(client *binance.Client, prices priceSource) (*BinanceTrader, error) {
	if client == nil {
		return nil, errors.New("binance client is required")
	}
	if prices == nil {
		return nil, errors.New("price source is required for BinanceTrader")
	}

	return &BinanceTrader{
		client: client,
		prices: prices,
		retrier: retrier.New(retrier.WithRetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		})),
	}, nil
}

// GetCurrentPrice returns the last traded price of pair.
func (t *BinanceTrader) GetCurrentPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.prices.GetPrice(ctx, pair)
}

// GetBalance returns the free spot balance of currency.
func (t *BinanceTrader) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	account, err := retrier.DoWithData(t.retrier, ctx, func(ctx context.Context) (*binance.Account, error) {
		return t.client.NewGetAccountService().Do(ctx)
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrAccountUnavailable, "binance account: %v", err)
	}

	for _, b := range account.Balances {
		if b.Asset != currency {
			continue
		}
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrAccountUnavailable, "parse %s balance %q: %v", currency, b.Free, err)
		}
		return free, nil
	}

	return decimal.Zero, nil
}

// PlaceBuy places a GTC limit buy.
func (t *BinanceTrader) PlaceBuy(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error) {
	return t.place(ctx, pair, binance.SideTypeBuy, size, price, clientOrderID)
}

// PlaceSell places a GTC limit sell, or a stop-loss-limit sell when price is
// below the market.
func (t *BinanceTrader) PlaceSell(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error) {
	return t.place(ctx, pair, binance.SideTypeSell, size, price, clientOrderID)
}

func (t *BinanceTrader) place(ctx context.Context, pair domain.Pair, side binance.SideType, size, price decimal.Decimal, id string) (domain.Order, error) {
	if err := validateRequest(pair, size, price); err != nil {
		return domain.Order{}, err
	}

	rules, err := t.rules.get(ctx, pair.Symbol(), func(ctx context.Context) (symbolRules, error) {
		return t.fetchRules(ctx, pair)
	})
	if err != nil {
		return domain.Order{}, err
	}

	qty, px := rules.round(size, price)
	if !qty.IsPositive() {
		return domain.Order{}, domain.NewOrderRejected(domain.RejectInvalidSize,
			"%s size %s is below the lot step %s", pair.Symbol(), size.String(), rules.qtyStep.String())
	}
	if !px.IsPositive() {
		return domain.Order{}, domain.NewOrderRejected(domain.RejectInvalidPrice,
			"%s price %s is below the tick %s", pair.Symbol(), price.String(), rules.tickSize.String())
	}

	svc := t.client.NewCreateOrderService().
		Symbol(pair.Symbol()).
		Side(side).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(qty.String()).
		NewClientOrderID(id)

	if side == binance.SideTypeSell {
		market, err := t.prices.GetPrice(ctx, pair)
		if err != nil {
			return domain.Order{}, errors.Wrap(err, "price for sell order type")
		}
		if isStopSell(px, market) {
			limit := floorToStep(px.Mul(decimal.NewFromInt(1).Sub(stopLimitSlippage)), rules.tickSize)
			svc = svc.Type(binance.OrderTypeStopLossLimit).StopPrice(px.String()).Price(limit.String())
		} else {
			svc = svc.Type(binance.OrderTypeLimit).Price(px.String())
		}
	} else {
		svc = svc.Type(binance.OrderTypeLimit).Price(px.String())
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return domain.Order{}, binanceRejection(pair, err)
	}

	return domain.Order{
		ID:              id,
		ExchangeOrderID: strconv.FormatInt(resp.OrderID, 10),
		Price:           px,
		Size:            qty,
		Status:          binanceStatus(resp.Status),
		CreatedAt:       time.UnixMilli(resp.TransactTime),
	}, nil
}

func (t *BinanceTrader) fetchRules(ctx context.Context, pair domain.Pair) (symbolRules, error) {
	info, err := t.client.NewExchangeInfoService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == binanceCodeInvalidSymbol {
			return symbolRules{}, domain.NewOrderRejected(domain.RejectInvalidPair, "binance does not list %s", pair.Symbol())
		}
		return symbolRules{}, errors.Wrapf(domain.ErrAccountUnavailable, "binance exchange info for %s: %v", pair.Symbol(), err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != pair.Symbol() {
			continue
		}

		var rules symbolRules
		if lot := s.LotSizeFilter(); lot != nil {
			rules.qtyStep, _ = decimal.NewFromString(lot.StepSize)
		}
		if pf := s.PriceFilter(); pf != nil {
			rules.tickSize, _ = decimal.NewFromString(pf.TickSize)
		}
		return rules, nil
	}

	return symbolRules{}, domain.NewOrderRejected(domain.RejectInvalidPair, "binance does not list %s", pair.Symbol())
}

// CancelOrder cancels an order by client order id.
func (t *BinanceTrader) CancelOrder(ctx context.Context, pair domain.Pair, orderID string) error {
	_, err := t.client.NewCancelOrderService().
		Symbol(pair.Symbol()).
		OrigClientOrderID(orderID).
		Do(ctx)
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == binanceCodeCancelReject || apiErr.Code == binanceCodeNoSuchOrder) {
		return errors.Wrapf(domain.ErrOrderNotFound, "binance order %s: %s", orderID, apiErr.Message)
	}

	return errors.Wrapf(domain.ErrCancelRejected, "binance cancel %s: %v", orderID, err)
}

// CancelAll cancels every open order of pair.
func (t *BinanceTrader) CancelAll(ctx context.Context, pair domain.Pair) error {
	_, err := t.client.NewCancelOpenOrdersService().Symbol(pair.Symbol()).Do(ctx)
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceCodeCancelReject {
		// nothing open
		return nil
	}

	return errors.Wrapf(domain.ErrCancelRejected, "binance cancel all %s: %v", pair.Symbol(), err)
}

// OrderStatus returns the status of an order by client order id.
func (t *BinanceTrader) OrderStatus(ctx context.Context, pair domain.Pair, orderID string) (domain.OrderStatus, error) {
	order, err := t.client.NewGetOrderService().
		Symbol(pair.Symbol()).
		OrigClientOrderID(orderID).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == binanceCodeNoSuchOrder {
			return "", errors.Wrapf(domain.ErrOrderNotFound, "binance order %s", orderID)
		}
		return "", errors.Wrapf(domain.ErrAccountUnavailable, "binance order %s: %v", orderID, err)
	}

	return binanceStatus(order.Status), nil
}

func binanceStatus(s binance.OrderStatusType) domain.OrderStatus {
	switch s {
	case binance.OrderStatusTypeFilled:
		return domain.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired, binance.OrderStatusTypeRejected:
		return domain.OrderStatusCancelled
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled, binance.OrderStatusTypePendingCancel:
		return domain.OrderStatusOpen
	default:
		return domain.OrderStatusPending
	}
}

// binanceRejection maps a placement error to an OrderRejectedError.
func binanceRejection(pair domain.Pair, err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return domain.NewOrderRejected(domain.RejectUnknown, "binance %s: %v", pair.Symbol(), err)
	}

	reason := domain.RejectUnknown
	switch apiErr.Code {
	case binanceCodeNewOrderReject:
		if containsAny(apiErr.Message, "insufficient") {
			reason = domain.RejectInsufficientFunds
		}
	case binanceCodeFilterFailure:
		reason = domain.RejectInvalidSize
		if containsAny(apiErr.Message, "PRICE") {
			reason = domain.RejectInvalidPrice
		}
	case binanceCodeBadPrecision:
		reason = domain.RejectInvalidSize
	case binanceCodeInvalidSymbol:
		reason = domain.RejectInvalidPair
	case binanceCodeTooManyRequests, binanceCodeTooManyOrders:
		reason = domain.RejectRateLimit
	}

	return domain.NewOrderRejected(reason, "binance %s: code %d: %s", pair.Symbol(), apiErr.Code, apiErr.Message)
}
