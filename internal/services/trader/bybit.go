package trader

import (
	"context"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

// bybit V5 ret codes, matched against the error text the SDK returns
const (
	bybitCodeInsufficientBalance = "170131"
	bybitCodeQtyTooSmall         = "170136"
	bybitCodeQtyPrecision        = "170130"
	bybitCodePricePrecision      = "170134"
	bybitCodeInvalidSymbol       = "170121"
	bybitCodeRateLimit           = "10006"
	bybitCodeOrderNotExists      = "170213"
	bybitCodeOrderNotExistsAlt   = "110001"
)

// BybitTrader trades a unified account on Bybit spot. Sells below the market
// are placed as conditional orders that trigger at the requested price.
type BybitTrader struct {
	client *bybit.Client
	prices priceSource
	rules  rulesCache
}

// NewBybitTrader creates a trader on top of an authenticated client.
func NewBybitTrader(client *bybit.Client, prices priceSource) (*BybitTrader, error) {
	if client == nil {
		return nil, errors.New("bybit client is required")
	}
	if prices == nil {
		return nil, errors.New("price source is required for BybitTrader")
	}

	return &BybitTrader{client: client, prices: prices}, nil
}

// GetCurrentPrice returns the last traded price of pair.
func (t *BybitTrader) GetCurrentPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.prices.GetPrice(ctx, pair)
}

// GetBalance returns the wallet balance of currency in the unified account.
func (t *BybitTrader) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrAccountUnavailable, "bybit wallet: %v", err)
	}

	res, err := t.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrAccountUnavailable, "bybit wallet: %v", err)
	}
	if len(res.Result.List) == 0 {
		return decimal.Zero, nil
	}

	for _, coin := range res.Result.List[0].Coin {
		if string(coin.Coin) != currency {
			continue
		}
		balance, err := decimal.NewFromString(coin.WalletBalance)
		if err != nil {
			return decimal.Zero, errors.Wrapf(domain.ErrAccountUnavailable, "parse %s balance %q: %v", currency, coin.WalletBalance, err)
		}
		return balance, nil
	}

	return decimal.Zero, nil
}

// PlaceBuy places a limit buy.
func (t *BybitTrader) PlaceBuy(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error) {
	return t.place(ctx, pair, bybit.SideBuy, size, price, clientOrderID)
}

// PlaceSell places a limit sell, or a conditional limit sell when price is
// below the market.
func (t *BybitTrader) PlaceSell(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error) {
	return t.place(ctx, pair, bybit.SideSell, size, price, clientOrderID)
}

func (t *BybitTrader) place(ctx context.Context, pair domain.Pair, side bybit.Side, size, price decimal.Decimal, id string) (domain.Order, error) {
	if err := validateRequest(pair, size, price); err != nil {
		return domain.Order{}, err
	}

	rules, err := t.rules.get(ctx, pair.Symbol(), func(context.Context) (symbolRules, error) {
		return t.fetchRules(pair)
	})
	if err != nil {
		return domain.Order{}, err
	}

	qty, px := rules.round(size, price)
	if !qty.IsPositive() || !px.IsPositive() {
		return domain.Order{}, domain.NewOrderRejected(domain.RejectInvalidSize,
			"%s order %s at %s rounds to zero", pair.Symbol(), size.String(), price.String())
	}

	limit := px.String()
	param := bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(pair.Symbol()),
		Side:        side,
		OrderType:   bybit.OrderTypeLimit,
		Qty:         qty.String(),
		Price:       &limit,
		OrderLinkID: &id,
	}

	if side == bybit.SideSell {
		market, err := t.prices.GetPrice(ctx, pair)
		if err != nil {
			return domain.Order{}, errors.Wrap(err, "price for sell order type")
		}
		if isStopSell(px, market) {
			trigger := px.String()
			limit = floorToStep(px.Mul(decimal.NewFromInt(1).Sub(stopLimitSlippage)), rules.tickSize).String()
			filter := bybit.OrderFilter("StopOrder")
			param.TriggerPrice = &trigger
			param.OrderFilter = &filter
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.Order{}, domain.NewOrderRejected(domain.RejectUnknown, "bybit %s: %v", pair.Symbol(), err)
	}

	res, err := t.client.V5().Order().CreateOrder(param)
	if err != nil {
		return domain.Order{}, bybitRejection(pair, err)
	}

	return domain.Order{
		ID:              id,
		ExchangeOrderID: res.Result.OrderID,
		Price:           px,
		Size:            qty,
		Status:          domain.OrderStatusOpen,
		CreatedAt:       time.Now(),
	}, nil
}

func (t *BybitTrader) fetchRules(pair domain.Pair) (symbolRules, error) {
	symbol := bybit.SymbolV5(pair.Symbol())
	res, err := t.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return symbolRules{}, errors.Wrapf(domain.ErrAccountUnavailable, "bybit instruments for %s: %v", pair.Symbol(), err)
	}
	if res.Result.Spot == nil || len(res.Result.Spot.List) == 0 {
		return symbolRules{}, domain.NewOrderRejected(domain.RejectInvalidPair, "bybit does not list %s", pair.Symbol())
	}

	info := res.Result.Spot.List[0]
	var rules symbolRules
	rules.qtyStep, _ = decimal.NewFromString(info.LotSizeFilter.BasePrecision)
	rules.tickSize, _ = decimal.NewFromString(info.PriceFilter.TickSize)

	return rules, nil
}

// CancelOrder cancels an order by its link id.
func (t *BybitTrader) CancelOrder(ctx context.Context, pair domain.Pair, orderID string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(domain.ErrCancelRejected, "bybit cancel %s: %v", orderID, err)
	}

	_, err := t.client.V5().Order().CancelOrder(bybit.V5CancelOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(pair.Symbol()),
		OrderLinkID: &orderID,
	})
	if err == nil {
		return nil
	}
	if bybitNotFound(err) {
		return errors.Wrapf(domain.ErrOrderNotFound, "bybit order %s: %v", orderID, err)
	}

	return errors.Wrapf(domain.ErrCancelRejected, "bybit cancel %s: %v", orderID, err)
}

// CancelAll cancels every open order of pair, conditional ones included.
func (t *BybitTrader) CancelAll(ctx context.Context, pair domain.Pair) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(domain.ErrCancelRejected, "bybit cancel all: %v", err)
	}

	symbol := bybit.SymbolV5(pair.Symbol())
	for _, filter := range []string{"Order", "StopOrder"} {
		f := bybit.OrderFilter(filter)
		_, err := t.client.V5().Order().CancelAllOrders(bybit.V5CancelAllOrdersParam{
			Category:    bybit.CategoryV5Spot,
			Symbol:      &symbol,
			OrderFilter: &f,
		})
		if err != nil && !bybitNotFound(err) {
			return errors.Wrapf(domain.ErrCancelRejected, "bybit cancel all %s: %v", pair.Symbol(), err)
		}
	}

	return nil
}

// OrderStatus looks the order up among open orders first, then in history.
func (t *BybitTrader) OrderStatus(ctx context.Context, pair domain.Pair, orderID string) (domain.OrderStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrapf(domain.ErrAccountUnavailable, "bybit order %s: %v", orderID, err)
	}

	symbol := bybit.SymbolV5(pair.Symbol())

	open, err := t.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      &symbol,
		OrderLinkID: &orderID,
	})
	if err != nil {
		return "", errors.Wrapf(domain.ErrAccountUnavailable, "bybit open orders: %v", err)
	}
	for _, o := range open.Result.List {
		if o.OrderLinkID == orderID {
			return bybitStatus(string(o.OrderStatus)), nil
		}
	}

	history, err := t.client.V5().Order().GetHistoryOrders(bybit.V5GetHistoryOrdersParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      &symbol,
		OrderLinkID: &orderID,
	})
	if err != nil {
		return "", errors.Wrapf(domain.ErrAccountUnavailable, "bybit order history: %v", err)
	}
	for _, o := range history.Result.List {
		if o.OrderLinkID == orderID {
			return bybitStatus(string(o.OrderStatus)), nil
		}
	}

	return "", errors.Wrapf(domain.ErrOrderNotFound, "bybit order %s", orderID)
}

func bybitStatus(s string) domain.OrderStatus {
	switch s {
	case "Filled":
		return domain.OrderStatusFilled
	case "Cancelled", "Rejected", "Deactivated", "PartiallyFilledCanceled":
		return domain.OrderStatusCancelled
	case "New", "PartiallyFilled", "Untriggered", "Triggered", "Active":
		return domain.OrderStatusOpen
	default:
		return domain.OrderStatusPending
	}
}

func bybitNotFound(err error) bool {
	return containsAny(err.Error(), bybitCodeOrderNotExists, bybitCodeOrderNotExistsAlt, "order not exists")
}

// bybitRejection maps a placement error to an OrderRejectedError.
func bybitRejection(pair domain.Pair, err error) error {
	msg := err.Error()

	reason := domain.RejectUnknown
	switch {
	case containsAny(msg, bybitCodeInsufficientBalance, "insufficient balance"):
		reason = domain.RejectInsufficientFunds
	case containsAny(msg, bybitCodeQtyTooSmall, bybitCodeQtyPrecision):
		reason = domain.RejectInvalidSize
	case containsAny(msg, bybitCodePricePrecision):
		reason = domain.RejectInvalidPrice
	case containsAny(msg, bybitCodeInvalidSymbol, "symbol invalid", "not supported symbols"):
		reason = domain.RejectInvalidPair
	case containsAny(msg, bybitCodeRateLimit, "too many visits"):
		reason = domain.RejectRateLimit
	}

	return domain.NewOrderRejected(reason, "bybit %s: %s", pair.Symbol(), msg)
}
