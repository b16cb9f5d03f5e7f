package internal

import (
	"context"
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/ladderbot/internal/clients"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"github.com/vadiminshakov/ladderbot/internal/services/pricer"
	"github.com/vadiminshakov/ladderbot/internal/services/trader"
	"github.com/vadiminshakov/ladderbot/internal/storage/simstate"
)

// exchangeService is everything the ladder engine needs from a venue.
type exchangeService interface {
	GetCurrentPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	PlaceBuy(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error)
	PlaceSell(ctx context.Context, pair domain.Pair, size, price decimal.Decimal, clientOrderID string) (domain.Order, error)
	CancelOrder(ctx context.Context, pair domain.Pair, orderID string) error
	CancelAll(ctx context.Context, pair domain.Pair) error
	OrderStatus(ctx context.Context, pair domain.Pair, orderID string) (domain.OrderStatus, error)
}

// serviceProvider creates the platform-specific exchange for a pair.
type serviceProvider interface {
	Exchange(pair domain.Pair, initialQuote decimal.Decimal) (exchangeService, error)
}

// newServiceProvider picks the provider matching the client type.
func newServiceProvider(client any, logger *zap.Logger) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.SimulateClient:
		return &simulateProvider{client: c, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) Exchange(domain.Pair, decimal.Decimal) (exchangeService, error) {
	t, err := trader.NewBinanceTrader(p.client, pricer.NewBinancePricer(p.client))
	if err != nil {
		return nil, err
	}
	return t, nil
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) Exchange(domain.Pair, decimal.Decimal) (exchangeService, error) {
	t, err := trader.NewBybitTrader(p.client, pricer.NewBybitPricer(p.client))
	if err != nil {
		return nil, err
	}
	return t, nil
}

type simulateProvider struct {
	client *clients.SimulateClient
	logger *zap.Logger
}

func (p *simulateProvider) Exchange(pair domain.Pair, initialQuote decimal.Decimal) (exchangeService, error) {
	store, err := simstate.NewStore(p.client.StateDir(), pair, "")
	if err != nil {
		return nil, err
	}

	prices := pricer.NewBinancePricer(p.client.GetBinanceClient())
	t, err := trader.NewSimulateTrader(p.logger, pair, prices, store, initialQuote)
	if err != nil {
		return nil, err
	}
	return t, nil
}
