// Package clients builds the exchange SDK clients a bot trades through.
package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

// NewBinanceClient creates an authenticated Binance spot client.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}

// NewBybitClient creates an authenticated Bybit V5 client.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	return bybit.NewClient().WithAuth(apiKey, apiSecret)
}

// SimulateClient trades on paper against real market prices.
type SimulateClient struct {
	// public Binance endpoints need no keys
	binanceClient *binance.Client
	stateDir      string
}

// NewSimulateClient creates a simulate client keeping paper state under
// stateDir; an empty dir uses the simulator default.
func NewSimulateClient(stateDir string) *SimulateClient {
	return &SimulateClient{binanceClient: binance.NewClient("", ""), stateDir: stateDir}
}

// GetBinanceClient returns the public Binance client used for prices.
func (c *SimulateClient) GetBinanceClient() *binance.Client {
	return c.binanceClient
}

// StateDir returns where paper balances and orders are kept.
func (c *SimulateClient) StateDir() string {
	return c.stateDir
}

// ForPlatform returns the client for platform with creds:
// *binance.Client, *bybit.Client or *SimulateClient.
func ForPlatform(platform string, creds config.Credentials, stateDir string) (any, error) {
	switch platform {
	case config.PlatformBinance:
		return NewBinanceClient(creds.APIKey, creds.APISecret), nil
	case config.PlatformBybit:
		return NewBybitClient(creds.APIKey, creds.APISecret), nil
	case config.PlatformSimulate:
		return NewSimulateClient(stateDir), nil
	default:
		return nil, errors.Wrapf(domain.ErrConfiguration, "unsupported platform %q", platform)
	}
}
