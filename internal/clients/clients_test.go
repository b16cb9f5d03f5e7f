package clients

import (
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

func TestForPlatform(t *testing.T) {
	creds := config.Credentials{APIKey: "key", APISecret: "secret"}

	c, err := ForPlatform(config.PlatformBinance, creds, "")
	require.NoError(t, err)
	assert.IsType(t, &binance.Client{}, c)

	c, err = ForPlatform(config.PlatformBybit, creds, "")
	require.NoError(t, err)
	assert.IsType(t, &bybit.Client{}, c)

	c, err = ForPlatform(config.PlatformSimulate, config.Credentials{}, "/tmp/paper")
	require.NoError(t, err)
	sim, ok := c.(*SimulateClient)
	require.True(t, ok)
	assert.Equal(t, "/tmp/paper", sim.StateDir())
	assert.NotNil(t, sim.GetBinanceClient())

	_, err = ForPlatform("kraken", creds, "")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
