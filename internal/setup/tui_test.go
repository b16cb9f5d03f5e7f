package setup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/ladderbot/config"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

func TestBuildConfig_WritesLoadableFile(t *testing.T) {
	a := defaultAnswers()
	a.pair = " eth_usdt "
	a.pollInterval = "30s"
	a.takeProfit = "0.05"
	a.simulateBalance = "250"

	tmp, err := buildConfig(a)
	require.NoError(t, err)
	assert.Equal(t, "ETH_USDT", tmp.Pair)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeConfig(path, tmp))

	configs, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	conf := configs[0]
	assert.Equal(t, config.PlatformSimulate, conf.Platform)
	assert.Equal(t, domain.Pair{From: "ETH", To: "USDT"}, conf.Pair)
	assert.Equal(t, 30*time.Second, conf.PollPriceInterval)
	assert.True(t, conf.SimulateBalance.Equal(decimal.NewFromInt(250)))
	assert.True(t, conf.Strategy.TakeProfitPercentage.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, domain.DefaultStrategyConfig().MaxSafetyOrders, conf.Strategy.MaxSafetyOrders)
}

func TestBuildConfig_ExchangeHasNoPaperBalance(t *testing.T) {
	a := defaultAnswers()
	a.platform = config.PlatformBinance

	tmp, err := buildConfig(a)
	require.NoError(t, err)
	assert.Empty(t, tmp.SimulateBalance)
}

func TestBuildConfig_Rejects(t *testing.T) {
	a := defaultAnswers()
	a.pollInterval = "soon"
	_, err := buildConfig(a)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	a = defaultAnswers()
	a.maxSafetyOrders = "three"
	_, err = buildConfig(a)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestFieldValidators(t *testing.T) {
	assert.NoError(t, positive("10"))
	assert.Error(t, positive("0"))
	assert.Error(t, positive("ten"))

	assert.NoError(t, fraction("0.03"))
	assert.Error(t, fraction("1"))
	assert.Error(t, fraction("-0.1"))
}
