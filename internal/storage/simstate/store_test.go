package simstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

var pair = domain.Pair{From: "BTC", To: "USDT"}

func TestStore_SaveLoad(t *testing.T) {
	store, err := NewStore(t.TempDir(), pair, "")
	require.NoError(t, err)
	assert.Equal(t, "btc_usdt.json", filepath.Base(store.Path()))

	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state, "nothing saved yet")

	saved := State{
		Pair:   pair.String(),
		Wallet: map[string]decimal.Decimal{"USDT": decimal.RequireFromString("990.5"), "BTC": decimal.RequireFromString("0.1")},
		Orders: []Order{{
			ID:        "tp-1",
			Side:      domain.SideSell,
			Kind:      OrderKindLimit,
			Price:     decimal.RequireFromString("103"),
			Size:      decimal.RequireFromString("0.1"),
			Status:    domain.OrderStatusOpen,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Wallet["USDT"].Equal(decimal.RequireFromString("990.5")))
	require.Len(t, loaded.Orders, 1)
	assert.Equal(t, OrderKindLimit, loaded.Orders[0].Kind)
	assert.True(t, loaded.Orders[0].Price.Equal(decimal.RequireFromString("103")))

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestStore_ScopeAndEnvDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(stateDirEnv, dir)

	store, err := NewStore("", pair, "Bot #1 / BTC")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bot_1_btc.json"), store.Path())
}

func TestStore_CorruptFile(t *testing.T) {
	store, err := NewStore(t.TempDir(), pair, "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err = store.Load()
	require.Error(t, err)
}

func TestSanitizeScope(t *testing.T) {
	assert.Equal(t, "", sanitizeScope("  "))
	assert.Equal(t, "btc_usdt", sanitizeScope("BTC_USDT"))
	assert.Equal(t, "a_b", sanitizeScope("__a--b__"))
}
