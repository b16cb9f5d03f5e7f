package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

func command(kind domain.CommandKind, orderID string, price string) domain.Command {
	return domain.Command{
		Kind:    kind,
		Pair:    "BTC_USDT",
		Role:    domain.RoleSafety,
		OrderID: orderID,
		Side:    domain.SideBuy,
		Price:   decimal.RequireFromString(price),
		Size:    decimal.RequireFromString("0.1"),
		Status:  domain.OrderStatusOpen,
		Time:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWALStore_AppendAndReadBack(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Zero(t, store.CurrentIndex())

	require.NoError(t, store.Append([]domain.Command{
		command(domain.CommandPlaceBuy, "o-1", "100"),
		command(domain.CommandPlaceBuy, "o-2", "98.5"),
	}))
	require.NoError(t, store.Append([]domain.Command{
		command(domain.CommandCancel, "o-2", "98.5"),
	}))
	require.NoError(t, store.Append(nil))

	assert.Equal(t, uint64(3), store.CurrentIndex())

	all, err := store.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, rec := range all {
		assert.Equal(t, uint64(i+1), rec.Index)
	}
	assert.Equal(t, "o-1", all[0].Command.OrderID)
	assert.True(t, all[1].Command.Price.Equal(decimal.RequireFromString("98.5")))

	tail, err := store.RecordsAfter(2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, domain.CommandCancel, tail[0].Command.Kind)

	none, err := store.RecordsAfter(3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStore_FindByOrderID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append([]domain.Command{
		command(domain.CommandPlaceSell, "tp-1", "103"),
		command(domain.CommandPlaceSell, "sl-1", "99"),
		command(domain.CommandCancel, "tp-1", "103"),
	}))

	history, err := store.FindByOrderID("tp-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.CommandPlaceSell, history[0].Command.Kind)
	assert.Equal(t, domain.CommandCancel, history[1].Command.Kind)

	missing, err := store.FindByOrderID("nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestWALStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append([]domain.Command{command(domain.CommandPlaceBuy, "o-1", "100")}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Append([]domain.Command{command(domain.CommandPlaceBuy, "o-2", "97")}))
	records, err := reopened.RecordsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(2), records[1].Index)
}

func TestWALStore_RejectsCommandWithoutPair(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	c := command(domain.CommandCancelAll, "", "0")
	c.Pair = ""
	require.Error(t, store.Append([]domain.Command{c}))
}

func TestWALStore_NilStore(t *testing.T) {
	var store *WALStore
	assert.Zero(t, store.CurrentIndex())
	assert.Error(t, store.Append(nil))
	_, err := store.RecordsAfter(0)
	assert.Error(t, err)
}
