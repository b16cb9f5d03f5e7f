package trader

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

func TestBybitRejection(t *testing.T) {
	cases := map[string]domain.RejectReason{
		"170131: Insufficient balance.":                     domain.RejectInsufficientFunds,
		"170136: Order quantity is lower than the minimum.": domain.RejectInvalidSize,
		"170130: Order quantity has too many decimals.":     domain.RejectInvalidSize,
		"170134: Order price has too many decimals.":        domain.RejectInvalidPrice,
		"170121: Invalid symbol.":                           domain.RejectInvalidPair,
		"10006: Too many visits!":                           domain.RejectRateLimit,
		"10001: params error":                               domain.RejectUnknown,
	}

	for msg, want := range cases {
		t.Run(msg, func(t *testing.T) {
			err := bybitRejection(btcusdt, errors.New(msg))
			assert.Equal(t, want, domain.RejectReasonOf(err))
			assert.Contains(t, err.Error(), "BTCUSDT")
		})
	}
}

func TestBybitStatus(t *testing.T) {
	assert.Equal(t, domain.OrderStatusOpen, bybitStatus("New"))
	assert.Equal(t, domain.OrderStatusOpen, bybitStatus("PartiallyFilled"))
	assert.Equal(t, domain.OrderStatusOpen, bybitStatus("Untriggered"))
	assert.Equal(t, domain.OrderStatusFilled, bybitStatus("Filled"))
	assert.Equal(t, domain.OrderStatusCancelled, bybitStatus("Cancelled"))
	assert.Equal(t, domain.OrderStatusCancelled, bybitStatus("Deactivated"))
	assert.Equal(t, domain.OrderStatusPending, bybitStatus("Created"))
}

func TestBybitNotFound(t *testing.T) {
	assert.True(t, bybitNotFound(errors.New("170213: Order does not exist.")))
	assert.True(t, bybitNotFound(errors.New("110001: order not exists or too late to cancel")))
	assert.False(t, bybitNotFound(errors.New("10006: Too many visits!")))
}
