package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus is the last known exchange status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Active reports whether the order may still execute on the exchange.
func (s OrderStatus) Active() bool {
	return s == OrderStatusPending || s == OrderStatusOpen
}

// OrderRole tells which part of the strategy an order belongs to.
type OrderRole string

const (
	RoleBase       OrderRole = "base"
	RoleSafety     OrderRole = "safety"
	RoleTakeProfit OrderRole = "take_profit"
	RoleStopLoss   OrderRole = "stop_loss"
)

// Order is a limit order placed by the engine.
type Order struct {
	// ID is the client order id used to cancel and query the order.
	ID string `json:"id"`
	// ExchangeOrderID is the venue id, empty when the venue did not report one.
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	Role            OrderRole       `json:"role"`
	Side            Side            `json:"side"`
	// Price and Size are what the venue accepted after lot and tick rounding.
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
	Status OrderStatus     `json:"status"`
	// RequestedPrice and RequestedSize are the levels the engine asked for.
	RequestedPrice decimal.Decimal `json:"requested_price"`
	RequestedSize  decimal.Decimal `json:"requested_size"`
	// RungIndex is set for safety orders only.
	RungIndex int       `json:"rung_index,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notional returns price × size.
func (o Order) Notional() decimal.Decimal {
	return o.Price.Mul(o.Size)
}

// Requested returns the price and size the engine asked for. Orders recorded
// without them fall back to the accepted values.
func (o Order) Requested() (price, size decimal.Decimal) {
	price, size = o.RequestedPrice, o.RequestedSize
	if price.IsZero() {
		price = o.Price
	}
	if size.IsZero() {
		size = o.Size
	}
	return price, size
}
