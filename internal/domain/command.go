package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommandKind is the exchange operation an engine cycle performed.
type CommandKind string

const (
	CommandPlaceBuy  CommandKind = "place_buy"
	CommandPlaceSell CommandKind = "place_sell"
	CommandCancel    CommandKind = "cancel"
	CommandCancelAll CommandKind = "cancel_all"
)

// Command is an audit record of one order operation, successful or not.
type Command struct {
	Kind      CommandKind     `json:"kind"`
	Pair      string          `json:"pair"`
	Role      OrderRole       `json:"role,omitempty"`
	RungIndex int             `json:"rung_index,omitempty"`
	OrderID   string          `json:"order_id,omitempty"`
	Side      Side            `json:"side,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Status    OrderStatus     `json:"status,omitempty"`
	// Err is empty when the operation succeeded.
	Err  string    `json:"error,omitempty"`
	Time time.Time `json:"time"`
}

// Succeeded reports whether the exchange accepted the operation.
func (c Command) Succeeded() bool {
	return c.Err == ""
}

// PlaceCommand records an order placement attempt.
func PlaceCommand(pair Pair, o Order, err error, now time.Time) Command {
	kind := CommandPlaceBuy
	if o.Side == SideSell {
		kind = CommandPlaceSell
	}

	c := Command{
		Kind:      kind,
		Pair:      pair.String(),
		Role:      o.Role,
		RungIndex: o.RungIndex,
		OrderID:   o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Size:      o.Size,
		Status:    o.Status,
		Time:      now,
	}
	if err != nil {
		c.Err = err.Error()
	}
	return c
}

// CancelCommand records a cancellation attempt for o.
func CancelCommand(pair Pair, o Order, err error, now time.Time) Command {
	c := Command{
		Kind:      CommandCancel,
		Pair:      pair.String(),
		Role:      o.Role,
		RungIndex: o.RungIndex,
		OrderID:   o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Size:      o.Size,
		Status:    OrderStatusCancelled,
		Time:      now,
	}
	if err != nil {
		c.Status = o.Status
		c.Err = err.Error()
	}
	return c
}

// CommandRecord is a journaled command with its position in the journal.
type CommandRecord struct {
	Index   uint64  `json:"index"`
	Command Command `json:"command"`
}
