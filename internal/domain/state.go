package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the strategy lifecycle stage.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseBaseOrderPlaced    Phase = "base_order_placed"
	PhaseSafetyOrdersActive Phase = "safety_orders_active"
	PhaseProtectivelyHedged Phase = "protectively_hedged"
	PhaseStopped            Phase = "stopped"
)

// Stop reasons recorded in StrategyState.StopReason.
const (
	StopReasonRequested        = "stop_requested"
	StopReasonTakeProfitFilled = "take_profit_filled"
	StopReasonStopLossFilled   = "stop_loss_filled"
	StopReasonFatalError       = "fatal_error"
)

// StrategyState is the complete mutable state of one strategy run. It is
// passed into and returned from the engine on every cycle.
type StrategyState struct {
	Phase              Phase             `json:"phase"`
	BaseOrder          *Order            `json:"base_order,omitempty"`
	Ladder             []SafetyOrderRung `json:"ladder"`
	FilledSafetyOrders []Order           `json:"filled_safety_orders"`
	TakeProfitOrder    *Order            `json:"take_profit_order,omitempty"`
	StopLossOrder      *Order            `json:"stop_loss_order,omitempty"`
	TakeProfitPrice    *decimal.Decimal  `json:"take_profit_price,omitempty"`
	StopLossPrice      *decimal.Decimal  `json:"stop_loss_price,omitempty"`
	// ExitOrder is the protective sell whose fill closed the position.
	ExitOrder *Order `json:"exit_order,omitempty"`
	// PendingCancels are orders still live on the exchange after their cancel
	// failed while the run stopped. They are retried before anything else.
	PendingCancels []Order `json:"pending_cancels,omitempty"`
	// LastPrice is the price observed by the latest cycle.
	LastPrice decimal.Decimal `json:"last_price"`
	// RejectStreak counts consecutive order rejections, RetryAfter gates the
	// next placement attempt while the streak is non-zero.
	RejectStreak int       `json:"reject_streak"`
	RetryAfter   time.Time `json:"retry_after"`
	StopReason   string    `json:"stop_reason,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewStrategyState returns the initial idle state.
func NewStrategyState() StrategyState {
	return StrategyState{Phase: PhaseIdle}
}

// Stopped reports whether the run is over.
func (s StrategyState) Stopped() bool {
	return s.Phase == PhaseStopped
}

// Settled reports whether the run is stopped and left nothing on the book.
func (s StrategyState) Settled() bool {
	return s.Stopped() && len(s.PendingCancels) == 0
}

// ProtectionArmed reports whether protective sells are expected to be on the book.
func (s StrategyState) ProtectionArmed() bool {
	return s.Phase == PhaseProtectivelyHedged
}

// PositionSize returns the base quantity bought so far.
func (s StrategyState) PositionSize() decimal.Decimal {
	total := decimal.Zero
	if s.BaseOrder != nil {
		total = total.Add(s.BaseOrder.Size)
	}
	for _, o := range s.FilledSafetyOrders {
		total = total.Add(o.Size)
	}
	return total
}

// AverageEntryPrice returns the size weighted entry price, zero without a position.
func (s StrategyState) AverageEntryPrice() decimal.Decimal {
	size := s.PositionSize()
	if !size.IsPositive() {
		return decimal.Zero
	}

	cost := decimal.Zero
	if s.BaseOrder != nil {
		cost = cost.Add(s.BaseOrder.Notional())
	}
	for _, o := range s.FilledSafetyOrders {
		cost = cost.Add(o.Notional())
	}
	return cost.Div(size)
}

// Clone returns a deep copy so engine cycles never mutate their input.
func (s StrategyState) Clone() StrategyState {
	out := s
	out.BaseOrder = cloneOrder(s.BaseOrder)
	out.TakeProfitOrder = cloneOrder(s.TakeProfitOrder)
	out.StopLossOrder = cloneOrder(s.StopLossOrder)
	out.ExitOrder = cloneOrder(s.ExitOrder)
	out.TakeProfitPrice = cloneDecimal(s.TakeProfitPrice)
	out.StopLossPrice = cloneDecimal(s.StopLossPrice)

	if s.Ladder != nil {
		out.Ladder = make([]SafetyOrderRung, len(s.Ladder))
		copy(out.Ladder, s.Ladder)
	}
	if s.FilledSafetyOrders != nil {
		out.FilledSafetyOrders = make([]Order, len(s.FilledSafetyOrders))
		copy(out.FilledSafetyOrders, s.FilledSafetyOrders)
	}
	if s.PendingCancels != nil {
		out.PendingCancels = make([]Order, len(s.PendingCancels))
		copy(out.PendingCancels, s.PendingCancels)
	}

	return out
}

func cloneOrder(o *Order) *Order {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
