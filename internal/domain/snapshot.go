package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusSnapshot is a read-only projection of a strategy state for reporting.
type StatusSnapshot struct {
	Timestamp          time.Time         `json:"ts"`
	Pair               string            `json:"pair"`
	Platform           string            `json:"platform,omitempty"`
	Phase              Phase             `json:"phase"`
	Running            bool              `json:"running"`
	BaseOrder          *Order            `json:"base_order,omitempty"`
	RemainingLadder    []SafetyOrderRung `json:"remaining_ladder"`
	FilledSafetyOrders []Order           `json:"filled_safety_orders"`
	TakeProfitOrder    *Order            `json:"take_profit_order,omitempty"`
	StopLossOrder      *Order            `json:"stop_loss_order,omitempty"`
	TakeProfitPrice    *decimal.Decimal  `json:"take_profit_price,omitempty"`
	StopLossPrice      *decimal.Decimal  `json:"stop_loss_price,omitempty"`
	ExitOrder          *Order            `json:"exit_order,omitempty"`
	PendingCancels     []Order           `json:"pending_cancels,omitempty"`
	LastPrice          decimal.Decimal   `json:"last_price"`
	PositionSize       decimal.Decimal   `json:"position_size"`
	AverageEntryPrice  decimal.Decimal   `json:"average_entry_price"`
	StopReason         string            `json:"stop_reason,omitempty"`
}

// NewStatusSnapshot projects state into a snapshot taken at ts.
func NewStatusSnapshot(pair Pair, platform string, state StrategyState, ts time.Time) StatusSnapshot {
	s := state.Clone()
	ladder := s.Ladder
	if ladder == nil {
		ladder = []SafetyOrderRung{}
	}
	filled := s.FilledSafetyOrders
	if filled == nil {
		filled = []Order{}
	}

	return StatusSnapshot{
		Timestamp:          ts,
		Pair:               pair.String(),
		Platform:           platform,
		Phase:              s.Phase,
		Running:            !s.Stopped(),
		BaseOrder:          s.BaseOrder,
		RemainingLadder:    ladder,
		FilledSafetyOrders: filled,
		TakeProfitOrder:    s.TakeProfitOrder,
		StopLossOrder:      s.StopLossOrder,
		TakeProfitPrice:    s.TakeProfitPrice,
		StopLossPrice:      s.StopLossPrice,
		ExitOrder:          s.ExitOrder,
		PendingCancels:     s.PendingCancels,
		LastPrice:          s.LastPrice,
		PositionSize:       s.PositionSize(),
		AverageEntryPrice:  s.AverageEntryPrice(),
		StopReason:         s.StopReason,
	}
}
