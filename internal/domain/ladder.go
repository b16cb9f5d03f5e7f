package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SafetyOrderRung is one pre-computed safety buy level.
type SafetyOrderRung struct {
	// Index is 1-based, 1 is the closest to the base price.
	Index        int             `json:"index"`
	TriggerPrice decimal.Decimal `json:"trigger_price"`
	// Size is the quote notional to spend at TriggerPrice.
	Size decimal.Decimal `json:"size"`
}

// BaseQuantity returns the base-currency amount bought at the trigger price.
func (r SafetyOrderRung) BaseQuantity() decimal.Decimal {
	return r.Size.Div(r.TriggerPrice)
}

// BuildLadder expands the safety ladder below basePrice.
//
// Sizes grow geometrically by SafetyOrderSizeScale starting at
// SafetyOrderSize. Step i is SafetyOrderStepScale^i percent, and rung i
// triggers at basePrice reduced by the sum of steps 1..i.
func BuildLadder(basePrice decimal.Decimal, cfg StrategyConfig) ([]SafetyOrderRung, error) {
	if cfg.MaxSafetyOrders < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "max safety orders is negative: %d", cfg.MaxSafetyOrders)
	}
	if !basePrice.IsPositive() {
		return nil, errors.Wrapf(ErrInvalidConfig, "base price must be positive, got %s", basePrice.String())
	}
	if !cfg.SafetyOrderSize.IsPositive() {
		return nil, errors.Wrapf(ErrInvalidConfig, "safety order size must be positive, got %s", cfg.SafetyOrderSize.String())
	}
	if !cfg.SafetyOrderSizeScale.IsPositive() {
		return nil, errors.Wrapf(ErrInvalidConfig, "size scale must be positive, got %s", cfg.SafetyOrderSizeScale.String())
	}
	if !cfg.SafetyOrderStepScale.IsPositive() {
		return nil, errors.Wrapf(ErrInvalidConfig, "step scale must be positive, got %s", cfg.SafetyOrderStepScale.String())
	}

	rungs := make([]SafetyOrderRung, 0, cfg.MaxSafetyOrders)
	size := cfg.SafetyOrderSize
	step := cfg.SafetyOrderStepScale
	cumulative := decimal.Zero

	for i := 1; i <= cfg.MaxSafetyOrders; i++ {
		if i > 1 {
			size = size.Mul(cfg.SafetyOrderSizeScale)
			step = step.Mul(cfg.SafetyOrderStepScale)
		}
		cumulative = cumulative.Add(step)

		trigger := basePrice.Mul(decimal.NewFromInt(1).Sub(cumulative.Div(hundred)))
		if !trigger.IsPositive() {
			return nil, errors.Wrapf(ErrInvalidConfig,
				"rung %d deviates %s%% from base price, trigger price would not be positive", i, cumulative.String())
		}

		rungs = append(rungs, SafetyOrderRung{Index: i, TriggerPrice: trigger, Size: size})
	}

	return rungs, nil
}
