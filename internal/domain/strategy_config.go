package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// StrategyConfig holds the ladder strategy parameters. Fractions are
// expressed relative to 1 (0.03 is 3%), except SafetyOrderStepScale which is
// a percent deviation from the base price.
type StrategyConfig struct {
	// BaseOrderSize is the quote notional of the first buy.
	BaseOrderSize decimal.Decimal `json:"base_order_size"`
	// SafetyOrderSize is the quote notional of the first safety rung.
	SafetyOrderSize           decimal.Decimal `json:"safety_order_size"`
	TakeProfitPercentage      decimal.Decimal `json:"take_profit_percentage"`
	InitialStopLossPercentage decimal.Decimal `json:"initial_stop_loss_percentage"`
	TrailingDeviation         decimal.Decimal `json:"trailing_deviation"`
	TakeProfitIncrementFactor decimal.Decimal `json:"take_profit_increment_factor"`
	MaxSafetyOrders           int             `json:"max_safety_orders"`
	SafetyOrderSizeScale      decimal.Decimal `json:"safety_order_size_scale"`
	SafetyOrderStepScale      decimal.Decimal `json:"safety_order_step_scale"`
	// ActivationPercentage is accepted and carried but has no effect on trading.
	ActivationPercentage decimal.Decimal `json:"activation_percentage"`
}

// DefaultStrategyConfig returns the defaults applied to omitted settings.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		BaseOrderSize:             decimal.NewFromInt(10),
		SafetyOrderSize:           decimal.NewFromInt(10),
		TakeProfitPercentage:      decimal.RequireFromString("0.03"),
		InitialStopLossPercentage: decimal.RequireFromString("0.01"),
		TrailingDeviation:         decimal.RequireFromString("0.01"),
		TakeProfitIncrementFactor: decimal.RequireFromString("0.01"),
		MaxSafetyOrders:           3,
		SafetyOrderSizeScale:      decimal.RequireFromString("1.5"),
		SafetyOrderStepScale:      decimal.RequireFromString("1.5"),
		ActivationPercentage:      decimal.RequireFromString("0.05"),
	}
}

// Validate checks that every size, percentage and scale is positive.
func (c StrategyConfig) Validate() error {
	positive := []struct {
		name  string
		value decimal.Decimal
	}{
		{"base_order_size", c.BaseOrderSize},
		{"safety_order_size", c.SafetyOrderSize},
		{"take_profit_percentage", c.TakeProfitPercentage},
		{"initial_stop_loss_percentage", c.InitialStopLossPercentage},
		{"trailing_deviation", c.TrailingDeviation},
		{"take_profit_increment_factor", c.TakeProfitIncrementFactor},
		{"safety_order_size_scale", c.SafetyOrderSizeScale},
		{"safety_order_step_scale", c.SafetyOrderStepScale},
		{"activation_percentage", c.ActivationPercentage},
	}
	for _, p := range positive {
		if !p.value.IsPositive() {
			return errors.Wrapf(ErrConfiguration, "%s must be positive, got %s", p.name, p.value.String())
		}
	}

	if c.MaxSafetyOrders < 0 {
		return errors.Wrapf(ErrConfiguration, "max_safety_orders must not be negative, got %d", c.MaxSafetyOrders)
	}
	if c.InitialStopLossPercentage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Wrapf(ErrConfiguration, "initial_stop_loss_percentage must be below 1, got %s",
			c.InitialStopLossPercentage.String())
	}
	if c.TrailingDeviation.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Wrapf(ErrConfiguration, "trailing_deviation must be below 1, got %s",
			c.TrailingDeviation.String())
	}
	if rung, depth, ok := c.ladderReachesZero(); ok {
		return errors.Wrapf(ErrConfiguration,
			"safety rung %d would trigger %s%% below the base price, lower max_safety_orders or safety_order_step_scale",
			rung, depth.String())
	}

	return nil
}

// ladderReachesZero reports the first rung whose summed step reaches 100%.
// Such a rung has no positive trigger price whatever the base price is.
func (c StrategyConfig) ladderReachesZero() (int, decimal.Decimal, bool) {
	one := decimal.NewFromInt(1)
	scale := c.SafetyOrderStepScale
	// steps shrink geometrically and their total stays below scale/(1-scale)
	if scale.LessThan(one) && scale.Div(one.Sub(scale)).LessThan(hundred) {
		return 0, decimal.Zero, false
	}

	step, total := decimal.Zero, decimal.Zero
	for i := 1; i <= c.MaxSafetyOrders; i++ {
		if i == 1 {
			step = scale
		} else {
			step = step.Mul(scale)
		}
		total = total.Add(step)
		if total.GreaterThanOrEqual(hundred) {
			return i, total, true
		}
	}

	return 0, decimal.Zero, false
}
