package domain

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration is returned for missing or invalid settings. Fatal for a run.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidConfig is returned by BuildLadder for parameters it cannot expand.
	ErrInvalidConfig = errors.New("invalid ladder config")
	// ErrMarketDataUnavailable means the exchange could not provide a price.
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	// ErrAccountUnavailable means the exchange could not provide a balance.
	ErrAccountUnavailable = errors.New("account unavailable")
	// ErrOrderRejected matches every *OrderRejectedError.
	ErrOrderRejected = errors.New("order rejected")
	// ErrOrderNotFound is returned when cancelling an order the exchange no longer knows.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCancelRejected is returned when the exchange refused a cancellation.
	ErrCancelRejected = errors.New("cancel rejected")
)

// RejectReason classifies why an exchange refused an order.
type RejectReason string

const (
	RejectInsufficientFunds RejectReason = "insufficient_funds"
	RejectInvalidSize       RejectReason = "invalid_size"
	RejectInvalidPrice      RejectReason = "invalid_price"
	RejectRateLimit         RejectReason = "rate_limit"
	RejectInvalidPair       RejectReason = "invalid_pair"
	RejectUnknown           RejectReason = "unknown"
)

// OrderRejectedError carries the exchange's reason for refusing an order.
type OrderRejectedError struct {
	Reason  RejectReason
	Message string
}

// NewOrderRejected creates an OrderRejectedError.
func NewOrderRejected(reason RejectReason, format string, args ...any) *OrderRejectedError {
	return &OrderRejectedError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func (e *OrderRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order rejected: %s", e.Reason)
	}
	return fmt.Sprintf("order rejected (%s): %s", e.Reason, e.Message)
}

// Is makes errors.Is(err, ErrOrderRejected) match.
func (e *OrderRejectedError) Is(target error) bool {
	return target == ErrOrderRejected
}

// Permanent reports whether retrying the same order can never succeed.
func (e *OrderRejectedError) Permanent() bool {
	return e.Reason == RejectInvalidPair
}

// RejectReasonOf extracts the rejection reason, RejectUnknown if err is not a rejection.
func RejectReasonOf(err error) RejectReason {
	var rejected *OrderRejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason
	}
	return RejectUnknown
}

// IsFatal reports whether err must end the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInvalidConfig) {
		return true
	}

	var rejected *OrderRejectedError
	return errors.As(err, &rejected) && rejected.Permanent()
}

// IsTransient reports whether err only skips the current cycle.
func IsTransient(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}

	switch {
	case errors.Is(err, ErrMarketDataUnavailable),
		errors.Is(err, ErrAccountUnavailable),
		errors.Is(err, ErrOrderRejected),
		errors.Is(err, ErrCancelRejected),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	return false
}
