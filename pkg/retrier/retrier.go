// Package retrier retries exchange calls with jittered exponential backoff
// inside the caller's deadline.
package retrier

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Defaults fit REST calls made inside one strategy cycle.
const (
	defaultInitialInterval = 200 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
	defaultMaxRetries      = 2
	defaultJitter          = 0.1
	backoffMultiplier      = 2
)

// Retrier runs a call again after failures it considers retryable.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxRetries      int
	jitter          float64
	retryIf         func(error) bool
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the pause before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

// WithMaxInterval caps the pause between retries.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// WithMaxRetries sets how many times a failed call is repeated.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// WithJitter spreads each pause by up to ±j of its length.
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		r.jitter = j
	}
}

// WithRetryIf retries only errors for which fn returns true.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) {
		r.retryIf = fn
	}
}

// New creates a Retrier with the cycle defaults and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxRetries:      defaultMaxRetries,
		jitter:          defaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do calls fn until it succeeds, fails with a non-retryable error, runs out
// of retries or the next pause would pass the context deadline. The last
// error is returned; after retrying it is annotated with the attempt count.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.initialInterval
	attempts := 0

	for {
		err := fn(ctx)
		attempts++
		if err == nil {
			return nil
		}
		if attempts > r.maxRetries || (r.retryIf != nil && !r.retryIf(err)) {
			return annotate(err, attempts)
		}

		wait := r.spread(interval)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			// no time left in this cycle for another attempt
			return annotate(err, attempts)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}

		interval *= backoffMultiplier
		if interval > r.maxInterval {
			interval = r.maxInterval
		}
	}
}

// DoWithData is Do for calls that return a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

func (r *Retrier) spread(d time.Duration) time.Duration {
	jitter := (rand.Float64()*2 - 1) * r.jitter * float64(d)
	if out := time.Duration(float64(d) + jitter); out > 0 {
		return out
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func annotate(err error, attempts int) error {
	if attempts == 1 {
		return err
	}
	return errors.Wrapf(err, "gave up after %d attempts", attempts)
}
