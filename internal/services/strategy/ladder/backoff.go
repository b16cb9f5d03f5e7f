package ladder

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladderbot/internal/domain"
	"go.uber.org/zap"
)

const (
	rejectBackoffInitial = 5 * time.Second
	rejectBackoffMax     = 5 * time.Minute
)

// rejectBackoff returns the pause after the n-th consecutive rejection.
func rejectBackoff(n int) time.Duration {
	if n < 1 {
		return 0
	}

	d := rejectBackoffInitial
	for i := 1; i < n; i++ {
		d *= 2
		if d >= rejectBackoffMax {
			return rejectBackoffMax
		}
	}
	return d
}

// canPlace reports whether new orders may be submitted in this cycle.
func (c *cycle) canPlace() bool {
	if c.state.RejectStreak == 0 || !c.now.Before(c.state.RetryAfter) {
		return true
	}

	c.l.Debug("order placement backing off",
		zap.Int("reject_streak", c.state.RejectStreak),
		zap.Time("retry_after", c.state.RetryAfter))
	return false
}

func (c *cycle) noteRejection(err error) {
	if !errors.Is(err, domain.ErrOrderRejected) {
		return
	}

	c.state.RejectStreak++
	c.state.RetryAfter = c.now.Add(rejectBackoff(c.state.RejectStreak))

	c.l.Warn("order rejected",
		zap.String("reason", string(domain.RejectReasonOf(err))),
		zap.Int("reject_streak", c.state.RejectStreak),
		zap.Time("retry_after", c.state.RetryAfter),
		zap.Error(err))
}
