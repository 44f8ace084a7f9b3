// ABOUTME: Shared cooldown for the helper ping, backed by a single-token rate limiter
// ABOUTME: Reports the remaining wait without consuming the token when on cooldown

package roster

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown allows one use per period across all callers.
type Cooldown struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewCooldown creates a cooldown that is initially ready.
func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{limiter: rate.NewLimiter(rate.Every(period), 1)}
}

// Take consumes the cooldown at now. If it is not ready, Take returns false
// and how long remains.
func (c *Cooldown) Take(now time.Time) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// CeilMinutes rounds d up to whole minutes.
func CeilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
