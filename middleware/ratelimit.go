// middleware/ratelimit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long an untouched per-user limiter survives
	// before a sweep drops it. Keeps the map bounded by recent traffic
	// instead of growing for the process lifetime.
	limiterIdleTTL = 30 * time.Minute
	sweepInterval  = 10 * time.Minute
)

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one rate.Limiter per fid and lazily evicts idle
// entries on access, so no background goroutine is needed.
type limiterPool struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	users     map[int64]*userLimiter
	lastSweep time.Time
}

func newLimiterPool(rps rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		rps:   rps,
		burst: burst,
		users: make(map[int64]*userLimiter),
	}
}

func (p *limiterPool) get(fid int64, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastSweep) >= sweepInterval {
		for id, u := range p.users {
			if now.Sub(u.lastSeen) >= limiterIdleTTL {
				delete(p.users, id)
			}
		}
		p.lastSweep = now
	}

	u, ok := p.users[fid]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(p.rps, p.burst)}
		p.users[fid] = u
	}
	u.lastSeen = now
	return u.lim
}

// RateLimitMiddleware throttles mutating reward routes per authenticated
// user. Claims, donations and mints are human-paced actions; anything
// hammering them is a script.
func RateLimitMiddleware(rps rate.Limit, burst int) fiber.Handler {
	pool := newLimiterPool(rps, burst)

	return func(c *fiber.Ctx) error {
		fid, ok := c.Locals("fid").(int64)
		if !ok {
			// Must run after SessionMiddleware.
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing session context",
			})
		}
		if !pool.get(fid, time.Now()).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, slow down",
			})
		}
		return c.Next()
	}
}
