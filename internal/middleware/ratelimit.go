package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"golang.org/x/time/rate"
)

// UserRateLimiter hands out one token bucket per authenticated user.
// Buckets idle long enough to have refilled completely are dropped, since a
// fresh bucket behaves the same.
type UserRateLimiter struct {
	mu        sync.Mutex
	limiters  map[uint64]*userLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter allows burst requests at once and one more every interval.
func NewUserRateLimiter(interval time.Duration, burst int) *UserRateLimiter {
	return &UserRateLimiter{
		limiters:  make(map[uint64]*userLimiter),
		limit:     rate.Every(interval),
		burst:     burst,
		idleTTL:   interval * time.Duration(burst),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *UserRateLimiter) limiterFor(userID uint64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.evictIdle(now)
	}

	entry, ok := l.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdle runs at most once per idleTTL, so its cost is amortized over requests
func (l *UserRateLimiter) evictIdle(now time.Time) {
	for userID, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, userID)
		}
	}
	l.lastSweep = now
}

// Middleware answers 429 with a Retry-After hint once a user's bucket is empty.
// It must run after RequireAuth.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !Allow(c, l.limiterFor(userID)) {
			return
		}
		c.Next()
	}
}

// Allow takes a token from limiter or writes a 429 response and aborts.
func Allow(c *gin.Context, limiter *rate.Limiter) bool {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		apierrors.TooManyRequests(c, "Too many requests", time.Minute)
		c.Abort()
		return false
	}

	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		apierrors.TooManyRequests(c, "Too many requests", delay)
		c.Abort()
		return false
	}
	return true
}
