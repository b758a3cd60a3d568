package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"catalogdesk/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	purgeInterval = 5 * time.Minute
	idleAfter     = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than idleAfter are dropped by Run.
type IPRateLimiter struct {
	name     string
	limit    rate.Limit
	burst    int
	message  string
	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewIPRateLimiter allows n requests per window per IP, all of which may
// arrive at once.
func NewIPRateLimiter(name string, n int, window time.Duration, message string) *IPRateLimiter {
	return &IPRateLimiter{
		name:     name,
		limit:    rate.Every(window / time.Duration(n)),
		burst:    n,
		message:  message,
		visitors: make(map[string]*visitor),
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() *IPRateLimiter {
	return NewIPRateLimiter("login", 20, time.Minute, "Too many login attempts. Try again in a minute.")
}

// APIRateLimiter is the general limit for every route.
func APIRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return NewIPRateLimiter("api", limit, window, "Too many requests. Try again shortly.")
}

func (l *IPRateLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Middleware rejects requests over the limit with 429 and a Retry-After in
// seconds.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		lim := l.get(c.ClientIP(), now)
		r := lim.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.message))
			return
		}
		c.Next()
	}
}

// Run purges idle buckets until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := l.purge(now); n > 0 {
				log.Debug().Str("limiter", l.name).Int("purged", n).Msg("rate limiter entries purged")
			}
		}
	}
}

func (l *IPRateLimiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleAfter {
			delete(l.visitors, ip)
			purged++
		}
	}
	return purged
}
