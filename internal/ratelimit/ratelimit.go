// Package ratelimit limits the request rate per client address.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// idleTimeout is how long a client's limiter is kept after its last request.
	idleTimeout = 10 * time.Minute
	// sweepInterval is the minimum time between two scans for idle clients.
	sweepInterval = time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per client address.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

// New creates a limiter allowing requestsPerSecond with the given burst per client.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

// Allow reports whether a request of the client identified by key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	allowed := c.limiter.AllowN(now, 1)

	if now.Sub(l.lastSweep) > sweepInterval {
		l.sweep(now)
	}
	return allowed
}

// sweep drops idle clients so the map does not grow without bounds.
func (l *Limiter) sweep(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > idleTimeout {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// Middleware rejects requests above the limit with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests"})
			return
		}
		c.Next()
	}
}
