package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const msgTooManyRequests = "Muitas requisições. Tente novamente em instantes."

// clientIdleTTL is how long an address may stay silent before its limiter is
// forgotten.
const clientIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiters keeps one token bucket per client address.
type ClientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	r         rate.Limit
	b         int
	now       func() time.Time
	lastPrune time.Time
}

// NewClientLimiters creates limiters allowing r requests per second with
// bursts of b for every client.
func NewClientLimiters(r rate.Limit, b int) *ClientLimiters {
	return &ClientLimiters{
		clients: make(map[string]*clientLimiter),
		r:       r,
		b:       b,
		now:     time.Now,
	}
}

// Allow reports whether addr may make a request now.
func (l *ClientLimiters) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > clientIdleTTL {
		l.pruneLocked(now)
	}

	cl, ok := l.clients[addr]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[addr] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *ClientLimiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *ClientLimiters) pruneLocked(now time.Time) {
	for addr, cl := range l.clients {
		if now.Sub(cl.lastSeen) > clientIdleTTL {
			delete(l.clients, addr)
		}
	}
	l.lastPrune = now
}

// RateLimiter rejects clients that exceed their budget with 429.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimiterWith(NewClientLimiters(r, b))
}

// RateLimiterWith is RateLimiter over an existing set of limiters.
func RateLimiterWith(limiters *ClientLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": msgTooManyRequests})
			return
		}
		c.Next()
	}
}
