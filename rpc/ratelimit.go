package rpc

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sellerchain/observability"
)

const limiterIdleTTL = 5 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter applies a token bucket per client address. A non-positive
// rate disables limiting.
type clientLimiter struct {
	perSecond rate.Limit
	burst     int

	mu       sync.Mutex
	visitors map[string]*limiterEntry
	now      func() time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		visitors:  make(map[string]*limiterEntry),
		now:       time.Now,
	}
}

func (l *clientLimiter) allow(source string) bool {
	if l.perSecond <= 0 {
		return true
	}
	if source == "" {
		source = "unknown"
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, entry := range l.visitors {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.visitors, id)
		}
	}
	entry, ok := l.visitors[source]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[source] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := clientSource(r)
		if !l.allow(source) {
			observability.ModuleMetrics().RecordThrottle(metricsModule, "rate_limit")
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", source)
			return
		}
		next.ServeHTTP(w, r)
	})
}
