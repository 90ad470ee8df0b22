package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type RateLimitConfig struct {
	IPPerMinute       int
	IPBurst           int
	BusinessPerMinute int
	BusinessBurst     int
	Clock             clockwork.Clock
}

type limitScope string

const (
	scopeIP       limitScope = "ip"
	scopeBusiness limitScope = "business"

	bucketSweepEvery = 5 * time.Minute
)

// RateLimiter keeps token buckets keyed by scope and key: one per client IP and
// one per business. Buckets that have refilled completely are dropped on the
// periodic sweep.
type RateLimiter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	limits    map[limitScope]limit
	buckets   map[bucketKey]*bucket
	lastSweep time.Time
}

type limit struct {
	rate  float64
	burst float64
}

type bucketKey struct {
	scope limitScope
	key   string
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		clock: clock,
		limits: map[limitScope]limit{
			scopeIP:       newLimit(cfg.IPPerMinute, cfg.IPBurst),
			scopeBusiness: newLimit(cfg.BusinessPerMinute, cfg.BusinessBurst),
		},
		buckets:   make(map[bucketKey]*bucket),
		lastSweep: clock.Now(),
	}
}

func newLimit(perMinute, burst int) limit {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return limit{rate: float64(perMinute) / 60.0, burst: float64(burst)}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if ip := clientIP(r); ip != "" {
			if ok, wait := l.take(scopeIP, ip); !ok {
				l.reject(w, r, wait)
				return
			}
		}
		if business := extractBusinessKey(r); business != "" {
			if ok, wait := l.take(scopeBusiness, strings.ToLower(business)); !ok {
				l.reject(w, r, wait)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) reject(w http.ResponseWriter, r *http.Request, wait time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	writeError(w, requestIDFromRequest(r), http.StatusTooManyRequests, "rate_limited", "too many requests")
}

// take spends one token from the bucket. When the bucket is empty it reports
// how long until the next token.
func (l *RateLimiter) take(scope limitScope, key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastSweep) >= bucketSweepEvery {
		l.sweep(now)
	}

	lim := l.limits[scope]
	k := bucketKey{scope: scope, key: key}
	b, ok := l.buckets[k]
	if !ok {
		l.buckets[k] = &bucket{tokens: lim.burst - 1, last: now}
		return true, 0
	}
	b.tokens = math.Min(lim.burst, b.tokens+now.Sub(b.last).Seconds()*lim.rate)
	b.last = now
	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) / lim.rate * float64(time.Second))
	}
	b.tokens--
	return true, 0
}

func (l *RateLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		lim := l.limits[k.scope]
		if b.tokens+now.Sub(b.last).Seconds()*lim.rate >= lim.burst {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// size reports how many buckets are live.
func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractBusinessKey looks for the business in the X-Business-ID header, the
// businessId query parameter and finally a JSON body, which is restored for
// the next handler.
func extractBusinessKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Business-ID")); key != "" {
		return key
	}
	if key := strings.TrimSpace(r.URL.Query().Get("businessId")); key != "" {
		return key
	}
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}

	body, err := readBody(r)
	if err != nil {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if value, ok := payload["businessId"].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
