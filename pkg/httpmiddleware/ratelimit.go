package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Decision is the outcome of Limiter.Allow.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

// Limiter approximates a sliding window by weighting the previous fixed
// window with its overlap.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*window
}

// NewLimiter creates a limiter that admits max requests per window.
func NewLimiter(max int, win time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  win,
		buckets: make(map[string]*window),
	}
}

// Allow records a request for key at now if it fits the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &window{currStart: now.Truncate(l.window)}
		l.buckets[key] = b
	}
	if since := now.Sub(b.currStart); since >= l.window {
		b.prev = b.curr
		if since >= 2*l.window {
			b.prev = 0
		}
		b.curr = 0
		b.currStart = now.Truncate(l.window)
	}

	overlap := 1 - now.Sub(b.currStart).Seconds()/l.window.Seconds()
	count := b.prev*math.Max(overlap, 0) + b.curr
	d := Decision{ResetAt: b.currStart.Add(l.window)}
	if count >= float64(l.max) {
		return d
	}
	b.curr++
	d.Allowed = true
	d.Remaining = max(int(float64(l.max)-count-1), 0)
	return d
}

// Sweep drops buckets idle for two windows.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.currStart) >= 2*l.window {
			delete(l.buckets, key)
		}
	}
}

// Run sweeps periodically until ctx is done.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// RateLimit rejects requests over the limit with 429. Every response carries
// the X-RateLimit-* headers.
func RateLimit(l *Limiter, keyFunc func(*http.Request) string) Middleware {
	if keyFunc == nil {
		keyFunc = KeyByAPIKey
	}
	limit := strconv.Itoa(l.max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			d := l.Allow(keyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				retry := math.Ceil(max(d.ResetAt.Sub(now), 0).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(retry)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// KeyByAPIKey buckets authenticated callers by key and the rest by IP.
func KeyByAPIKey(r *http.Request) string {
	if k := apiKey(r); k != "" {
		return "key:" + k
	}
	return "ip:" + ClientIP(r)
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func apiKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	return r.Header.Get("api_key")
}
