package shield

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limit is a fixed-window rate limit.
type Limit struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter provides per-IP rate limiting with a fixed window. Buckets
// are kept in memory and garbage collected lazily; expensive endpoints can
// carry their own tighter limit.
type RateLimiter struct {
	def     Limit
	perPath map[string]Limit
	buckets sync.Map
	exclude []string
	lastGC  time.Time
	gcMu    sync.Mutex
	now     func() time.Time
}

// NewRateLimiter creates a limiter with a default limit. Paths matching an
// excluded prefix bypass limiting entirely.
func NewRateLimiter(def Limit, excludePrefixes ...string) *RateLimiter {
	if def.MaxRequests <= 0 {
		def.MaxRequests = 60
	}
	if def.Window <= 0 {
		def.Window = time.Minute
	}
	return &RateLimiter{
		def:     def,
		perPath: make(map[string]Limit),
		exclude: excludePrefixes,
		now:     time.Now,
	}
}

// SetPathLimit overrides the limit for one exact "METHOD /path" endpoint.
func (rl *RateLimiter) SetPathLimit(endpoint string, l Limit) {
	rl.perPath[endpoint] = l
}

func (rl *RateLimiter) limitFor(endpoint string) Limit {
	if l, ok := rl.perPath[endpoint]; ok {
		return l
	}
	return rl.def
}

func (rl *RateLimiter) allow(ip, endpoint string) bool {
	l := rl.limitFor(endpoint)
	key := ip + ":" + endpoint
	now := rl.now()

	val, loaded := rl.buckets.LoadOrStore(key, &bucket{count: 1, resetAt: now.Add(l.Window)})
	if !loaded {
		return true
	}
	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.After(b.resetAt) {
		b.count = 1
		b.resetAt = now.Add(l.Window)
		return true
	}
	b.count++
	return b.count <= l.MaxRequests
}

// gc drops expired buckets, at most once per five minutes.
func (rl *RateLimiter) gc() {
	rl.gcMu.Lock()
	now := rl.now()
	if now.Sub(rl.lastGC) < 5*time.Minute {
		rl.gcMu.Unlock()
		return
	}
	rl.lastGC = now
	rl.gcMu.Unlock()

	rl.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		expired := now.After(b.resetAt)
		b.mu.Unlock()
		if expired {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// Middleware enforces the limits, answering 429 JSON when exceeded.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		endpoint := r.Method + " " + r.URL.Path
		ip := ExtractIP(r)

		rl.gc()
		if rl.allow(ip, endpoint) {
			next.ServeHTTP(w, r)
			return
		}

		slog.Warn("ratelimit: request blocked", "ip", ip, "endpoint", endpoint)
		w.Header().Set("Retry-After", "60")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
