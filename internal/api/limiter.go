package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/config"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

// rateLimiter keeps one token bucket per client address. Buckets idle for
// longer than limiterIdleTTL are dropped.
type rateLimiter struct {
	limiters  sync.Map
	cfg       config.RateLimit
	trusted   []*net.IPNet
	lastSweep atomic.Int64
	now       func() time.Time
}

func newRateLimiter(cfg config.RateLimit) *rateLimiter {
	l := &rateLimiter{
		cfg: cfg,
		now: time.Now,
	}
	for _, p := range cfg.TrustedProxies {
		if n := parseProxy(p); n != nil {
			l.trusted = append(l.trusted, n)
		}
	}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func parseProxy(p string) *net.IPNet {
	if _, n, err := net.ParseCIDR(p); err == nil {
		return n
	}
	ip := net.ParseIP(p)
	if ip == nil {
		return nil
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func (l *rateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RPS > 0 {
			l.maybeSweep()
			if !l.getLimiter(l.clientKey(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now().UnixNano()
	if v, ok := l.limiters.Load(key); ok {
		if e, ok := v.(*limiterEntry); ok {
			e.lastSeen.Store(now)
			return e.lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	e := &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)}
	e.lastSeen.Store(now)
	actual, loaded := l.limiters.LoadOrStore(key, e)
	if loaded {
		if ae, ok := actual.(*limiterEntry); ok {
			ae.lastSeen.Store(now)
			return ae.lim
		}
	}
	return e.lim
}

func (l *rateLimiter) maybeSweep() {
	now := l.now().UnixNano()
	last := l.lastSweep.Load()
	if time.Duration(now-last) < limiterSweepInterval || !l.lastSweep.CompareAndSwap(last, now) {
		return
	}
	l.sweep()
}

// sweep drops buckets that have not been used within limiterIdleTTL.
func (l *rateLimiter) sweep() int {
	cutoff := l.now().Add(-limiterIdleTTL).UnixNano()
	removed := 0
	l.limiters.Range(func(k, v any) bool {
		if e, ok := v.(*limiterEntry); !ok || e.lastSeen.Load() < cutoff {
			l.limiters.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

func (l *rateLimiter) size() int {
	n := 0
	l.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (l *rateLimiter) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range l.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientKey is the socket peer, or for a trusted proxy the right-most
// X-Forwarded-For hop that is not itself a trusted proxy.
func (l *rateLimiter) clientKey(r *http.Request) string {
	peer := remoteHost(r)
	if !l.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !l.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
