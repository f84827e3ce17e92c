// Package ratelimit implements fixed-window request limiting keyed by an
// arbitrary string (client IP, normalized e-mail).
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter counts hits per key inside a fixed window. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New returns a limiter allowing limit hits per key per period. A limit of
// zero or less disables limiting.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many hits key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// RetryAfter returns how long until key's current window closes, or zero
// when key has no open window.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		return 0
	}
	return max(w.expiresAt.Sub(l.now()), 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Sweep drops expired windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginConfig sets the two login windows.
type LoginConfig struct {
	IPLimit     int
	IPPeriod    time.Duration
	EmailLimit  int
	EmailPeriod time.Duration
}

// DefaultLoginConfig allows 10 attempts per IP per minute and 5 attempts per
// e-mail per 5 minutes.
var DefaultLoginConfig = LoginConfig{
	IPLimit:     10,
	IPPeriod:    time.Minute,
	EmailLimit:  5,
	EmailPeriod: 5 * time.Minute,
}

// LoginLimiter throttles login attempts by client IP and by target e-mail.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

func NewLoginLimiter(cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(cfg.IPLimit, cfg.IPPeriod),
		email: New(cfg.EmailLimit, cfg.EmailPeriod),
	}
}

// Check records an attempt. When blocked it returns false, a
// client-facing reason and the time left in the window that blocked it.
func (ll *LoginLimiter) Check(ip, email string) (bool, string, time.Duration) {
	if !ll.ip.Allow(ip) {
		return false, "Too many login attempts. Please wait before trying again.", ll.ip.RetryAfter(ip)
	}
	if key := emailKey(email); key != "" && !ll.email.Allow(key) {
		return false, "Too many login attempts for this account. Please wait before trying again.", ll.email.RetryAfter(key)
	}
	return true, "", 0
}

// RetryAfterSeconds formats d for a Retry-After header: whole seconds,
// rounded up, never below 1.
func RetryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}

// ResetEmail clears the e-mail window after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		ll.email.Reset(key)
	}
}

// Sweep drops expired windows from both limiters.
func (ll *LoginLimiter) Sweep() int {
	return ll.ip.Sweep() + ll.email.Sweep()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
