package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 1000
	idleClientTTL     = 10 * time.Minute
)

// clientBudget holds one caller's token buckets. Credential routes draw from
// credentials; everything else from general.
type clientBudget struct {
	general     *rate.Limiter
	credentials *rate.Limiter
	lastSeen    time.Time
}

type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	trustProxy bool

	mu      sync.Mutex
	clients map[string]*clientBudget
}

// NewRateLimitMiddleware keys budgets by client address. Forwarding headers
// are honoured only when trustProxy is set; otherwise any caller could pick
// a fresh key per request and escape the credential budget.
func NewRateLimitMiddleware(generalRPM int, authRPM int, trustProxy bool) *RateLimitMiddleware {
	if generalRPM <= 0 {
		generalRPM = 100
	}
	if authRPM <= 0 {
		authRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		trustProxy: trustProxy,
		clients:    map[string]*clientBudget{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUnmetered(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		client := remoteHost(r)
		if m.trustProxy {
			client = forwardedClientIP(r)
		}

		credential := isCredentialPath(r.URL.Path)
		budget := m.budget(client)
		limiter := budget.general
		if credential {
			limiter = budget.credentials
		}

		now := time.Now()
		reservation := limiter.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); !reservation.OK() || delay > 0 {
			reservation.CancelAt(now)
			slog.Warn("rate limit exceeded",
				"client_ip", client,
				"path", r.URL.Path,
				"credential_route", credential,
				"retry_after", delay,
			)
			w.Header().Set("Retry-After", retryAfterSeconds(delay))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) budget(client string) *clientBudget {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.clients[client]
	if !ok {
		b = &clientBudget{
			general:     perMinute(m.generalRPM),
			credentials: perMinute(m.authRPM),
		}
		m.clients[client] = b
	}
	b.lastSeen = now

	if len(m.clients) >= maxTrackedClients {
		m.evictIdleLocked(now)
	}
	return b
}

func (m *RateLimitMiddleware) evictIdleLocked(now time.Time) {
	cutoff := now.Add(-idleClientTTL)
	for client, b := range m.clients {
		if b.lastSeen.Before(cutoff) {
			delete(m.clients, client)
		}
	}
}

func perMinute(rpm int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

// retryAfterSeconds rounds delay up to whole seconds, with a floor of one.
// An unbounded delay is reported as a minute.
func retryAfterSeconds(delay time.Duration) string {
	if delay <= 0 || delay == rate.InfDuration {
		delay = time.Minute
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(delay.Seconds()))))
}

func isUnmetered(path string) bool {
	return path == "/health" || path == "/metrics"
}

// isCredentialPath matches the login and registration routes under both the
// versioned and the unversioned prefix.
func isCredentialPath(path string) bool {
	switch strings.TrimSuffix(strings.ToLower(path), "/") {
	case "/api/v1/auth/login", "/api/v1/auth/registration", "/auth/login", "/auth/registration":
		return true
	}
	return false
}

func forwardedClientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}
