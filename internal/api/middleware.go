package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"marketplace-storefront/internal/session"
	"marketplace-storefront/internal/workspace"
)

type workspaceKey struct{}

// WithWorkspace resolves the session cookie to a workspace and stores it in
// the request context. Only ids the server issued are resumed. Requests
// without one start a new session under a freshly minted id.
func (h *HTTPHandler) WithWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.resolveWorkspace(r)
		if err != nil {
			h.log.WithError(err).Error("failed to open workspace")
			respondWithError(w, http.StatusInternalServerError, "Failed to load session")
			return
		}
		h.setSessionCookie(w, ws.ID)
		ctx := context.WithValue(r.Context(), workspaceKey{}, ws)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *HTTPHandler) resolveWorkspace(r *http.Request) (*workspace.Workspace, error) {
	if c, err := r.Cookie(h.cookie.Name); err == nil && session.ValidID(c.Value) {
		ws, ok, err := h.workspaces.Resume(r.Context(), c.Value)
		if err != nil {
			return nil, err
		}
		if ok {
			return ws, nil
		}
		h.log.WithField("session_id", c.Value).Debug("ignoring unknown session id")
	}
	return h.workspaces.Open(r.Context(), session.NewID())
}

// workspaceFrom returns the workspace stored by WithWorkspace.
func workspaceFrom(r *http.Request) *workspace.Workspace {
	ws, _ := r.Context().Value(workspaceKey{}).(*workspace.Workspace)
	return ws
}

// RequireAuth rejects anonymous requests with 401 and the login redirect.
func (h *HTTPHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := workspaceFrom(r)
		if ws == nil || !ws.Session.Auth().IsAuthenticated {
			respondWithJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required", Redirect: h.loginPath})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits signed-in users holding one of roles. Anonymous
// requests get 401, signed-in users without the role get 403.
func (h *HTTPHandler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := workspaceFrom(r).Session.Auth()
			if !auth.User.HasRole(roles...) {
				respondWithError(w, http.StatusForbidden, "You do not have access to this page")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// --- Rate limiting ---

// RateLimitSettings bounds requests per client.
type RateLimitSettings struct {
	RequestsPerSecond int
	Burst             int
}

// RateLimiter keeps one token bucket per client key. Idle buckets expire.
type RateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
}

// NewRateLimiter creates a new rate limiter. A non-positive rate disables it.
func NewRateLimiter(s RateLimitSettings, log logrus.FieldLogger) *RateLimiter {
	burst := s.Burst
	if burst <= 0 {
		burst = s.RequestsPerSecond
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](50000, nil, 10*time.Minute),
		rate:     rate.Limit(s.RequestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

// Handler limits by client address. It runs before any workspace exists,
// so the key never depends on a value the client picks.
func (rl *RateLimiter) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.rate <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := clientKey(r)
			if !rl.limiter(key).Allow() {
				rl.log.WithFields(logrus.Fields{
					"key":    key,
					"path":   r.URL.Path,
					"method": r.Method,
				}).Warn("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				respondWithError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the remote host without its port, so new connections from
// the same client share a bucket.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
