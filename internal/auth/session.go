package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"quizwale-service/internal/domain"
)

// DefaultCookieName is the session cookie carrying the signed token.
const DefaultCookieName = "auth-token"

type contextKey struct{}

// Sessions resolves identities from requests and writes session cookies.
type Sessions struct {
	manager    *Manager
	cookieName string
	secure     bool
}

func NewSessions(manager *Manager, cookieName string, secure bool) *Sessions {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Sessions{manager: manager, cookieName: cookieName, secure: secure}
}

// Middleware attaches the caller identity to the request context when a valid
// token is present. Requests without one pass through anonymously.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.Lookup(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Lookup reads the token from the cookie or a Bearer header.
func (s *Sessions) Lookup(r *http.Request) (domain.Identity, bool) {
	raw := ""
	if c, err := r.Cookie(s.cookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if raw == "" {
		return domain.Identity{}, false
	}
	id, err := s.manager.Verify(raw)
	if err != nil {
		return domain.Identity{}, false
	}
	return id, true
}

// SetCookie stores token as an HTTP-only session cookie.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.manager.TTL() / time.Second),
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *domain.Identity {
	id, ok := ctx.Value(contextKey{}).(domain.Identity)
	if !ok {
		return nil
	}
	return &id
}
