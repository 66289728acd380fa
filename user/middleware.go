package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"lovelink/ws"
)

type contextKey struct{}

// IDFromContext returns the authenticated user id set by RequireAuth.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok
}

// ContextWithID attaches an authenticated user id to a context.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Middleware authenticates HTTP requests. It accepts either an opaque
// session token or a signed JWT in the Authorization header.
type Middleware struct {
	sessions SessionStore
	secret   []byte
	logger   zerolog.Logger
}

func NewMiddleware(sessions SessionStore, secret []byte, logger zerolog.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		secret:   secret,
		logger:   logger.With().Str("component", "AuthMiddleware").Logger(),
	}
}

// RequireAuth rejects requests without a valid bearer credential and
// stashes the resolved user id in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerFromHeader(r)
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if userID, err := m.sessions.Get(r.Context(), token); err == nil {
			next(w, r.WithContext(ContextWithID(r.Context(), userID)))
			return
		}

		userID, err := ws.ParseUserID(token, m.secret)
		if err != nil {
			m.logger.Debug().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(ContextWithID(r.Context(), userID)))
	}
}

func bearerFromHeader(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
