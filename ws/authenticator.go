package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Identity is the result of authenticating a connection attempt.
type Identity struct {
	UserID    string
	FirstName string
	Anonymous bool
}

// Anonymous is the identity attached to connections that present no
// usable credential.
var Anonymous = Identity{Anonymous: true}

// SessionVerifier resolves an opaque session token to a user id.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (string, error)
}

// UserResolver turns a user id into a connection identity.
type UserResolver interface {
	ResolveUser(ctx context.Context, userID string) (Identity, error)
}

// Authenticator validates bearer credentials for incoming socket
// connections. It tries the opaque session token first, then the signed
// JWT. Every failure degrades to Anonymous; it never returns an error.
type Authenticator struct {
	sessions SessionVerifier
	users    UserResolver
	secret   []byte
	logger   zerolog.Logger
}

func NewAuthenticator(sessions SessionVerifier, users UserResolver, secret []byte, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		users:    users,
		secret:   secret,
		logger:   logger.With().Str("component", "Authenticator").Logger(),
	}
}

// Authenticate resolves the request's credential to an identity. The
// Authorization header takes precedence over the token query parameter.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) Identity {
	token := BearerToken(r)
	if token == "" {
		return Anonymous
	}

	if userID, err := a.sessions.VerifySession(ctx, token); err == nil {
		return a.resolve(ctx, userID)
	}

	userID, err := ParseUserID(token, a.secret)
	if err != nil {
		a.logger.Debug().Err(err).Msg("Token validation failed")
		return Anonymous
	}
	return a.resolve(ctx, userID)
}

func (a *Authenticator) resolve(ctx context.Context, userID string) Identity {
	identity, err := a.users.ResolveUser(ctx, userID)
	if err != nil {
		a.logger.Debug().Err(err).Str("user", userID).Msg("User lookup failed")
		return Anonymous
	}
	return identity
}

// BearerToken extracts the raw credential from the Authorization header
// or, failing that, the token query parameter.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}

// ParseUserID verifies an HS256 token and extracts its user_id claim.
func ParseUserID(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", jwt.ErrTokenRequiredClaimMissing
	}
	return userID, nil
}
