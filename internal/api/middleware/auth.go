package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/anivers/internal/api/render"
	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/token"
	"github.com/google/uuid"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
)

// AccessVerifier checks access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (token.Identity, error)
}

// Auth admits requests that carry a valid access token as a bearer
// credential. It never touches the store.
func Auth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logging.Ctx(r.Context()).Debug().Msg("missing or malformed authorization header")
				render.Error(w, r, domain.Unauthenticated())
				return
			}

			identity, err := verifier.VerifyAccess(raw)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("access token rejected")
				render.Error(w, r, domain.Unauthenticated())
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the identity of a valid bearer token when one is
// present and lets every request through.
func OptionalAuth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if identity, err := verifier.VerifyAccess(raw); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), IdentityKey, identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func GetIdentity(ctx context.Context) (token.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(token.Identity)
	return identity, ok
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentity(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}
