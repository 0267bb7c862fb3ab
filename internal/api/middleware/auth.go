package middleware

import (
	"context"
	"net/http"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const SessionCtxKey contextKey = "session"

// SessionResolver resolves a bearer token to a live session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.Session, error)
}

// Authenticator requires a well-formed signed token bound to a live session
// and stores the session in the request context. jwtauth.Verifier must be
// installed upstream; it parses the Authorization header and leaves the
// verification result in the context.
func Authenticator(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithError(w, common.E(common.ErrUnauthorized, "unauthorized", "Authorization token required"))
				return
			}

			// The signature checks out; the session registry decides whether
			// the token is still live.
			session, err := resolver.ResolveSession(r.Context(), jwtauth.TokenFromHeader(r))
			if err != nil {
				common.RespondWithError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), SessionCtxKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext returns the authenticated session, if any.
func GetSessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(SessionCtxKey).(*model.Session)
	return session, ok
}

// CallerFromContext returns the authenticated identity, or nil for anonymous
// requests.
func CallerFromContext(ctx context.Context) *model.SessionUser {
	session, ok := GetSessionFromContext(ctx)
	if !ok {
		return nil
	}
	return &session.User
}
