package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielmoraes/lecto-backend/api/responses"
	pkgauth "github.com/danielmoraes/lecto-backend/pkg/auth"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
)

// SessionChecker verifies that a presented token is still the live
// session for its user.
type SessionChecker interface {
	Get(ctx context.Context, key string) (string, error)
	SessionKey(userID string) string
}

// OptionalAuth seeds the request context with the buyer identity when a
// bearer token is presented. Requests without credentials pass through
// as guests; a presented but invalid token is rejected.
func OptionalAuth(cfg config.JWTConfig, sessions SessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if sessions != nil {
				stored, err := sessions.Get(r.Context(), sessions.SessionKey(claims.UserID.String()))
				if err != nil || stored != token {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxUserEmail, claims.Email)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
