package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/myquran/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// Auth requires a valid bearer token and stores its user ID in the context.
// Every sync route is user-scoped, so anonymous requests are rejected.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="myquran"`)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			userID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="myquran", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			recordUser(w, userID)
			ctx := ctxutil.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// recordUser hands the authenticated user to an enclosing Logger.
func recordUser(w http.ResponseWriter, userID uuid.UUID) {
	for w != nil {
		if sw, ok := w.(*statusWriter); ok {
			sw.userID = userID
			return
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return
		}
		w = u.Unwrap()
	}
}
