package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"trialgate/pkg/requestcontext"
)

// Context key for storing admin actor identifier.
type contextKeyAdminActorID struct{}

// GetAdminActorID retrieves the admin actor identifier (the JWT subject) from
// the context. Returns empty string if this is not an admin request.
func GetAdminActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(contextKeyAdminActorID{}).(string); ok {
		return actorID
	}
	return ""
}

// RequireAdminJWT guards administrative routes with an HS256 bearer token.
// An empty signing secret disables the routes entirely rather than leaving
// them open.
func RequireAdminJWT(signingSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(signingSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if signingSecret == "" {
				logger.WarnContext(ctx, "admin endpoint called but no admin secret configured",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				writeUnauthorized(w)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(ctx, "admin token rejected",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			// Capture the admin actor for audit attribution.
			if claims.Subject != "" {
				ctx = context.WithValue(ctx, contextKeyAdminActorID{}, claims.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
}
