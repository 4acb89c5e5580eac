// Package middleware holds HTTP middleware shared across handlers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

type contextKeyCallerID struct{}

// ContextKeyCallerID holds the authenticated caller's subject claim.
var ContextKeyCallerID = contextKeyCallerID{}

// GetCallerID retrieves the authenticated caller ID from the context.
func GetCallerID(ctx context.Context) string {
	callerID, ok := ctx.Value(ContextKeyCallerID).(string)
	if !ok {
		return ""
	}
	return callerID
}

// RequireAuth validates HS256 bearer tokens issued by the platform. An
// empty signing key disables authentication for local development.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if signingKey == "" {
			return next
		}
		key := []byte(signingKey)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := chimw.GetReqID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims := jwt.MapClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			subject, _ := claims.GetSubject()
			ctx = context.WithValue(ctx, ContextKeyCallerID, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
