package middleware

import (
	"context"
	"net/http"
	"strings"

	"sessionlog-sync-server/pkg/jwt"
	"sessionlog-sync-server/pkg/response"
)

type contextKey string

const RemoteIDKey contextKey = "remoteID"

// AuthMiddleware verifies the peer token and stores the remote identity on
// the request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwt.ValidateToken(parts[1], jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), RemoteIDKey, claims.RemoteID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRemoteID(r *http.Request) string {
	remoteID, ok := r.Context().Value(RemoteIDKey).(string)
	if !ok {
		return ""
	}
	return remoteID
}
