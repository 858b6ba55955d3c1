// Package auth provides the bearer-token middleware for the protected
// HTTP routes.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// UserKey is the request-context key under which the middleware stores the
// authenticated subject.
const UserKey contextKey = "user"

// Middleware returns a handler wrapper that rejects requests without a
// valid HMAC-signed bearer token.
func Middleware(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				log.Error("user unauthorized", slog.String("path", r.URL.Path))
				unauthorized(w)
				return
			}

			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == header {
				unauthorized(w)
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Error("user unauthorized", slog.String("path", r.URL.Path))
				unauthorized(w)
				return
			}

			subject := ""
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				subject, _ = claims["sub"].(string)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserKey, subject)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
}
