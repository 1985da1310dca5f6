package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type TokenValidator func(token string, r *http.Request) bool

// MasterToken accepts exactly the configured token. An empty master token
// rejects every request.
func MasterToken(master string) TokenValidator {
	return func(token string, r *http.Request) bool {
		if master == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(token), []byte(master)) == 1
	}
}

func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
				token = strings.TrimSpace(auth[7:])
			} else {
				token = strings.TrimSpace(r.Header.Get("apikey"))
			}

			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if !validator(token, r) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
