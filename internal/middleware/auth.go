package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenMiddleware wymaga tokenu dashboardu (nagłówek Authorization: Bearer,
// parametr ?token= albo cookie 'token'). Pusty token wyłącza sprawdzanie.
func TokenMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenMatches(token, requestToken(r)) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Przeglądarka nie ustawi nagłówka dla websocketu
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

func tokenMatches(expected, got string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
