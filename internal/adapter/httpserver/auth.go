package httpserver

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/kizilabs/chat-gateway/internal/config"
)

// BasicAuth guards administrative routes with HTTP basic auth. The configured
// password is a bcrypt hash, so a leaked environment dump does not leak the
// credential itself.
func BasicAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !credentialsValid(cfg, user, pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{Code: "UNAUTHORIZED", Message: "authentication required"}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func credentialsValid(cfg config.Config, user, pass string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(cfg.AdminUsername)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(pass)) == nil
}
