package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

// parseDeviceKeys reads DEVICE_API_KEYS (comma-separated) into a list.
// Kiosks and punch terminals authenticate with one of these keys.
func parseDeviceKeys() []string {
	var keys []string
	if env := os.Getenv("DEVICE_API_KEYS"); env != "" {
		for _, k := range strings.Split(env, ",") {
			k = strings.TrimSpace(k)
			if k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// RequireDeviceKey returns middleware that checks the X-Device-Key header
// against the configured key list. With no keys configured the check is
// disabled, which keeps local development friction-free.
func RequireDeviceKey() func(http.Handler) http.Handler {
	keys := parseDeviceKeys()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("X-Device-Key")
			for _, k := range keys {
				if subtle.ConstantTimeCompare([]byte(got), []byte(k)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		})
	}
}
