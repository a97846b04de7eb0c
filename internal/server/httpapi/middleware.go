package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avorobjovs/keyguard/internal/logging"
	"github.com/avorobjovs/keyguard/internal/server/auth"
)

// sessionCookieName carries the session token for browser clients. API
// clients may send the same token as a bearer Authorization header instead.
const sessionCookieName = "keyguard_session"

// vaultSecretHeader carries the caller's plaintext login password on vault
// requests that need to derive the encryption key. The value is read once
// per request and is never logged or stored.
const vaultSecretHeader = "X-Vault-Secret"

type contextKey string

const userIDKey contextKey = "userID"

// userIDFromContext returns the authenticated user id set by authMiddleware.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// vaultSecret extracts the per-request vault password.
func vaultSecret(r *http.Request) string {
	return r.Header.Get(vaultSecretHeader)
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// requestIDMiddleware tags every request with an id for log correlation and
// echoes it back in the X-Request-Id header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with method, path, status and duration.
// Headers and bodies are deliberately excluded; vault secrets travel there.
func loggingMiddleware(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"request_id", w.Header().Get("X-Request-Id"),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// recoveryMiddleware turns handler panics into 500 responses.
func recoveryMiddleware(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error(r.Context(), "panic recovered", "panic", v, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware verifies the session token and stores the user id in the
// request context. The token is read from the session cookie or, failing
// that, a bearer Authorization header.
func authMiddleware(jwtSecret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
