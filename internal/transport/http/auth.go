package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cimillas/ticket-booking/internal/auth"
)

const tokenCookie = "token"

// TokenVerifier checks a bearer token and returns its principal.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// RequireAPIKey admits requests whose X-API-Key header matches key.
func RequireAPIKey(key string, next http.Handler) http.Handler {
	expected := []byte(key)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(expected) == 0 {
			loggerFromContext(r.Context()).Error("admin api key is not configured")
			writeError(w, http.StatusInternalServerError, codeInternalError, "server misconfiguration")
			return
		}

		got := r.Header.Get("X-API-Key")
		if got == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing api key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			loggerFromContext(r.Context()).Warn("invalid api key", zap.String("remote_ip", sourceIP(r)))
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireBearer admits requests carrying a valid token in the
// Authorization header or, failing that, the token cookie.
func RequireBearer(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := verifier.Verify(bearerToken(r))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, http.StatusUnauthorized, codeTokenExpired, "token expired")
			default:
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func principalFromRequest(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}
