package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// HealthChecker reports whether the store can serve requests.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HandleHealth reports liveness, and store reachability when a checker
// is given.
func HandleHealth(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				loggerFromContext(r.Context()).Warn("health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("store unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
