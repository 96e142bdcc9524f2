package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EventService is what the events routes need from the admin service.
type EventService interface {
	EventCreator
	EventLister
}

type RouterConfig struct {
	// ServeAdmin registers POST /events behind the API key.
	ServeAdmin bool
	// ServeClient registers the purchase route behind bearer auth.
	ServeClient bool

	Events    EventService
	Inventory Purchaser

	AdminAPIKey string
	Verifier    TokenVerifier

	Health         HealthChecker
	Metrics        HTTPObserver
	MetricsHandler http.Handler

	Logger         *zap.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter wires the routes a process serves and wraps them in the
// middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", HandleHealth(cfg.Health))
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	mux.Handle("GET /events", HandleListEvents(cfg.Events))
	if cfg.ServeAdmin {
		mux.Handle("POST /events", RequireAPIKey(cfg.AdminAPIKey, HandleCreateEvent(cfg.Events)))
	}
	if cfg.ServeClient {
		mux.Handle("POST /events/{id}/purchase", RequireBearer(cfg.Verifier, HandlePurchase(cfg.Inventory)))
	}
	mux.Handle("/", handleNotFound())

	var handler http.Handler = Instrument(cfg.Metrics, mux)
	handler = Timeout(cfg.RequestTimeout, handler)
	handler = CORS(cfg.CORSOrigins, handler)
	handler = Recover(handler)
	return RequestLogger(handler, cfg.Logger)
}

// handleNotFound answers every path no route claims with a JSON 404, so
// clients never see the mux's plain-text default.
func handleNotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggerFromContext(r.Context()).Debug("no route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}
