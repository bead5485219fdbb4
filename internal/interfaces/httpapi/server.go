package httpapi

import (
	"net/http"

	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
)

// NewRouter assembles the route table and middleware chain. The webhook
// endpoint is only registered in private mode; public deployments have no
// webhook contract with PlayHQ and the path simply does not exist.
func NewRouter(handler *Handler, logger *logging.Logger, corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /healthz/detailed", handler.HealthzDetailed)
	if handler.metrics != nil {
		mux.Handle("GET /metrics", handler.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/ask", handler.Ask)
	mux.HandleFunc("POST /internal/refresh", RequireBearer(handler.cfg.InternalToken, handler.Refresh))
	mux.HandleFunc("POST /sync", handler.Sync)

	if handler.cfg.Mode == config.ModePrivate {
		mux.HandleFunc("POST /webhooks/playhq", handler.Webhook)
	}

	return RequestTracing(RequestLogging(logger, CORS(corsOrigins, recoverPanic(logger, mux))))
}
