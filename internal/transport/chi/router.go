package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/metrics"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	APIKeys     []string
	CORSOrigins []string
	// MCPPath mounts MCPHandler when both are set.
	MCPPath    string
	MCPHandler http.Handler
	Logger     *zap.Logger
}

// NewRouter wires middleware and routes around s.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Range", "Mcp-Session-Id"},
			ExposedHeaders: []string{"X-Request-ID", "X-Embedding-Tokens", "Content-Range", "Mcp-Session-Id"},
			MaxAge:         300,
		}))
	}
	r.Use(RequireAPIKey(cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/", s.Welcome)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/search/stream", s.SearchStream)
		r.Get("/clips/{clipID}", s.GetClip)
		r.Get("/video", s.Video)
		r.Head("/video", s.Video)
	})

	if cfg.MCPPath != "" && cfg.MCPHandler != nil {
		r.Handle(cfg.MCPPath, cfg.MCPHandler)
	}
	return r
}
