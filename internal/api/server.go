// Package api serves the public HTTP surface: scan creation, run polling,
// rescans and public reports.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

// AccountHeader carries the authenticated account ID, set by the
// authentication proxy in front of the API.
const AccountHeader = "X-Account-ID"

const (
	maxBodyBytes   = 64 << 10
	requestTimeout = 30 * time.Second
)

// Gateway is the dispatch surface the API needs.
type Gateway interface {
	CreateFirstTouchRun(ctx context.Context, domain, email string) (*model.Run, error)
	TriggerManual(ctx context.Context, accountID, subscriptionID string) (*model.Run, error)
	CooldownState(ctx context.Context, subscriptionID string) (*model.CooldownState, error)
	GetRunStatus(ctx context.Context, runID string) (*model.RunStatusView, error)
}

// Server holds the API handlers and their dependencies.
type Server struct {
	gateway  Gateway
	store    store.Store
	gatherer prometheus.Gatherer
	cfg      config.ServerConfig
}

// NewServer creates a Server. gatherer may be nil to use the default
// Prometheus registry.
func NewServer(gw Gateway, st store.Store, gatherer prometheus.Gatherer, cfg config.ServerConfig) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{gateway: gw, store: st, gatherer: gatherer, cfg: cfg}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", AccountHeader},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/scans", s.handleCreateScan)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/subscriptions/{id}/cooldown", s.handleCooldown)
		r.Post("/subscriptions/{id}/rescan", s.handleRescan)
		r.Get("/reports/{token}", s.handleGetReport)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
