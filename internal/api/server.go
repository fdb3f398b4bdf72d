// Package api exposes contract intake over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/intake"
	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/monitoring"
	"github.com/ardjee/forms/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ContractService is the intake surface the API serves.
type ContractService interface {
	Submit(ctx context.Context, c model.Contract) (*model.Contract, error)
	Quote(c model.Contract) (float64, bool)
	Get(ctx context.Context, id string) (*model.Contract, error)
	List(ctx context.Context, filter store.ContractFilter) ([]model.Contract, error)
	ChangeFrequency(ctx context.Context, id string, freq model.Frequency) (*intake.Change, error)
	SetMonitoring(ctx context.Context, id string, on bool) (*intake.Change, error)
	ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Contract, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsSource produces intake health snapshots.
type MetricsSource interface {
	Collect(ctx context.Context, lookbackHours int) (*monitoring.MetricsSnapshot, error)
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	// Limiter throttles contract submissions. Nil disables throttling.
	Limiter *ClientLimiter
	// Metrics serves GET /api/metrics when set.
	Metrics MetricsSource
}

// NewRouter builds the HTTP handler.
func NewRouter(svc ContractService, health Pinger, opts Options) http.Handler {
	h := &handler{svc: svc, pinger: health, metrics: opts.Metrics}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/quote", h.quote)
		if opts.Metrics != nil {
			r.Get("/metrics", h.metricsSnapshot)
		}
		r.Route("/contracts", func(r chi.Router) {
			r.With(limit(opts.Limiter)).Post("/", h.submit)
			r.Get("/", h.list)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.get)
				r.Patch("/frequency", h.changeFrequency)
				r.Patch("/monitoring", h.setMonitoring)
				r.Patch("/status", h.changeStatus)
			})
		})
	})

	return r
}

func limit(l *ClientLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware
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
