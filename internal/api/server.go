// Package api serves the dashboard and curation operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
	"github.com/sells-group/disclosure-dashboard/internal/model"
	"github.com/sells-group/disclosure-dashboard/internal/store"
)

// Reader is the read side of the store used by the public endpoints.
type Reader interface {
	ListRecords(ctx context.Context, opts store.ListOptions) ([]model.EmissionRecord, error)
	GetRecord(ctx context.Context, id int64) (*model.EmissionRecord, error)
	Ping(ctx context.Context) error
}

// Curator runs the write operations.
type Curator interface {
	Authorize(secretKey string) error
	Rerun(ctx context.Context, req curation.RerunRequest) (*curation.Result, error)
	RerunDataPoint(ctx context.Context, req curation.RerunDataPointRequest) (*curation.Result, error)
	AddCompany(ctx context.Context, req curation.AddCompanyRequest) (*curation.AddCompanyResult, error)
	SubmitFeedback(ctx context.Context, req curation.FeedbackRequest) (string, error)
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// HealthTimeout bounds the store ping on /health. Defaults to 2s.
	HealthTimeout time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	reader        Reader
	curator       Curator
	healthTimeout time.Duration
}

// NewRouter builds the HTTP handler.
func NewRouter(reader Reader, curator Curator, opts Options) http.Handler {
	s := &Server{
		reader:        reader,
		curator:       curator,
		healthTimeout: opts.HealthTimeout,
	}
	if s.healthTimeout <= 0 {
		s.healthTimeout = 2 * time.Second
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/export.xlsx", s.handleExport)
		r.Get("/records/{id}", s.handleGetRecord)

		r.Post("/add-company", s.handleAddCompany)
		r.Post("/rerun-with-links", s.handleRerunWithLinks)
		r.Post("/rerun", s.handleRerunDataPoint)
		r.Post("/submit-feedback", s.handleSubmitFeedback)
	})

	return r
}

// accessLog logs one line per request with the chi request id.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
