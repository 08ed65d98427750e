// Package api exposes the conversion pipeline over HTTP: document upload
// and listing, synchronous and asynchronous conversion, task and batch
// status, downloads, and health.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/docmd/convert"
	"github.com/hazyhaar/docmd/shield"
	"github.com/hazyhaar/docmd/taskstore"
)

// Converter is the pipeline surface the API needs, satisfied by
// *convert.Converter.
type Converter interface {
	ConvertDocument(ctx context.Context, filename string, opts convert.Options) *convert.Result
	ConvertBatch(ctx context.Context, filenames []string, opts convert.Options) *convert.BatchResult
	AvailableDocuments() ([]string, error)
	CheckDependencies(ctx context.Context) map[string]bool
}

// Config configures a Service.
type Config struct {
	Converter Converter
	Store     taskstore.Store
	// Dirs locates uploaded and produced files for upload/download/delete.
	Dirs convert.Dirs
	// AuthUser/AuthPasswordHash enable Basic Auth when both are set. The
	// hash is a bcrypt hash of the password.
	AuthUser         string
	AuthPasswordHash string
	// MaxUploadBytes bounds one multipart upload (default: 50 MiB).
	MaxUploadBytes int64
	// RateLimit is the per-IP request limit (default: 120/min). Health
	// endpoints are exempt.
	RateLimit shield.Limit
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 50 << 20
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 120
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Service is the HTTP layer over a Converter and a task store.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	cfg.defaults()
	return &Service{cfg: cfg, logger: cfg.Logger}
}

// Router builds the chi router with all routes mounted.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders())
	r.Use(shield.NewRateLimiter(s.cfg.RateLimit, "/health").Middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/health/simple", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if s.cfg.AuthUser != "" && s.cfg.AuthPasswordHash != "" {
			r.Use(s.basicAuth)
		}
		r.Get("/documents", s.handleListDocuments)
		r.Delete("/documents/{basename}", s.handleDeleteDocument)
		r.Post("/upload", s.handleUpload)
		r.Post("/convert", s.handleConvert)
		r.Post("/convert/batch", s.handleConvertBatch)
		r.Post("/convert/async", s.handleConvertAsync)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/{taskID}", s.handleGetTask)
		r.Get("/batches", s.handleListBatches)
		r.Get("/batches/{batchID}", s.handleGetBatch)
		r.Get("/download/{basename}/{filename}", s.handleDownload)
	})
	return r
}

// logRequests emits one structured line per request.
func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// basicAuth enforces Basic Auth against the configured bcrypt hash.
func (s *Service) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.AuthUser)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(s.cfg.AuthPasswordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="docmd"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
