package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/content"
	"github.com/JakeFAU/linkstash/internal/id/uuid"
	"github.com/JakeFAU/linkstash/internal/ingest"
	"github.com/JakeFAU/linkstash/internal/lifecycle"
	"github.com/JakeFAU/linkstash/internal/listing"
	"github.com/JakeFAU/linkstash/internal/metrics"
	"github.com/JakeFAU/linkstash/internal/policy/ratelimit"
)

const (
	defaultRequestTimeout = 30 * time.Second
	readinessTimeout      = 2 * time.Second
	maxBodyBytes          = 1 << 20
)

// Server wires HTTP handlers to the ingestion and listing engines.
type Server struct {
	router      chi.Router
	store       content.Store
	ingest      *ingest.Engine
	listing     *listing.Engine
	coordinator *lifecycle.Coordinator
	ids         *uuid.Generator
	limiter     *ratelimit.Limiter
	logger      *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithRateLimiter throttles content submissions per client.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// NewServer constructs a Server with middleware and routes. A zero
// requestTimeout selects the default.
func NewServer(
	store content.Store,
	ingestEngine *ingest.Engine,
	listingEngine *listing.Engine,
	coordinator *lifecycle.Coordinator,
	requestTimeout time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if coordinator == nil {
		coordinator = lifecycle.New()
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	metrics.Init()
	s := &Server{
		store:       store,
		ingest:      ingestEngine,
		listing:     listingEngine,
		coordinator: coordinator,
		ids:         uuid.New(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.Config{})
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/health", s.health)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(coordinator.Middleware)
		r.Route("/content", func(r chi.Router) {
			r.With(s.limiter.Middleware).Post("/", s.createContent)
			r.Get("/", s.listContent)
			r.Get("/{id}", s.getContent)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Coordinator exposes the lifecycle gate so the process can trigger draining.
func (s *Server) Coordinator() *lifecycle.Coordinator {
	return s.coordinator
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.coordinator.ShuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": s.coordinator.State().String()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by the request ID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := s.ids.Reuse(r.Header.Get("X-Request-ID"))
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic recovered",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
