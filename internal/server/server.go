// Package server exposes the order book and message intake over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/intake"
	"github.com/salaheddineelazouti/Projet-innovation/internal/notify"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

// Config holds HTTP-level settings.
type Config struct {
	AllowedOrigins []string
	// MaxBodyBytes caps JSON request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Server routes API requests to the store, the intake processor and the
// notifier. A nil notifier disables review notifications.
type Server struct {
	store    store.Store
	intake   *intake.Processor
	notifier *notify.Notifier
	cfg      Config
	router   chi.Router
}

// New builds the server and its routes.
func New(st store.Store, p *intake.Processor, n *notify.Notifier, cfg Config) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &Server{store: st, intake: p, notifier: n, cfg: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)

		r.Get("/orders", s.handleListOrders)
		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetOrder)
			r.Post("/validate", s.handleValidate)
			r.Post("/reject", s.handleReject)
			r.Post("/update", s.handleUpdate)
		})

		r.Get("/stats", s.handleStats)
		r.Get("/clients", s.handleListClients)
		r.Get("/clients/{id}/history", s.handleClientHistory)
	})

	r.Get("/export/xlsx", s.handleExportXLSX)
	r.Get("/export/csv", s.handleExportCSV)

	r.Post("/webhook/whatsapp", s.handleWhatsApp)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("server: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
