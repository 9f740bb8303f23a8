// Package api exposes the aggregation engine over HTTP for the rest of
// the platform.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alchemorsel/fooddata/internal/application/cart"
	"github.com/alchemorsel/fooddata/internal/application/fusion"
	"github.com/alchemorsel/fooddata/internal/application/jobs"
	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the engine's HTTP server.
type Server struct {
	config *config.Config
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(cfg *config.Config, logger *zap.Logger, engine *fusion.Engine, carts *cart.Service, worker *jobs.Worker) *Server {
	s := &Server{
		config: cfg,
		logger: logger.Named("http-server"),
		router: chi.NewRouter(),
	}

	h := newHandlers(engine, carts, worker, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(requestLogger(s.logger))

	s.router.Get("/health", h.Health)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/enhance", h.EnhanceProduct)
		r.Get("/nutrition", h.Nutrition)
		r.Get("/recipes/suggest", h.SuggestRecipes)

		r.Post("/carts", h.CreateCart)
		r.Get("/carts/{cartID}", h.GetCart)
		r.Post("/carts/{cartID}/items", h.AddCartItem)
		r.Delete("/carts/{cartID}/items/{itemID}", h.RemoveCartItem)

		r.Post("/extractions", h.SubmitExtraction)
		r.Get("/extractions/{jobID}", h.GetExtraction)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving. It blocks until the listener fails or closes.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with structured fields.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
