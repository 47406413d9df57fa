package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/farhan/webins/internal/config"
	"github.com/farhan/webins/internal/endpoints"
	"github.com/farhan/webins/internal/storage"
)

type Server struct {
	cfg      config.ServerConfig
	registry *endpoints.Registry
	store    storage.Storage
	maxBody  int64
	router   *chi.Mux
	log      zerolog.Logger
	http     *http.Server
}

func NewServer(cfg config.Config, registry *endpoints.Registry, store storage.Storage, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg.Server,
		registry: registry,
		store:    store,
		maxBody:  cfg.Endpoints.MaxBodyBytes,
		log:      log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	epHandler := NewEndpointHandler(s.registry, s.store)
	capHandler := NewCaptureHandler(s.registry, s.store, s.maxBody, s.log)
	svcHandler := NewServiceHandler(s.store)

	r.Get("/", svcHandler.Landing)
	r.Get("/health", svcHandler.Health)
	r.Get("/stats", svcHandler.Stats)

	r.Get("/create-endpoint", epHandler.Create)
	r.Get("/list-endpoints", epHandler.List)
	r.Get("/endpoint-details/{token}", epHandler.Details)

	// Capture accepts any method: the whole point is recording whatever the
	// caller sends.
	r.HandleFunc("/test-webhook/{token}", capHandler.Capture)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
