// Package api assembles the optional HTTP introspection surface over the
// engine: starting tasks and workflows, reading execution state, sending
// signals, and operator-facing worker/recovery endpoints. Workers never
// call this API among themselves — it exists purely for client
// introspection (engine specification §6's programmatic surface, exposed
// over HTTP instead of in-process calls), mirroring the teacher's
// chi-based server shape.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/durablex/durablex/internal/api/handlers"
	apiMiddleware "github.com/durablex/durablex/internal/api/middleware"
	"github.com/durablex/durablex/internal/api/websocket"
	"github.com/durablex/durablex/internal/config"
	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/events"
)

// Server is the introspection HTTP server: execution and admin handlers,
// the WebSocket event hub, and the shared middleware stack.
type Server struct {
	router           *chi.Mux
	config           *config.Config
	executionHandler *handlers.ExecutionHandler
	adminHandler     *handlers.AdminHandler
	wsHub            *websocket.Hub
	wsHandler        *websocket.Handler
	publisher        events.Publisher
}

// NewServer constructs the HTTP server. disp backs every handler; events
// fan out to WebSocket clients from publisher.
func NewServer(cfg *config.Config, disp *dispatcher.Dispatcher, publisher events.Publisher) *Server {
	wsHub := websocket.NewHub(publisher)

	s := &Server{
		router:           chi.NewRouter(),
		config:           cfg,
		executionHandler: handlers.NewExecutionHandler(disp),
		adminHandler:     handlers.NewAdminHandler(disp, cfg.Worker.HeartbeatTimeout),
		wsHub:            wsHub,
		wsHandler:        websocket.NewHandler(wsHub),
		publisher:        publisher,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(apiMiddleware.ClientRateLimit(50))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.adminHandler.Health)

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}

	s.router.Get("/ws", s.wsHandler.ServeWS)

	s.router.Route("/v1", func(r chi.Router) {
		authCfg := &apiMiddleware.AuthConfig{
			Enabled: s.config.API.Enabled && len(s.config.API.AuthKeys) > 0,
			APIKeys: apiKeySet(s.config.API.AuthKeys),
		}
		r.Use(apiMiddleware.Auth(authCfg))

		r.Post("/tasks", s.executionHandler.QueueTask)
		r.Post("/workflows", s.executionHandler.StartWorkflow)
		r.Post("/workflows/{workflowID}/signals/{signalName}", s.executionHandler.SendSignal)

		r.Get("/executions", s.executionHandler.List)
		r.Get("/executions/{executionID}", s.executionHandler.Get)
		r.Delete("/executions/{executionID}", s.executionHandler.Cancel)

		r.Route("/admin", func(ar chi.Router) {
			ar.Get("/workers", s.adminHandler.ListWorkers)
			ar.Get("/workers/{workerID}", s.adminHandler.GetWorker)
			ar.Post("/recover", s.adminHandler.RecoverDead)
			ar.Get("/health", s.adminHandler.Health)
		})
	})
}

func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start runs the WebSocket hub's background loop.
func (s *Server) Start(ctx context.Context) {
	s.wsHub.Run(ctx)
}

// Stop shuts the WebSocket hub down.
func (s *Server) Stop() {
	s.wsHub.Stop()
}
