// Package server exposes the sequence tagger over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/config"
	"github.com/dualtag/dualtag/internal/logger"
	"github.com/dualtag/dualtag/internal/model"
	"github.com/dualtag/dualtag/internal/store"
	"github.com/dualtag/dualtag/internal/websocket"
)

// Server represents the tagging API server
type Server struct {
	config       *config.Config
	logger       *logger.Logger
	tagger       *model.DualEncoder
	mentionStore *store.Store
	router       *mux.Router
	server       *http.Server
	wsHub        *websocket.Hub
	limiter      *ipRateLimiter
}

// New creates a new server instance. The mention store may be nil when
// similarity search is disabled.
func New(cfg *config.Config, log *logger.Logger, tagger *model.DualEncoder, mentionStore *store.Store) (*Server, error) {
	if tagger == nil {
		return nil, fmt.Errorf("server requires a tagger")
	}

	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastTagging:     true,
		BroadcastIngest:      true,
		BroadcastSystem:      true,
		BroadcastConnections: true,
	}, log.WithComponent("websocket").Logger)

	router := mux.NewRouter()

	server := &Server{
		config:       cfg,
		logger:       log.WithComponent("server"),
		tagger:       tagger,
		mentionStore: mentionStore,
		router:       router,
		wsHub:        wsHub,
		limiter:      newIPRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/tag", s.handleTag).Methods("POST")
	api.HandleFunc("/labels", s.handleLabels).Methods("GET")
	api.HandleFunc("/similar", s.handleSimilar).Methods("POST")
	api.HandleFunc("/ingest", s.handleIngest).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting tagging server",
		zap.Int("port", s.config.Server.Port),
		zap.String("tag_type", s.tagger.TagType()),
		zap.Int("tagset_size", s.tagger.TagsetSize()),
	)

	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping tagging server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket hands the connection to the hub
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
