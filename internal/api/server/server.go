package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
	"github.com/feral-file/ff-transfer-indexer/internal/api/rest"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         middleware.AuthConfig
}

// Server serves health, metrics and the authenticated ops routes
type Server struct {
	config     Config
	store      store.Store
	publisher  messaging.Publisher
	httpServer *http.Server
}

// New creates the ops server. Nothing listens until Start.
func New(cfg Config, store store.Store, publisher messaging.Publisher) *Server {
	s := &Server{
		config:    cfg,
		store:     store,
		publisher: publisher,
	}
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// Router builds the gin engine with every ops route
func (s *Server) Router() *gin.Engine {
	mode := gin.ReleaseMode
	if s.config.Debug {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.Logger("/healthz", "/metrics"),
	)
	rest.SetupRoutes(router, rest.NewHandler(s.store, s.publisher), s.config.Auth)

	return router
}

// Start binds the listener and serves until Shutdown. A bind failure is returned immediately.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("ops server listen on %s: %w", s.httpServer.Addr, err)
	}
	s.httpServer.Handler = s.Router()

	logger.Info("Ops server listening", zap.Stringer("address", listener.Addr()))

	err = s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("ops server: %w", err)
}

// Shutdown drains in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Stopping ops server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	return nil
}
