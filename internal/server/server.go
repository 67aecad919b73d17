package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/auth/jwt"
	"github.com/102326/PyLab/internal/common/config"
	"github.com/102326/PyLab/internal/common/errorx"
	"github.com/102326/PyLab/internal/fanout"
	"github.com/102326/PyLab/internal/notify"
	"github.com/102326/PyLab/pkg/metrics"
)

type (
	// Server exposes the real-time endpoint and the publisher API
	Server struct {
		logger    *zap.Logger
		cfg       *config.NotifydConfig
		router    *gin.Engine
		httpSrv   *http.Server
		upgrader  websocket.Upgrader
		manager   *fanout.Manager
		publisher *notify.Publisher
		metrics   *metrics.Metrics
		errs      *errorx.ErrorHandler
		// jwt is nil when token checks are disabled
		jwt *jwt.Service
	}
)

// NewServer creates the HTTP server. m may be nil when metrics are disabled.
func NewServer(logger *zap.Logger, cfg *config.NotifydConfig, manager *fanout.Manager, publisher *notify.Publisher, m *metrics.Metrics) (*Server, error) {
	s := &Server{
		logger:    logger.Named("server"),
		cfg:       cfg,
		router:    gin.New(),
		manager:   manager,
		publisher: publisher,
		metrics:   m,
		errs:      errorx.NewErrorHandler(logger.Named("server")),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
			CheckOrigin:      checkOrigin(cfg.WebSocket.AllowedOrigins),
		},
	}

	if cfg.Auth.JWT.SecretKey != "" {
		svc, err := jwt.NewService(cfg.Auth.JWT)
		if err != nil {
			return nil, fmt.Errorf("failed to init jwt: %w", err)
		}
		s.jwt = svc
	}

	s.router.Use(s.loggerMiddleware())
	s.router.Use(s.recoveryMiddleware())
	if cfg.Tracing.Enabled {
		s.router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	if m != nil {
		s.router.Use(m.Middleware())
	}
	s.registerRoutes()

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router.GET("/ws/:user_id", s.handleWebSocket)

	api := s.router.Group("/api")
	api.POST("/notify/:user_id", s.handlePublish)
	api.GET("/sessions/:user_id", s.handleSession)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then releases every live session.
// Hijacked websocket connections are not tracked by http.Server, so the
// manager closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	httpErr := s.httpSrv.Shutdown(ctx)
	if httpErr != nil {
		httpErr = fmt.Errorf("failed to shutdown http server: %w", httpErr)
	}
	return errors.Join(httpErr, s.manager.Shutdown(ctx))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.manager.Count(),
	})
}
