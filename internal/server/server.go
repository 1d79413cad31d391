// Package server assembles the gin front-end the gateway serves locally.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sorenhq/llmgate/internal/config"
	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/gateway"
	"github.com/sorenhq/llmgate/internal/server/middleware"
)

const serviceName = "llmgate"

type Server struct {
	router   *gin.Engine
	logger   *zap.Logger
	service  gateway.Service
	settings domain.GatewaySettings
}

// New wires the engine for one gateway run.
func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, settings domain.GatewaySettings) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.CORS())
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(serviceName))
	}
	engine.Use(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger).Middleware())
	engine.Use(middleware.MaxInFlight(cfg.RateLimit.MaxInFlight))

	s := &Server{
		router:   engine,
		logger:   logger,
		service:  service,
		settings: settings,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
