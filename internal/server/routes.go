package server

import (
	v1 "github.com/sorenhq/llmgate/internal/server/v1"
	"github.com/sorenhq/llmgate/internal/server/validator"
)

func (s *Server) SetupRoutes() {
	healthHandler := v1.NewHealthHandler(s.service)
	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/v1")
	{
		chatHandler := v1.NewChatHandler(s.service, validator.New())
		// Anthropic dialect, the contract local CLI clients are pointed at.
		api.POST("/messages", chatHandler.Messages)
		// OpenAI dialect for everything else.
		api.POST("/chat/completions", chatHandler.Completions)

		modelHandler := v1.NewModelHandler(s.service)
		api.GET("/models", modelHandler.List)
	}
}
