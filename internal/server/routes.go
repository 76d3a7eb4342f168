package server

import (
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server/middleware"
	v1 "github.com/mxl4r/Prism-LLM-frontend/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.router.Use(middleware.ErrorHandler(s.logger))

	s.router.GET("/health", s.health.Health)

	api := s.router.Group("/v1")
	{
		chatHandler := v1.NewChatHandler(s.service, s.validator, s.logger)
		api.POST("/chat/stream", chatHandler.Stream)

		modelHandler := v1.NewModelHandler(llm.ModelID(s.config.Router.DefaultModel))
		api.GET("/models", modelHandler.List)

		attachmentHandler := v1.NewAttachmentHandler(s.encoder)
		api.POST("/attachments", attachmentHandler.Upload)
	}
}
