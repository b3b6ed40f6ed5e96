package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/deckforge/deckforge-backend/internal/handlers"
	"github.com/deckforge/deckforge-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName       string
	AllowedOrigins    []string
	Identity          *middleware.IdentityMiddleware
	GenerationHandler *handlers.GenerationHandler
	FactCheckHandler  *handlers.FactCheckHandler
	DeckHandler       *handlers.DeckHandler
	CardHandler       *handlers.CardHandler
	SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5174"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	api := router.Group("/api/v1")
	api.Use(cfg.Identity.RequireIdentity())
	{
		// Generation
		api.POST("/generate", cfg.GenerationHandler.Generate)
		api.POST("/generate/stream", cfg.GenerationHandler.StreamGeneration)
		api.GET("/generate/jobs", cfg.GenerationHandler.ListJobs)
		api.GET("/generate/jobs/:id", cfg.GenerationHandler.GetJob)
		api.GET("/generate/jobs/:id/status", cfg.GenerationHandler.GetJobStatus)
		api.POST("/generate/jobs/:id/cancel", cfg.GenerationHandler.CancelJob)

		// Fact checking
		api.POST("/factcheck", cfg.FactCheckHandler.Verify)

		// Decks
		api.POST("/decks", cfg.DeckHandler.Create)
		api.GET("/decks", cfg.DeckHandler.List)
		api.GET("/decks/:id", cfg.DeckHandler.Get)
		api.PATCH("/decks/:id", cfg.DeckHandler.Update)
		api.DELETE("/decks/:id", cfg.DeckHandler.Delete)
		api.POST("/decks/:id/restore", cfg.DeckHandler.Restore)
		api.POST("/decks/:id/move", cfg.DeckHandler.Move)
		api.GET("/decks/:id/ancestors", cfg.DeckHandler.Ancestors)

		// Cards
		api.POST("/decks/:id/cards", cfg.CardHandler.Create)
		api.POST("/decks/:id/cards/import", cfg.CardHandler.SaveGenerated)
		api.GET("/decks/:id/cards", cfg.CardHandler.ListByDeck)
		api.GET("/cards/:id", cfg.CardHandler.Get)
		api.PATCH("/cards/:id", cfg.CardHandler.Update)
		api.DELETE("/cards/:id", cfg.CardHandler.Delete)
		api.POST("/cards/:id/restore", cfg.CardHandler.Restore)

		// SSE
		api.GET("/sse/stream", cfg.SSEHandler.Stream)
	}

	return router
}
