package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// SetupRouter sets up the Gin router
func SetupRouter(handlers *APIHandlers, tokenizer ports.Tokenizer, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	api := router.Group("/api")
	{
		api.GET("/login/whitelist/:address", handlers.Whitelist)
		api.POST("/login/challenge", handlers.Challenge)
		api.POST("/login", handlers.Login)
		api.GET("/keys/verify", handlers.VerifyKey)
	}

	// Protected API routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(tokenizer))
	{
		protected.POST("/keys", handlers.CreateKey)
		protected.GET("/apps/:app_id/deployments", handlers.Deployments)
	}

	return router
}
