package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(wallet *service.WalletService) *gin.Engine {
	router := gin.Default()

	handlers := NewWalletHandlers(wallet)

	v1 := router.Group("/v1")
	{
		// Verification is driven by downstream feature-unlock logic and
		// carries no signing authority, so it needs no identity token.
		v1.POST("/verify", handlers.Verify)
		v1.GET("/address", handlers.Address)
	}

	signing := v1.Group("")
	signing.Use(IdentityTokenMiddleware())
	{
		signing.POST("/sign-message", handlers.SignMessage)
		signing.POST("/pay", handlers.Pay)
	}

	return router
}
