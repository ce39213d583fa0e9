package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoopersona/internal/api/handlers"
	"github.com/yoockh/yoopersona/internal/api/middleware"
)

type Deps struct {
	Interaction *handlers.InteractionHandler
	Persona     *handlers.PersonaHandler
	Voice       *handlers.VoiceHandler
	Provider    *handlers.ProviderHandler
	WS          *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/interactions", d.Interaction.Create)
	auth.GET("/interactions", d.Interaction.List)
	auth.GET("/interactions/:id", d.Interaction.Get)
	auth.GET("/interactions/:id/events", d.Interaction.Events)

	auth.GET("/persona/me", d.Persona.Me)
	auth.PUT("/persona/update", d.Persona.Update)
	auth.POST("/persona/stories", d.Persona.AddStory)
	auth.GET("/persona/stories", d.Persona.ListStories)

	auth.POST("/voice/preview", d.Voice.Preview)

	// WebSocket status stream
	auth.GET("/ws/interactions/:id", d.WS.InteractionWS)

	// Operator surface
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/providers", d.Provider.List)
	admin.PUT("/providers/:category", d.Provider.Update)
}
