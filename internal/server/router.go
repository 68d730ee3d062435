package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vkrlab/briefbot/internal/handlers"
	"github.com/vkrlab/briefbot/internal/middleware"
)

type RouterConfig struct {
	WebhookHandler  *handlers.WebhookHandler
	AdminHandler    *handlers.AdminHandler
	AdminMiddleware *middleware.AdminTokenMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5174"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Admin-Token"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.WebhookHandler != nil {
		router.POST("/telegram/webhook", cfg.WebhookHandler.Receive)
	}

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/admin")
	admin.Use(cfg.AdminMiddleware.RequireToken())
	admin.GET("/requests", cfg.AdminHandler.ListRequests)
	admin.POST("/requests/:id/resolve", cfg.AdminHandler.ResolveRequest)
	admin.GET("/progress", cfg.AdminHandler.Progress)
	admin.GET("/students", cfg.AdminHandler.ListStudents)
	admin.POST("/students/:id/reset", cfg.AdminHandler.ResetStudent)

	return router
}
