package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hkarimi/telegpt/internal/bot"
	"github.com/hkarimi/telegpt/internal/httpapi/handlers"
)

func NewRouter(h *bot.Handler, webhookSecret string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	r.GET("/healthz", handlers.Health)

	wh := handlers.NewWebhook(h, webhookSecret)
	r.POST("/webhook", wh.Handle)

	return r
}
