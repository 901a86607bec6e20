package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewRouter wires every route onto a gin engine with request logging and recovery
func NewRouter(api *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/kubernetes-clusters", api.GetKubernetesClusters)
	router.GET("/events", api.StreamClusters)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/clusters", api.GetClusters)
		apiGroup.GET("/clusters/:name", api.GetClusterDetails)
		apiGroup.GET("/clusters/:name/snapshot", api.GetClusterSnapshot)
		apiGroup.GET("/clusters/:name/nodes", api.GetClusterNodes)
		apiGroup.GET("/clusters/:name/pods", api.GetClusterPods)
		apiGroup.GET("/clusters/:name/history", api.GetClusterHistory)
		apiGroup.GET("/alerts", api.GetAlerts)
		apiGroup.POST("/alerts/:id/resolve", api.ResolveAlert)
	}

	return router
}

// RequestLogger logs one line per request through zerolog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
