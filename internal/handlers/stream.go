package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
)

const clusterUpdateEvent = "clusterupdate"

// StreamClusters pushes the snapshot of every enabled cluster as Server-Sent Events,
// once on connect and then on every stream interval, until the client goes away
func (h *APIHandler) StreamClusters(c *gin.Context) {
	ctx := c.Request.Context()
	ticker := h.clock.NewTicker(h.streamInterval)
	defer ticker.Stop()

	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C():
			}
		}
		first = false

		for _, snapshot := range h.snapshots(ctx) {
			c.SSEvent(clusterUpdateEvent, snapshot)
		}
		return true
	})
}
