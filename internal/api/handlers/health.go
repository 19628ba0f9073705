package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness handles GET /healthz: the process is up. No API key required.
func (s *Server) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz: the engine handle answers a trivial query.
// No API key required.
func (s *Server) Readiness(c *gin.Context) {
	if _, err := s.eng.Query(c.Request.Context(), "SELECT 1"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
