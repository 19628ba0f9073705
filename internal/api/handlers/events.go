package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// Stats handles GET /stats: a per-webhook dispatch success-rate rollup.
func (s *Server) Stats(c *gin.Context) {
	rollup, err := s.log.SuccessRateRollup(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rollup)
}

// Events handles GET /events?limit=N: the most recent raw ingress events.
func (s *Server) Events(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	events, err := s.log.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// EventTransformed handles GET /event/{id}/transformed: the dispatch
// outcome recorded for a given raw event, or NotFound if the event was
// filtered out (no dispatch was ever attempted).
func (s *Server) EventTransformed(c *gin.Context) {
	ev, err := s.log.TransformedEventByRawEventID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ev)
}
