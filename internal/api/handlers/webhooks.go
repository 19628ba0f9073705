package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

type registerWebhookRequest struct {
	SourcePath     string  `json:"source_path" binding:"required"`
	DestinationURL string  `json:"destination_url" binding:"required"`
	Transform      string  `json:"transform" binding:"required"`
	Filter         *string `json:"filter"`
	Owner          string  `json:"owner"`
}

type updateWebhookRequest struct {
	DestinationURL string  `json:"destination_url" binding:"required"`
	Transform      string  `json:"transform" binding:"required"`
	Filter         *string `json:"filter"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// RegisterWebhook handles POST /register.
func (s *Server) RegisterWebhook(c *gin.Context) {
	var req registerWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", err.Error()))
		return
	}

	wh, err := s.cat.RegisterWebhook(c.Request.Context(), req.SourcePath, req.DestinationURL, req.Transform, req.Filter, req.Owner)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, wh)
}

// ListWebhooks handles GET /webhooks.
func (s *Server) ListWebhooks(c *gin.Context) {
	whs, err := s.cat.ListWebhooks(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, whs)
}

// GetWebhook handles GET /webhook/{id}.
func (s *Server) GetWebhook(c *gin.Context) {
	wh, err := s.cat.GetWebhook(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

// UpdateWebhook handles PUT /webhook/{id}.
func (s *Server) UpdateWebhook(c *gin.Context) {
	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", err.Error()))
		return
	}

	wh, err := s.cat.UpdateWebhook(c.Request.Context(), c.Param("id"), req.DestinationURL, req.Transform, req.Filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

// SetWebhookStatus handles PATCH /webhook/{id}/status.
func (s *Server) SetWebhookStatus(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", err.Error()))
		return
	}

	wh, err := s.cat.SetActive(c.Request.Context(), c.Param("id"), req.Active)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

// DeleteWebhook handles DELETE /webhook/{id}. Cascades to the webhook's
// reference tables and UDFs (installer drops engine objects before catalog
// rows; see internal/installer.DeleteWebhookCascade).
func (s *Server) DeleteWebhook(c *gin.Context) {
	if err := s.ins.DeleteWebhookCascade(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
