package handlers

import (
	"encoding/csv"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// UploadReferenceTable handles POST /upload_table (multipart: webhook_id,
// table_name, description, file). Re-uploading the same logical name
// truncates and replaces the existing table.
func (s *Server) UploadReferenceTable(c *gin.Context) {
	webhookID := c.PostForm("webhook_id")
	tableName := c.PostForm("table_name")
	description := c.PostForm("description")
	if webhookID == "" || tableName == "" {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "webhook_id and table_name are required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "file is required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(apperrors.ErrCSVInvalid(err.Error()))
		return
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		_ = c.Error(apperrors.ErrCSVInvalid(err.Error()))
		return
	}
	if len(records) == 0 {
		_ = c.Error(apperrors.ErrCSVInvalid("file has no header row"))
		return
	}
	header, rows := records[0], records[1:]

	rt, err := s.ins.UploadReferenceTable(c.Request.Context(), webhookID, tableName, description, header, rows)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rt)
}

// ListReferenceTables handles GET /reference_tables.
func (s *Server) ListReferenceTables(c *gin.Context) {
	tables, err := s.cat.ListReferenceTables(c.Request.Context(), "")
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

// ListReferenceTablesForWebhook handles GET /reference_tables/{webhook_id}.
func (s *Server) ListReferenceTablesForWebhook(c *gin.Context) {
	tables, err := s.cat.ListReferenceTables(c.Request.Context(), c.Param("webhook_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

// DeleteReferenceTable handles DELETE /reference_table/{id}.
func (s *Server) DeleteReferenceTable(c *gin.Context) {
	if err := s.ins.DeleteReferenceTable(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
