package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webhookgw.io/gateway/internal/engine"
	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// Query handles POST /query (form-encoded "query"): an ad-hoc SQL console
// sharing the engine mutex like any other operation. Errors are surfaced
// verbatim to the operator per EngineError's contract.
func (s *Server) Query(c *gin.Context) {
	query := c.PostForm("query")
	if query == "" {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "query is required"))
		return
	}

	res, err := s.eng.Query(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	rows := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		jsonRow := engine.RowToJSON(row)
		r := make([]any, len(res.Columns))
		for j, col := range res.Columns {
			r[j] = jsonRow[col]
		}
		rows[i] = r
	}

	c.JSON(http.StatusOK, gin.H{"columns": res.Columns, "rows": rows})
}
