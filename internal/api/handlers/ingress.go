package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// Ingress is the catch-all handler for dynamically registered webhook
// paths. It is mounted as the router's NoRoute handler since source paths
// are registered at runtime, not known at router-construction time (§6).
// A 404 covers both unregistered paths and any method other than POST; a
// 400 covers a non-JSON body; everything else is a 200 describing the
// filter/dispatch outcome, per §7's ingress propagation policy.
func (s *Server) Ingress(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "unknown path"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_BODY", "message": err.Error()})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_BODY", "message": "body must be a JSON object"})
		return
	}

	headersJSON, err := headersToJSON(c.Request.Header)
	if err != nil {
		headersJSON = "{}"
	}

	outcome, err := s.orch.Process(c.Request.Context(), c.Request.URL.Path, string(body), headersJSON)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.HTTPStatus == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"code": appErr.Code, "message": appErr.Message})
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// headersToJSON flattens an http.Header into a {name: value} JSON object
// for the raw_events audit row. The values of a repeated header are joined
// into one string with ", "; the audit column exists for replay, not for
// faithfully reconstructing wire-level repetition.
func headersToJSON(h http.Header) (string, error) {
	flat := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			flat[k] = strings.Join(v, ", ")
		}
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
