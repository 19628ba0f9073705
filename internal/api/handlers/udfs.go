package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
	"webhookgw.io/gateway/internal/udf"
)

// RegisterUDF handles POST /register_udf (multipart: webhook_id,
// function_name, function_code, and optionally param_types, return_type).
// function_code is a Lua script; the installer compiles it once and
// registers a scalar function under the derived physical name. param_types
// is a comma-separated list of str|int|float|bool, one per declared Lua
// parameter; return_type is one of the same. Both default to text when
// omitted.
func (s *Server) RegisterUDF(c *gin.Context) {
	webhookID := c.PostForm("webhook_id")
	functionName := c.PostForm("function_name")
	functionCode := c.PostForm("function_code")
	if webhookID == "" || functionName == "" || functionCode == "" {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "webhook_id, function_name, and function_code are required"))
		return
	}

	var paramTypes []udf.ParamType
	if raw := c.PostForm("param_types"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			pt := udf.ParamType(strings.TrimSpace(p))
			if !isValidParamType(pt) {
				_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "param_types must be a comma-separated list of str, int, float, bool"))
				return
			}
			paramTypes = append(paramTypes, pt)
		}
	}

	returnType := udf.ParamType(c.PostForm("return_type"))
	if returnType != "" && !isValidParamType(returnType) {
		_ = c.Error(apperrors.BadRequest("INVALID_REQUEST", "return_type must be one of str, int, float, bool"))
		return
	}

	u, err := s.ins.RegisterUDF(c.Request.Context(), webhookID, functionName, functionCode, paramTypes, returnType)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func isValidParamType(pt udf.ParamType) bool {
	switch pt {
	case udf.TypeText, udf.TypeInt, udf.TypeFloat, udf.TypeBool:
		return true
	default:
		return false
	}
}

// ListUDFs handles GET /udfs.
func (s *Server) ListUDFs(c *gin.Context) {
	udfs, err := s.cat.ListUDFs(c.Request.Context(), "")
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, udfs)
}

// ListUDFsForWebhook handles GET /udfs/{webhook_id}.
func (s *Server) ListUDFsForWebhook(c *gin.Context) {
	udfs, err := s.cat.ListUDFs(c.Request.Context(), c.Param("webhook_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, udfs)
}

// DeleteUDF handles DELETE /udf/{id}.
func (s *Server) DeleteUDF(c *gin.Context) {
	if err := s.ins.DeleteUDF(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
