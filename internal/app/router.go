package app

import (
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"webhookgw.io/gateway/internal/api/handlers"
	"webhookgw.io/gateway/internal/api/middleware"
	"webhookgw.io/gateway/internal/config"
)

func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(buildCORSConfig(cfg)))

	router.GET("/healthz", server.Liveness)
	router.GET("/readyz", server.Readiness)

	// The admin surface lives at the literal paths spec.md names directly
	// off the root (no /admin prefix) — an empty-path group just gives this
	// block its own place to hang the X-API-Key middleware.
	admin := router.Group("")
	admin.Use(middleware.APIKeyAuth(middleware.APIKeyConfig{Key: cfg.Security.APIKey}))
	{
		admin.POST("/register", server.RegisterWebhook)
		admin.GET("/webhooks", server.ListWebhooks)
		admin.GET("/webhook/:id", server.GetWebhook)
		admin.PUT("/webhook/:id", server.UpdateWebhook)
		admin.PATCH("/webhook/:id/status", server.SetWebhookStatus)
		admin.DELETE("/webhook/:id", server.DeleteWebhook)

		admin.POST("/upload_table", server.UploadReferenceTable)
		admin.GET("/reference_tables", server.ListReferenceTables)
		admin.GET("/reference_tables/:webhook_id", server.ListReferenceTablesForWebhook)
		admin.DELETE("/reference_table/:id", server.DeleteReferenceTable)

		admin.POST("/register_udf", server.RegisterUDF)
		admin.GET("/udfs", server.ListUDFs)
		admin.GET("/udfs/:webhook_id", server.ListUDFsForWebhook)
		admin.DELETE("/udf/:id", server.DeleteUDF)

		admin.GET("/stats", server.Stats)
		admin.GET("/events", server.Events)
		admin.GET("/event/:id/transformed", server.EventTransformed)
		admin.POST("/query", server.Query)
	}

	// Webhook source paths are registered at runtime, so ingress dispatch
	// can't be a static route table; NoRoute is the catch-all for anything
	// not matched above.
	router.NoRoute(server.Ingress)
	return router
}

func buildCORSConfig(cfg *config.Config) cors.Config {
	allowAllOrigins := cfg.Server.UnsafeAllowAllOrigins
	allowedOrigins := sanitizeAllowedOrigins(cfg.Server.AllowedOrigins)

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if allowAllOrigins {
		corsCfg.AllowAllOrigins = true
		// gin-contrib/cors docs: AllowAllOrigins cannot be used with credentials.
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	corsCfg.AllowOrigins = allowedOrigins
	return corsCfg
}

func sanitizeAllowedOrigins(origins []string) []string {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		cleaned = append(cleaned, origin)
	}
	return slices.Compact(cleaned)
}
