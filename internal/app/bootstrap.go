// Package app is the composition root: it wires the engine, catalog,
// installer, dispatcher, audit log, ingress orchestrator, reconciler, and
// HTTP router into a single runnable Application.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"webhookgw.io/gateway/internal/api/handlers"
	"webhookgw.io/gateway/internal/audit"
	"webhookgw.io/gateway/internal/catalog"
	"webhookgw.io/gateway/internal/config"
	"webhookgw.io/gateway/internal/dispatcher"
	"webhookgw.io/gateway/internal/engine"
	"webhookgw.io/gateway/internal/ingress"
	"webhookgw.io/gateway/internal/installer"
	"webhookgw.io/gateway/internal/pkg/logger"
	"webhookgw.io/gateway/internal/pkg/worker"
	"webhookgw.io/gateway/internal/reconciler"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine

	Engine     *engine.Handle
	Pool       *worker.Pool
	Reconciler *reconciler.Reconciler
}

// Bootstrap initializes all dependencies using manual dependency injection.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	eng, err := engine.Open(ctx, cfg.Engine.Path)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}

	cat := catalog.New(eng)
	ins := installer.New(eng, cat)
	disp := dispatcher.New(cfg.Dispatch.Timeout, cfg.Dispatch.MaxResponseBodyBytes)
	auditLog := audit.New(eng)
	zlog := logger.L()
	orch := ingress.New(cat, eng, disp, auditLog, zlog)

	pool, err := worker.NewPool(ctx, worker.PoolConfig{Size: cfg.Worker.PoolSize})
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("init worker pool: %w", err)
	}

	recon := reconciler.New(eng, cat, ins, pool, cfg.Engine.ReconcileInterval, zlog)

	server := handlers.NewServer(handlers.ServerDeps{
		Catalog:      cat,
		Installer:    ins,
		Engine:       eng,
		Audit:        auditLog,
		Orchestrator: orch,
		Logger:       zlog,
	})

	return &Application{
		Config:     cfg,
		Router:     newRouter(cfg, server),
		Engine:     eng,
		Pool:       pool,
		Reconciler: recon,
	}, nil
}
