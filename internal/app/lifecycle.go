package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"webhookgw.io/gateway/internal/pkg/logger"
)

// Start starts all background services (currently just the reconciler).
func (a *Application) Start(ctx context.Context) error {
	if a.Reconciler != nil {
		if err := a.Reconciler.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
		logger.Info("reconciler started")
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	if a.Reconciler != nil {
		a.Reconciler.Shutdown()
	}
	if a.Pool != nil {
		a.Pool.Shutdown()
	}
	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil {
			logger.Warn("engine close returned error", zap.Error(err))
		}
	}
}
