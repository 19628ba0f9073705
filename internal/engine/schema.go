package engine

import (
	"context"
	"fmt"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// bootstrapSchema creates the five core tables if absent. Idempotent.
func (h *Handle) bootstrapSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS webhooks (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL UNIQUE,
			destination_url TEXT NOT NULL,
			transform TEXT NOT NULL,
			filter TEXT,
			owner TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reference_tables (
			id TEXT PRIMARY KEY,
			webhook_id TEXT NOT NULL,
			logical_name TEXT NOT NULL,
			description TEXT,
			physical_name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(webhook_id, logical_name)
		)`,
		`CREATE TABLE IF NOT EXISTS udfs (
			id TEXT PRIMARY KEY,
			webhook_id TEXT NOT NULL,
			logical_name TEXT NOT NULL,
			source_text TEXT NOT NULL,
			physical_name TEXT NOT NULL,
			param_types TEXT NOT NULL DEFAULT '',
			return_type TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE(webhook_id, logical_name)
		)`,
		`CREATE TABLE IF NOT EXISTS raw_events (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			payload TEXT NOT NULL,
			headers TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transformed_events (
			id TEXT PRIMARY KEY,
			raw_event_id TEXT NOT NULL,
			webhook_id TEXT NOT NULL,
			destination_url TEXT NOT NULL,
			success INTEGER NOT NULL,
			response_code INTEGER NOT NULL,
			response_body TEXT,
			transformed_payload TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reference_tables_webhook_id ON reference_tables(webhook_id)`,
		`CREATE INDEX IF NOT EXISTS idx_udfs_webhook_id ON udfs(webhook_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transformed_events_webhook_id ON transformed_events(webhook_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transformed_events_raw_event_id ON transformed_events(raw_event_id)`,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stmt := range statements {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.ErrEngine(fmt.Errorf("bootstrap schema: %w", err))
		}
	}
	return nil
}
