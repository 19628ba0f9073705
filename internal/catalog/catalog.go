package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"webhookgw.io/gateway/internal/engine"
	"webhookgw.io/gateway/internal/evaluator"
	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// Catalog is the metadata store, backed by the shared engine handle.
type Catalog struct {
	eng *engine.Handle
}

// New wraps an engine handle as a Catalog.
func New(eng *engine.Handle) *Catalog {
	return &Catalog{eng: eng}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// RegisterWebhook validates and persists a new webhook. Fails Conflict if
// source_path is already registered, Invalid if the transform omits
// {{payload}} or either SQL fragment fails dry validation.
func (c *Catalog) RegisterWebhook(ctx context.Context, sourcePath, destinationURL, transform string, filter *string, owner string) (*Webhook, error) {
	if sourcePath == "" {
		return nil, apperrors.ErrInvalidSourcePath("must not be empty")
	}

	existing, err := c.GetWebhookByPath(ctx, sourcePath)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrPathConflict(sourcePath)
	}

	if err := evaluator.DryValidate(ctx, c.eng, transform, filter); err != nil {
		return nil, err
	}

	wh := &Webhook{
		ID:             uuid.New().String(),
		SourcePath:     sourcePath,
		DestinationURL: destinationURL,
		Transform:      transform,
		Filter:         filter,
		Owner:          owner,
		Active:         true,
		CreatedAt:      now(),
	}

	_, err = c.eng.Exec(ctx,
		`INSERT INTO webhooks (id, source_path, destination_url, transform, filter, owner, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		wh.ID, wh.SourcePath, wh.DestinationURL, wh.Transform, wh.Filter, wh.Owner, wh.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return wh, nil
}

// ListWebhooks returns every registered webhook.
func (c *Catalog) ListWebhooks(ctx context.Context) ([]*Webhook, error) {
	res, err := c.eng.Query(ctx, `SELECT id, source_path, destination_url, transform, filter, owner, active, created_at FROM webhooks ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return rowsToWebhooks(res), nil
}

// GetWebhook returns the webhook with id, or NotFound.
func (c *Catalog) GetWebhook(ctx context.Context, id string) (*Webhook, error) {
	res, err := c.eng.Query(ctx, `SELECT id, source_path, destination_url, transform, filter, owner, active, created_at FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	whs := rowsToWebhooks(res)
	if len(whs) == 0 {
		return nil, apperrors.ErrWebhookNotFound(id)
	}
	return whs[0], nil
}

// GetWebhookByPath returns the webhook registered at path, or NotFound.
func (c *Catalog) GetWebhookByPath(ctx context.Context, path string) (*Webhook, error) {
	res, err := c.eng.Query(ctx, `SELECT id, source_path, destination_url, transform, filter, owner, active, created_at FROM webhooks WHERE source_path = ?`, path)
	if err != nil {
		return nil, err
	}
	whs := rowsToWebhooks(res)
	if len(whs) == 0 {
		return nil, apperrors.ErrWebhookNotFound(path)
	}
	return whs[0], nil
}

// UpdateWebhook replaces the mutable fields of an existing webhook,
// re-running dry validation on the new transform/filter.
func (c *Catalog) UpdateWebhook(ctx context.Context, id, destinationURL, transform string, filter *string) (*Webhook, error) {
	if _, err := c.GetWebhook(ctx, id); err != nil {
		return nil, err
	}
	if err := evaluator.DryValidate(ctx, c.eng, transform, filter); err != nil {
		return nil, err
	}

	_, err := c.eng.Exec(ctx,
		`UPDATE webhooks SET destination_url = ?, transform = ?, filter = ? WHERE id = ?`,
		destinationURL, transform, filter, id,
	)
	if err != nil {
		return nil, err
	}
	return c.GetWebhook(ctx, id)
}

// SetActive toggles a webhook's active flag.
func (c *Catalog) SetActive(ctx context.Context, id string, active bool) (*Webhook, error) {
	if _, err := c.GetWebhook(ctx, id); err != nil {
		return nil, err
	}
	activeInt := 0
	if active {
		activeInt = 1
	}
	if _, err := c.eng.Exec(ctx, `UPDATE webhooks SET active = ? WHERE id = ?`, activeInt, id); err != nil {
		return nil, err
	}
	return c.GetWebhook(ctx, id)
}

// DeleteWebhookRow removes only the webhook metadata row. Cascading
// deletion of its reference tables/UDFs (physical objects first, then
// their metadata) is orchestrated by internal/installer, which calls this
// last.
func (c *Catalog) DeleteWebhookRow(ctx context.Context, id string) error {
	_, err := c.eng.Exec(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	return err
}

// RecordReferenceTable persists reference-table metadata after the
// installer has created the physical table.
func (c *Catalog) RecordReferenceTable(ctx context.Context, webhookID, logicalName, description, physicalName string) (*ReferenceTable, error) {
	rt := &ReferenceTable{
		ID:           uuid.New().String(),
		WebhookID:    webhookID,
		LogicalName:  logicalName,
		Description:  description,
		PhysicalName: physicalName,
		CreatedAt:    now(),
	}
	_, err := c.eng.Exec(ctx,
		`INSERT INTO reference_tables (id, webhook_id, logical_name, description, physical_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(webhook_id, logical_name) DO UPDATE SET physical_name = excluded.physical_name, created_at = excluded.created_at`,
		rt.ID, rt.WebhookID, rt.LogicalName, rt.Description, rt.PhysicalName, rt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c.GetReferenceTableByName(ctx, webhookID, logicalName)
}

// GetReferenceTableByName returns the reference table for webhookID/name.
func (c *Catalog) GetReferenceTableByName(ctx context.Context, webhookID, logicalName string) (*ReferenceTable, error) {
	res, err := c.eng.Query(ctx, `SELECT id, webhook_id, logical_name, description, physical_name, created_at FROM reference_tables WHERE webhook_id = ? AND logical_name = ?`, webhookID, logicalName)
	if err != nil {
		return nil, err
	}
	tbls := rowsToReferenceTables(res)
	if len(tbls) == 0 {
		return nil, apperrors.ErrReferenceTableNotFound(logicalName)
	}
	return tbls[0], nil
}

// ListReferenceTables returns every reference table, or those owned by
// webhookID when non-empty.
func (c *Catalog) ListReferenceTables(ctx context.Context, webhookID string) ([]*ReferenceTable, error) {
	query := `SELECT id, webhook_id, logical_name, description, physical_name, created_at FROM reference_tables`
	var args []any
	if webhookID != "" {
		query += ` WHERE webhook_id = ?`
		args = append(args, webhookID)
	}
	query += ` ORDER BY created_at`
	res, err := c.eng.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rowsToReferenceTables(res), nil
}

// GetReferenceTable returns the reference table with id, or NotFound.
func (c *Catalog) GetReferenceTable(ctx context.Context, id string) (*ReferenceTable, error) {
	res, err := c.eng.Query(ctx, `SELECT id, webhook_id, logical_name, description, physical_name, created_at FROM reference_tables WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	tbls := rowsToReferenceTables(res)
	if len(tbls) == 0 {
		return nil, apperrors.ErrReferenceTableNotFound(id)
	}
	return tbls[0], nil
}

// DeleteReferenceTableRow removes only the reference-table metadata row.
func (c *Catalog) DeleteReferenceTableRow(ctx context.Context, id string) error {
	_, err := c.eng.Exec(ctx, `DELETE FROM reference_tables WHERE id = ?`, id)
	return err
}

// RecordUDF persists UDF metadata after the installer has compiled the
// source and registered the physical scalar function. paramTypes is a
// comma-separated list of per-parameter type hints (one per declared Lua
// parameter); returnType is the declared return type hint. Both may be
// empty, meaning "treat everything as text".
func (c *Catalog) RecordUDF(ctx context.Context, webhookID, logicalName, sourceText, physicalName, paramTypes, returnType string) (*UDF, error) {
	udf := &UDF{
		ID:           uuid.New().String(),
		WebhookID:    webhookID,
		LogicalName:  logicalName,
		SourceText:   sourceText,
		PhysicalName: physicalName,
		ParamTypes:   paramTypes,
		ReturnType:   returnType,
		CreatedAt:    now(),
	}
	_, err := c.eng.Exec(ctx,
		`INSERT INTO udfs (id, webhook_id, logical_name, source_text, physical_name, param_types, return_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(webhook_id, logical_name) DO UPDATE SET source_text = excluded.source_text, physical_name = excluded.physical_name, param_types = excluded.param_types, return_type = excluded.return_type, created_at = excluded.created_at`,
		udf.ID, udf.WebhookID, udf.LogicalName, udf.SourceText, udf.PhysicalName, udf.ParamTypes, udf.ReturnType, udf.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c.GetUDFByName(ctx, webhookID, logicalName)
}

// GetUDFByName returns the UDF for webhookID/name.
func (c *Catalog) GetUDFByName(ctx context.Context, webhookID, logicalName string) (*UDF, error) {
	res, err := c.eng.Query(ctx, `SELECT id, webhook_id, logical_name, source_text, physical_name, param_types, return_type, created_at FROM udfs WHERE webhook_id = ? AND logical_name = ?`, webhookID, logicalName)
	if err != nil {
		return nil, err
	}
	udfs := rowsToUDFs(res)
	if len(udfs) == 0 {
		return nil, apperrors.ErrUDFNotFound(logicalName)
	}
	return udfs[0], nil
}

// ListUDFs returns every UDF, or those owned by webhookID when non-empty.
func (c *Catalog) ListUDFs(ctx context.Context, webhookID string) ([]*UDF, error) {
	query := `SELECT id, webhook_id, logical_name, source_text, physical_name, param_types, return_type, created_at FROM udfs`
	var args []any
	if webhookID != "" {
		query += ` WHERE webhook_id = ?`
		args = append(args, webhookID)
	}
	query += ` ORDER BY created_at`
	res, err := c.eng.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rowsToUDFs(res), nil
}

// GetUDF returns the UDF with id, or NotFound.
func (c *Catalog) GetUDF(ctx context.Context, id string) (*UDF, error) {
	res, err := c.eng.Query(ctx, `SELECT id, webhook_id, logical_name, source_text, physical_name, param_types, return_type, created_at FROM udfs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	udfs := rowsToUDFs(res)
	if len(udfs) == 0 {
		return nil, apperrors.ErrUDFNotFound(id)
	}
	return udfs[0], nil
}

// DeleteUDFRow removes only the UDF metadata row.
func (c *Catalog) DeleteUDFRow(ctx context.Context, id string) error {
	_, err := c.eng.Exec(ctx, `DELETE FROM udfs WHERE id = ?`, id)
	return err
}

func isNotFound(err error) bool {
	appErr, ok := apperrors.IsAppError(err)
	return ok && appErr.HTTPStatus == 404
}

func rowsToWebhooks(res *engine.Result) []*Webhook {
	out := make([]*Webhook, 0, len(res.Rows))
	for _, row := range res.Rows {
		wh := &Webhook{
			ID:             stringOf(row["id"]),
			SourcePath:     stringOf(row["source_path"]),
			DestinationURL: stringOf(row["destination_url"]),
			Transform:      stringOf(row["transform"]),
			Owner:          stringOf(row["owner"]),
			Active:         intOf(row["active"]) != 0,
			CreatedAt:      stringOf(row["created_at"]),
		}
		if f := row["filter"]; f != nil {
			s := stringOf(f)
			wh.Filter = &s
		}
		out = append(out, wh)
	}
	return out
}

func rowsToReferenceTables(res *engine.Result) []*ReferenceTable {
	out := make([]*ReferenceTable, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, &ReferenceTable{
			ID:           stringOf(row["id"]),
			WebhookID:    stringOf(row["webhook_id"]),
			LogicalName:  stringOf(row["logical_name"]),
			Description:  stringOf(row["description"]),
			PhysicalName: stringOf(row["physical_name"]),
			CreatedAt:    stringOf(row["created_at"]),
		})
	}
	return out
}

func rowsToUDFs(res *engine.Result) []*UDF {
	out := make([]*UDF, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, &UDF{
			ID:           stringOf(row["id"]),
			WebhookID:    stringOf(row["webhook_id"]),
			LogicalName:  stringOf(row["logical_name"]),
			SourceText:   stringOf(row["source_text"]),
			PhysicalName: stringOf(row["physical_name"]),
			ParamTypes:   stringOf(row["param_types"]),
			ReturnType:   stringOf(row["return_type"]),
			CreatedAt:    stringOf(row["created_at"]),
		})
	}
	return out
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intOf(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
