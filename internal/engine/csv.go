package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// BulkLoadCSV (re)creates tableName with one column per header entry and
// loads every row. Column types are inferred per-column from the row data
// (INTEGER if every value parses as an integer, REAL if every value parses
// as a float, TEXT otherwise) so that reference-table joins can compare
// against cast JSON values without surprising affinity coercions. Re-upload
// of the same table truncates and replaces rather than appending.
func (h *Handle) BulkLoadCSV(ctx context.Context, tableName string, header []string, rows [][]string) error {
	if len(header) == 0 {
		return apperrors.ErrCSVInvalid("no header row")
	}
	for _, row := range rows {
		if len(row) != len(header) {
			return apperrors.ErrCSVInvalid(fmt.Sprintf("row has %d fields, header has %d", len(row), len(header)))
		}
	}

	colTypes := inferColumnTypes(header, rows)

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	dropStmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(tableName))
	if _, err := tx.ExecContext(ctx, dropStmt); err != nil {
		return apperrors.ErrEngine(fmt.Errorf("drop existing table: %w", err))
	}

	cols := make([]string, len(header))
	for i, col := range header {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(col), colTypes[i])
	}
	createStmt := fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(tableName), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return apperrors.ErrEngine(fmt.Errorf("create table: %w", err))
	}

	placeholders := make([]string, len(header))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertStmt := fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, quoteIdent(tableName), strings.Join(placeholders, ", "))

	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = convertCell(v, colTypes[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return apperrors.ErrEngine(fmt.Errorf("insert row: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.ErrEngine(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// DropTable drops tableName if it exists, tolerating it being already
// absent (installer cascade-delete is idempotent).
func (h *Handle) DropTable(ctx context.Context, tableName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	stmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(tableName))
	if _, err := h.db.ExecContext(ctx, stmt); err != nil {
		return apperrors.ErrEngine(fmt.Errorf("drop table %s: %w", tableName, err))
	}
	return nil
}

func inferColumnTypes(header []string, rows [][]string) []string {
	types := make([]string, len(header))
	for i := range header {
		types[i] = "INTEGER"
	}
	for _, row := range rows {
		for i, v := range row {
			switch types[i] {
			case "INTEGER":
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					if _, err := strconv.ParseFloat(v, 64); err == nil {
						types[i] = "REAL"
					} else {
						types[i] = "TEXT"
					}
				}
			case "REAL":
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					types[i] = "TEXT"
				}
			}
		}
	}
	return types
}

func convertCell(v, colType string) any {
	switch colType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

// quoteIdent double-quotes a SQL identifier, doubling any embedded quote.
// Physical names are always derived internally (see internal/installer),
// never taken verbatim from untrusted input, but this keeps the engine
// layer defensive regardless.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
