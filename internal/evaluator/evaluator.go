// Package evaluator implements the transform/filter pipeline: given a SQL
// transform template (and optional filter) plus a raw JSON payload, it
// materializes the payload as a single-row ephemeral view and evaluates the
// user's SQL against it.
package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"webhookgw.io/gateway/internal/engine"
)

// payloadToken matches {{payload}} tolerating whitespace inside the braces.
var payloadToken = regexp.MustCompile(`\{\{\s*payload\s*\}\}`)

// Substitute literally replaces every occurrence of the {{payload}} token
// with viewName. Idempotent under repeated application as long as viewName
// itself doesn't contain the token.
func Substitute(template, viewName string) string {
	return payloadToken.ReplaceAllString(template, viewName)
}

// Outcome is the result of evaluating one event against a webhook's
// transform/filter.
type Outcome struct {
	// Filtered is true when the filter rejected the event; Transformed is
	// unset in that case.
	Filtered bool

	// Transformed is either a map[string]any (single result row) or a
	// []map[string]any (multiple rows).
	Transformed any
}

// EvaluationError wraps a runtime SQL failure in the filter or transform,
// distinct from the registration-time Invalid failures raised by
// DryValidate.
type EvaluationError struct {
	Stage string // "filter" or "transform"
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s evaluation failed: %v", e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Evaluate runs filter then transform for payloadJSON against a webhook's
// SQL, returning either a filtered verdict, a transformed payload, or an
// EvaluationError.
func Evaluate(ctx context.Context, eng *engine.Handle, transform string, filter *string, payloadJSON string) (*Outcome, error) {
	viewName, drop, err := createEphemeralView(ctx, eng, payloadJSON)
	if err != nil {
		return nil, err
	}
	defer drop()

	if filter != nil && strings.TrimSpace(*filter) != "" {
		filtered, err := evaluateFilter(ctx, eng, *filter, viewName)
		if err != nil {
			return nil, &EvaluationError{Stage: "filter", Err: err}
		}
		if filtered {
			return &Outcome{Filtered: true}, nil
		}
	}

	transformSQL := Substitute(transform, viewName)
	res, err := eng.Query(ctx, transformSQL)
	if err != nil {
		return nil, &EvaluationError{Stage: "transform", Err: err}
	}

	if len(res.Rows) == 1 {
		return &Outcome{Transformed: engine.RowToJSON(res.Rows[0])}, nil
	}
	return &Outcome{Transformed: engine.RowsToJSON(res.Rows)}, nil
}

// evaluateFilter runs the filter expression and reports whether the event
// should be filtered out. False or NULL means filtered-out.
func evaluateFilter(ctx context.Context, eng *engine.Handle, filter, viewName string) (bool, error) {
	filterSQL := Substitute(filter, viewName)
	res, err := eng.Query(ctx, fmt.Sprintf(`SELECT (%s) AS verdict FROM %s`, filterSQL, viewName))
	if err != nil {
		return false, err
	}
	if len(res.Rows) == 0 {
		return true, nil
	}
	v := res.Rows[0]["verdict"]
	if v == nil {
		return true, nil
	}
	switch b := v.(type) {
	case int64:
		return b == 0, nil
	case bool:
		return !b, nil
	default:
		return false, nil
	}
}

// createEphemeralView creates a per-event single-row temp view exposing
// payloadJSON as the column "payload", and returns a cleanup func that
// drops it. The view is dropped on every exit path.
func createEphemeralView(ctx context.Context, eng *engine.Handle, payloadJSON string) (viewName string, drop func(), err error) {
	viewName = "evt_" + strings.ReplaceAll(uuid.New().String(), "-", "_")

	escaped := strings.ReplaceAll(payloadJSON, "'", "''")
	stmt := fmt.Sprintf(`CREATE TEMP VIEW %s AS SELECT '%s' AS payload`, viewName, escaped)
	if _, err := eng.Exec(ctx, stmt); err != nil {
		return "", nil, err
	}

	drop = func() {
		_, _ = eng.Exec(context.Background(), fmt.Sprintf(`DROP VIEW IF EXISTS %s`, viewName))
	}
	return viewName, drop, nil
}
