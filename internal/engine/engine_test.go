package engine

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpen_BootstrapsSchemaIdempotently(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	res, err := h.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)

	var names []string
	for _, row := range res.Rows {
		names = append(names, row["name"].(string))
	}
	require.Contains(t, names, "webhooks")
	require.Contains(t, names, "reference_tables")
	require.Contains(t, names, "udfs")
	require.Contains(t, names, "raw_events")
	require.Contains(t, names, "transformed_events")
}

func TestHandle_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	_, err := h.Exec(ctx, `INSERT INTO webhooks (id, source_path, destination_url, transform, owner, active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`, "w1", "/gh", "http://sink", "SELECT 1 FROM {{payload}}", "me", "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	res, err := h.Query(ctx, `SELECT source_path FROM webhooks WHERE id = ?`, "w1")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "/gh", res.Rows[0]["source_path"])
}

func TestHandle_ExecSyntaxError(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	_, err := h.Exec(ctx, `SELECT FROM nowhere`)
	require.Error(t, err)
}

func TestHandle_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	callErr := errFake{}
	err := h.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO webhooks (id, source_path, destination_url, transform, owner, active, created_at)
			VALUES ('rollback-me', '/rb', 'http://sink', 'SELECT 1 FROM {{payload}}', 'me', 1, '2026-01-01T00:00:00Z')`); err != nil {
			return err
		}
		return callErr
	})
	require.ErrorIs(t, err, callErr)

	res, qerr := h.Query(ctx, `SELECT COUNT(*) AS c FROM webhooks WHERE id = 'rollback-me'`)
	require.NoError(t, qerr)
	require.EqualValues(t, 0, res.Rows[0]["c"])
}

type errFake struct{}

func (errFake) Error() string { return "fake rollback trigger" }

func TestHandle_RegisterAndDropScalarFunction(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	err := h.RegisterScalarFunction(ctx, "udf_test_double", 1, func(args ...any) (any, error) {
		n, _ := args[0].(int64)
		return n * 2, nil
	})
	require.NoError(t, err)

	res, err := h.Query(ctx, `SELECT udf_test_double(21) AS v`)
	require.NoError(t, err)
	require.Equal(t, int64(42), res.Rows[0]["v"])

	require.NoError(t, h.DropScalarFunction(ctx, "udf_test_double"))

	_, err = h.Query(ctx, `SELECT udf_test_double(21) AS v`)
	require.Error(t, err)

	// Dropping again, and dropping a name that was never registered, must
	// both stay idempotent rather than erroring.
	require.NoError(t, h.DropScalarFunction(ctx, "udf_test_double"))
	require.NoError(t, h.DropScalarFunction(ctx, "udf_never_registered"))
}

func TestHandle_BulkLoadCSVAndDropTable(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)

	header := []string{"user_id", "username", "department"}
	rows := [][]string{
		{"1", "john", "eng"},
		{"2", "jane", "product"},
	}
	require.NoError(t, h.BulkLoadCSV(ctx, "ref_test_users", header, rows))

	res, err := h.Query(ctx, `SELECT department FROM ref_test_users WHERE user_id = 2`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "product", res.Rows[0]["department"])

	// Re-upload truncates and replaces.
	require.NoError(t, h.BulkLoadCSV(ctx, "ref_test_users", header, [][]string{{"3", "sam", "sales"}}))
	res, err = h.Query(ctx, `SELECT COUNT(*) AS c FROM ref_test_users`)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Rows[0]["c"])

	require.NoError(t, h.DropTable(ctx, "ref_test_users"))
	require.NoError(t, h.DropTable(ctx, "ref_test_users")) // idempotent
}

func TestRowToJSON_Base64EncodesBlobs(t *testing.T) {
	row := Row{"data": []byte("hi"), "n": int64(5), "s": "text", "null": nil}
	out := RowToJSON(row)
	require.Equal(t, "aGk=", out["data"])
	require.Equal(t, int64(5), out["n"])
	require.Equal(t, "text", out["s"])
	require.Nil(t, out["null"])
}
