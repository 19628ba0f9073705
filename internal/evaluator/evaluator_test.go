package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"webhookgw.io/gateway/internal/engine"
)

func openTestEngine(t *testing.T) *engine.Handle {
	t.Helper()
	h, err := engine.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestSubstitute_AllOccurrencesAndWhitespace(t *testing.T) {
	got := Substitute("SELECT * FROM {{ payload }} UNION SELECT * FROM {{payload}}", "evt_123")
	require.Equal(t, "SELECT * FROM evt_123 UNION SELECT * FROM evt_123", got)
}

func TestSubstitute_Idempotent(t *testing.T) {
	once := Substitute("SELECT * FROM {{payload}}", "evt_123")
	twice := Substitute(once, "evt_123")
	require.Equal(t, once, twice)
}

func TestEvaluate_RegisterAndFire(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	transform := `SELECT payload->>'$.type' AS t FROM {{payload}}`
	out, err := Evaluate(ctx, eng, transform, nil, `{"type":"PushEvent"}`)
	require.NoError(t, err)
	require.False(t, out.Filtered)
	require.Equal(t, map[string]any{"t": "PushEvent"}, out.Transformed)
}

func TestEvaluate_FilterRejects(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	transform := `SELECT payload->>'$.type' AS t FROM {{payload}}`
	filter := `payload->>'$.type' = 'PullRequestEvent'`
	out, err := Evaluate(ctx, eng, transform, &filter, `{"type":"PushEvent"}`)
	require.NoError(t, err)
	require.True(t, out.Filtered)
}

func TestEvaluate_FilterAccepts(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	transform := `SELECT payload->>'$.type' AS t FROM {{payload}}`
	filter := `payload->>'$.type' = 'PushEvent'`
	out, err := Evaluate(ctx, eng, transform, &filter, `{"type":"PushEvent"}`)
	require.NoError(t, err)
	require.False(t, out.Filtered)
	require.Equal(t, map[string]any{"t": "PushEvent"}, out.Transformed)
}

func TestEvaluate_ReferenceTableJoin(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	require.NoError(t, eng.BulkLoadCSV(ctx, "ref_test_users",
		[]string{"user_id", "username", "department"},
		[][]string{{"2", "jane", "product"}},
	))

	transform := `SELECT p.payload->>'$.sender.id' AS uid, u.department FROM {{payload}} p
		LEFT JOIN ref_test_users u ON CAST(p.payload->>'$.sender.id' AS INTEGER) = u.user_id`
	out, err := Evaluate(ctx, eng, transform, nil, `{"sender":{"id":2}}`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"uid": "2", "department": "product"}, out.Transformed)
}

func TestEvaluate_TransformSyntaxErrorIsEvaluationError(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	_, err := Evaluate(ctx, eng, `SELECT FROM {{payload}}`, nil, `{}`)
	require.Error(t, err)
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	require.Equal(t, "transform", evalErr.Stage)
}

func TestEvaluate_MultipleRowsProduceArray(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	transform := `SELECT 1 AS n FROM {{payload}} UNION ALL SELECT 2 AS n FROM {{payload}}`
	out, err := Evaluate(ctx, eng, transform, nil, `{}`)
	require.NoError(t, err)
	rows, ok := out.Transformed.([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
}

func TestDryValidate_RejectsMissingToken(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	err := DryValidate(ctx, eng, `SELECT 1`, nil)
	require.Error(t, err)
}

func TestDryValidate_RejectsSyntaxError(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	err := DryValidate(ctx, eng, `SELECT FROM {{payload}}`, nil)
	require.Error(t, err)
}

func TestDryValidate_AcceptsValidTransform(t *testing.T) {
	ctx := context.Background()
	eng := openTestEngine(t)

	err := DryValidate(ctx, eng, `SELECT payload->>'$.type' AS t FROM {{payload}}`, nil)
	require.NoError(t, err)
}
