package installer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"webhookgw.io/gateway/internal/catalog"
	"webhookgw.io/gateway/internal/engine"
	"webhookgw.io/gateway/internal/udf"
)

func setup(t *testing.T) (*engine.Handle, *catalog.Catalog, *Installer) {
	t.Helper()
	eng, err := engine.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	cat := catalog.New(eng)
	return eng, cat, New(eng, cat)
}

func registerTestWebhook(t *testing.T, ctx context.Context, cat *catalog.Catalog) *catalog.Webhook {
	t.Helper()
	wh, err := cat.RegisterWebhook(ctx, "/hooks/github", "https://example.com/sink",
		`SELECT payload->>'$.type' AS t FROM {{payload}}`, nil, "alice")
	require.NoError(t, err)
	return wh
}

func TestUploadReferenceTable_RoundTripAndReupload(t *testing.T) {
	ctx := context.Background()
	eng, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	rt, err := ins.UploadReferenceTable(ctx, wh.ID, "users", "user lookup",
		[]string{"user_id", "username", "department"},
		[][]string{{"2", "jane", "product"}},
	)
	require.NoError(t, err)
	require.Equal(t, ReferenceTablePhysicalName(wh.ID, "users"), rt.PhysicalName)

	res, err := eng.Query(ctx, "SELECT department FROM "+rt.PhysicalName+" WHERE user_id = 2")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "product", res.Rows[0]["department"])

	_, err = ins.UploadReferenceTable(ctx, wh.ID, "users", "user lookup v2",
		[]string{"user_id", "username", "department"},
		[][]string{{"3", "bob", "sales"}},
	)
	require.NoError(t, err)

	res, err = eng.Query(ctx, "SELECT COUNT(*) AS n FROM "+rt.PhysicalName)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Rows[0]["n"])
}

func TestUploadReferenceTable_RejectsUnsafeIdentifier(t *testing.T) {
	ctx := context.Background()
	_, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	_, err := ins.UploadReferenceTable(ctx, wh.ID, "2bad-name", "", []string{"a"}, [][]string{{"1"}})
	require.Error(t, err)
}

func TestDeleteReferenceTable_DropsPhysicalTable(t *testing.T) {
	ctx := context.Background()
	eng, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	rt, err := ins.UploadReferenceTable(ctx, wh.ID, "users", "", []string{"user_id"}, [][]string{{"1"}})
	require.NoError(t, err)

	require.NoError(t, ins.DeleteReferenceTable(ctx, rt.ID))

	objs, err := eng.ListObjects(ctx, "ref_")
	require.NoError(t, err)
	require.Empty(t, objs)
}

const jiraScript = `
function extract_jira_key(msg)
	return string.match(msg, "%u+-%d+")
end
`

func TestRegisterUDF_RoundTripAndCall(t *testing.T) {
	ctx := context.Background()
	eng, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	udfRow, err := ins.RegisterUDF(ctx, wh.ID, "extract_jira_key", jiraScript, nil, udf.TypeText)
	require.NoError(t, err)
	require.Equal(t, UDFPhysicalName(wh.ID, "extract_jira_key"), udfRow.PhysicalName)

	res, err := eng.Query(ctx, "SELECT "+udfRow.PhysicalName+"('Fix [PROJ-123]') AS key")
	require.NoError(t, err)
	require.Equal(t, "PROJ-123", res.Rows[0]["key"])
}

func TestRegisterUDF_RejectsCompileFailure(t *testing.T) {
	ctx := context.Background()
	_, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	_, err := ins.RegisterUDF(ctx, wh.ID, "broken", "this is not lua (((", nil, "")
	require.Error(t, err)
}

func TestDeleteUDF_DropsPhysicalFunction(t *testing.T) {
	ctx := context.Background()
	eng, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	udfRow, err := ins.RegisterUDF(ctx, wh.ID, "extract_jira_key", jiraScript, nil, udf.TypeText)
	require.NoError(t, err)

	require.NoError(t, ins.DeleteUDF(ctx, udfRow.ID))

	require.Empty(t, ins.RegisteredUDFNames())

	_, err = eng.Query(ctx, "SELECT "+udfRow.PhysicalName+"('Fix [PROJ-123]') AS key")
	require.Error(t, err)

	// Deleting an already-deleted UDF's physical function must stay
	// idempotent: the catalog row is gone, but dropping its physical name a
	// second time directly against the engine must not error.
	require.NoError(t, eng.DropScalarFunction(ctx, udfRow.PhysicalName))
}

const doubleScript = `
function double(n)
	return n * 2
end
`

func TestRegisterUDF_TypeHintsSurviveRehydrate(t *testing.T) {
	ctx := context.Background()
	eng, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	udfRow, err := ins.RegisterUDF(ctx, wh.ID, "double", doubleScript,
		[]udf.ParamType{udf.TypeInt}, udf.TypeInt)
	require.NoError(t, err)
	require.Equal(t, "int", udfRow.ParamTypes)
	require.Equal(t, "int", udfRow.ReturnType)

	res, err := eng.Query(ctx, "SELECT "+udfRow.PhysicalName+"(21) AS v")
	require.NoError(t, err)
	require.EqualValues(t, 42, res.Rows[0]["v"])

	// A fresh installer sharing the same engine/catalog stands in for a
	// process restart. The shared engine connection still holds the
	// function, so what this checks is that rehydrating from the catalog row
	// re-registers it with the persisted type hints: a text default would
	// return "42" instead of 42.
	fresh := New(eng, cat)
	row, err := cat.GetUDF(ctx, udfRow.ID)
	require.NoError(t, err)
	require.NoError(t, fresh.RehydrateUDF(ctx, row))

	res, err = eng.Query(ctx, "SELECT "+udfRow.PhysicalName+"(21) AS v")
	require.NoError(t, err)
	require.EqualValues(t, 42, res.Rows[0]["v"])
}

func TestDeleteWebhookCascade_RemovesAllPhysicalObjects(t *testing.T) {
	ctx := context.Background()
	eng, cat, ins := setup(t)
	wh := registerTestWebhook(t, ctx, cat)

	_, err := ins.UploadReferenceTable(ctx, wh.ID, "users", "", []string{"user_id"}, [][]string{{"1"}})
	require.NoError(t, err)
	_, err = ins.RegisterUDF(ctx, wh.ID, "extract_jira_key", jiraScript, nil, udf.TypeText)
	require.NoError(t, err)

	require.NoError(t, ins.DeleteWebhookCascade(ctx, wh.ID))

	refs, err := eng.ListObjects(ctx, "ref_")
	require.NoError(t, err)
	require.Empty(t, refs)

	require.Empty(t, ins.RegisteredUDFNames())

	_, err = cat.GetWebhook(ctx, wh.ID)
	require.Error(t, err)
}
