package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"webhookgw.io/gateway/internal/engine"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	eng, err := engine.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return New(eng)
}

func TestWriteRawEvent_ThenRecentEvents(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	ev, err := log.WriteRawEvent(ctx, "/gh", `{"type":"PushEvent"}`, `{}`)
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)

	recent, err := log.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, ev.ID, recent[0].ID)
}

func TestWriteTransformedEvent_LookupByRawEventID(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	raw, err := log.WriteRawEvent(ctx, "/gh", `{"type":"PushEvent"}`, `{}`)
	require.NoError(t, err)

	_, err = log.WriteTransformedEvent(ctx, raw.ID, "wh-1", "http://sink", true, 200, `{"ok":true}`, `{"t":"PushEvent"}`)
	require.NoError(t, err)

	te, err := log.TransformedEventByRawEventID(ctx, raw.ID)
	require.NoError(t, err)
	require.True(t, te.Success)
	require.Equal(t, 200, te.ResponseCode)
}

func TestTransformedEventByRawEventID_NotFoundWhenFiltered(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	raw, err := log.WriteRawEvent(ctx, "/gh", `{"type":"PushEvent"}`, `{}`)
	require.NoError(t, err)

	_, err = log.TransformedEventByRawEventID(ctx, raw.ID)
	require.Error(t, err)
}

func TestSuccessRateRollup_ComputesRatio(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	for i := 0; i < 3; i++ {
		raw, err := log.WriteRawEvent(ctx, "/gh", `{}`, `{}`)
		require.NoError(t, err)
		success := i != 2
		code := 200
		if !success {
			code = 500
		}
		_, err = log.WriteTransformedEvent(ctx, raw.ID, "wh-1", "http://sink", success, code, "", "{}")
		require.NoError(t, err)
	}

	rollup, err := log.SuccessRateRollup(ctx)
	require.NoError(t, err)
	require.Len(t, rollup, 1)
	require.EqualValues(t, 3, rollup[0].Total)
	require.EqualValues(t, 2, rollup[0].Successful)
	require.InDelta(t, 2.0/3.0, rollup[0].SuccessRatio, 0.0001)
}
