package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istr/internal/batch"
	"istr/pkg/platform/sentinel"
)

func run(id string, at time.Time) batch.RunSummary {
	return batch.RunSummary{ID: id, Function: "iban.check", Format: "iban", StartedAt: at, Stats: batch.Stats{Rows: 1}}
}

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := New(0)

	require.NoError(t, ledger.Save(ctx, run("a", base)))
	require.NoError(t, ledger.Save(ctx, run("b", base.Add(time.Minute))))
	assert.ErrorIs(t, ledger.Save(ctx, run("a", base)), sentinel.ErrConflict)

	got, err := ledger.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "iban.check", got.Function)

	_, err = ledger.Get(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	recent, err := ledger.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].ID)
}

func TestInMemoryLedgerEvictsOldest(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := New(2)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, ledger.Save(ctx, run(id, base.Add(time.Duration(i)*time.Second))))
	}

	_, err := ledger.Get(ctx, "a")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	recent, err := ledger.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
}
