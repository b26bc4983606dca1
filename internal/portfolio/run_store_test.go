package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

func TestRunStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(t.TempDir())

	_, err := store.LatestRunID(ctx)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	first := equalAllocation()
	first.RunID = "20261005-140000-aaaaaaaa"
	first.ConstructedAt = time.Date(2026, 10, 5, 14, 0, 0, 0, time.UTC)
	first.Holdings[0].Composite = contracts.Scored(0.42)

	second := equalAllocation()
	second.RunID = "20261019-140000-bbbbbbbb"

	require.NoError(t, store.SaveRun(ctx, first, map[string]float64{"T00": 200}))
	require.NoError(t, store.SaveRun(ctx, second, nil))

	latest, err := store.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest)

	prev, err := store.PreviousRunID(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, prev)

	_, err = store.PreviousRunID(ctx, prev)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	loaded, prices, err := store.LoadRun(ctx, prev)
	require.NoError(t, err)
	assert.Equal(t, 200.0, prices["T00"])
	assert.Equal(t, first.Tickers(), loaded.Tickers())
	assert.True(t, first.ConstructedAt.Equal(loaded.ConstructedAt))

	v, ok := loaded.Holdings[0].Composite.Value()
	require.True(t, ok)
	assert.Equal(t, 0.42, v)

	_, prices, err = store.LoadRun(ctx, latest)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestRunStore_MissingRun(t *testing.T) {
	_, _, err := NewRunStore(t.TempDir()).LoadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
