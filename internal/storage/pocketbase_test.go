package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"eradata/internal/models"
)

func record(year int, fips, office, candidate string, votes int) models.AggregatedRecord {
	return models.AggregatedRecord{
		Key: models.GroupKey{
			Year: year, State: "GEORGIA", StatePO: "GA", CountyName: "FULTON",
			CountyFIPS: fips, Office: office, Candidate: candidate, Party: "DEMOCRAT",
		},
		CandidateVotes: votes,
		TotalVotes:     models.Some(1000),
		Version:        models.Some(20220315),
		Mode:           models.ModeTotal,
	}
}

func newTestStore(t *testing.T) *PocketBaseStore {
	t.Helper()
	store, err := NewPocketBaseStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPocketBaseStore_ReplaceAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceResults(ctx, []models.AggregatedRecord{
		record(2020, "13121", "US PRESIDENT", "B", 20),
		record(2020, "13121", "US PRESIDENT", "A", 10),
		record(2016, "13121", "US PRESIDENT", "A", 5),
		record(2020, "13067", "US SENATE", "C", 30),
	}))

	got, err := store.FindResults(ctx, ResultFilter{CountyFIPS: "13121", Year: 2020})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, record(2020, "13121", "US PRESIDENT", "A", 10), got[0])
	assert.Equal(t, "B", got[1].Key.Candidate)

	got, err = store.FindResults(ctx, ResultFilter{Office: "US SENATE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "13067", got[0].Key.CountyFIPS)

	all, err := store.FindResults(ctx, ResultFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPocketBaseStore_MissingMeasuresStayMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing := record(2020, "13121", "US PRESIDENT", "A", 10)
	missing.TotalVotes = models.OptionalInt{}
	zero := record(2020, "13121", "US PRESIDENT", "B", 0)
	zero.TotalVotes = models.Some(0)
	zero.Version = models.OptionalInt{}
	require.NoError(t, store.ReplaceResults(ctx, []models.AggregatedRecord{missing, zero}))

	got, err := store.FindResults(ctx, ResultFilter{CountyFIPS: "13121"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, missing, got[0])
	assert.Equal(t, zero, got[1])
}

func TestPocketBaseStore_ReplaceClearsPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceResults(ctx, []models.AggregatedRecord{
		record(2020, "13121", "US PRESIDENT", "A", 10),
		record(2020, "13121", "US PRESIDENT", "B", 20),
	}))
	require.NoError(t, store.ReplaceResults(ctx, []models.AggregatedRecord{
		record(2020, "13121", "US PRESIDENT", "A", 15),
	}))

	got, err := store.FindResults(ctx, ResultFilter{CountyFIPS: "13121"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 15, got[0].CandidateVotes)
}

func TestPocketBaseStore_ReopenKeepsResults(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewPocketBaseStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.ReplaceResults(ctx, []models.AggregatedRecord{
		record(2020, "13121", "US PRESIDENT", "A", 10),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewPocketBaseStore(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.FindResults(ctx, ResultFilter{CountyFIPS: "13121"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPocketBaseStore_CancelledReplaceRollsBack(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.ReplaceResults(context.Background(), []models.AggregatedRecord{
		record(2020, "13121", "US PRESIDENT", "A", 10),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.ReplaceResults(ctx, []models.AggregatedRecord{
		record(2020, "13121", "US PRESIDENT", "B", 20),
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, err := store.FindResults(context.Background(), ResultFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Key.Candidate)
}
