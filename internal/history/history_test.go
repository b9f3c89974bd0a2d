package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func TestStore_StartFinishList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.Start(ctx, Run{Kind: KindUpdate, Cluster: "eks-staging", Environment: "staging", Region: "eu-west-1", Scope: "all"})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, s.Finish(ctx, run.ID, "3 completed, 1 skipped", nil))

	runs, err := s.List(ctx, "eks-staging", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, KindUpdate, got.Kind)
	assert.Equal(t, "all", got.Scope)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, "3 completed, 1 skipped", got.Detail)
	assert.Equal(t, time.Minute, got.Duration())
}

func TestStore_FinishWithError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run, err := s.Start(ctx, Run{Kind: KindValidate, Cluster: "eks-dev", Environment: "dev", Region: "us-east-1", Scope: "health"})
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx, run.ID, "1 failed", errors.New("validation failed")))

	runs, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "1 failed: validation failed", runs[0].Detail)
}

func TestStore_FinishUnknownID(t *testing.T) {
	s := openTestStore(t)
	err := s.Finish(context.Background(), "does-not-exist", "", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, c := range []string{"a", "b", "a", "a"} {
		_, err := s.Start(ctx, Run{Kind: KindValidate, Cluster: c, Environment: "dev", Region: "us-east-1"})
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	onlyA, err := s.List(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.True(t, onlyA[0].Started.After(onlyA[1].Started), "newest first")
	for _, r := range onlyA {
		assert.Equal(t, "a", r.Cluster)
		assert.True(t, r.Finished.IsZero())
		assert.Equal(t, time.Duration(0), r.Duration())
	}
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(ctx, p)
	require.NoError(t, err)
	_, err = s.Start(ctx, Run{Kind: KindBackup, Cluster: "c", Environment: "dev", Region: "r"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, p)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.List(ctx, "c", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
