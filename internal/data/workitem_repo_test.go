package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/merchsync/internal/domain/model"
	"github.com/merchkit/merchsync/internal/testutil"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, value)
	require.NoError(t, err)
	return d
}

func TestWorkItemRepo_InsertIfAbsent_Idempotent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewWorkItemRepo(db, RepoConfig{})
		ctx := context.Background()

		keys := []model.WorkKey{
			{Shop: "acme", StartDate: day(t, "2026-08-01"), ObjectType: model.ObjectTypeOrders},
			{Shop: "acme", StartDate: day(t, "2026-08-02"), ObjectType: model.ObjectTypeOrders},
			{Shop: "globex", StartDate: day(t, "2026-08-01"), ObjectType: model.ObjectTypeRefunds},
		}

		created, err := repo.InsertIfAbsent(ctx, keys)
		require.NoError(t, err)
		assert.Equal(t, 3, created)

		// Same keys again: the conflict clause must skip every one of them.
		created, err = repo.InsertIfAbsent(ctx, keys)
		require.NoError(t, err)
		assert.Zero(t, created)

		// A claimed job must survive re-insertion untouched, not get reset
		// back to pending.
		claimed, err := repo.ClaimPending(ctx, keys[0])
		require.NoError(t, err)
		require.NotNil(t, claimed.StartedAt)

		created, err = repo.InsertIfAbsent(ctx, keys[:1])
		require.NoError(t, err)
		assert.Zero(t, created)

		after, err := repo.GetByKey(ctx, keys[0])
		require.NoError(t, err)
		assert.Equal(t, model.StatusRunning, after.Status)
		require.NotNil(t, after.StartedAt)
		assert.WithinDuration(t, *claimed.StartedAt, *after.StartedAt, time.Second)
	})
}

func TestWorkItemRepo_ClaimPending_AtMostOnce(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewWorkItemRepo(db, RepoConfig{})
		ctx := context.Background()

		key := model.WorkKey{Shop: "acme", StartDate: day(t, "2026-08-01"), ObjectType: model.ObjectTypeOrders}
		_, err := repo.InsertIfAbsent(ctx, []model.WorkKey{key})
		require.NoError(t, err)

		const claimants = 8
		runner := testutil.NewConcurrentTestRunner(t)
		funcs := make([]func() error, claimants)
		for i := range funcs {
			funcs[i] = func() error {
				_, claimErr := repo.ClaimPending(ctx, key)
				return claimErr
			}
		}

		errs := runner.RunConcurrent(funcs...)

		var winners, losers int
		for _, claimErr := range errs {
			switch {
			case claimErr == nil:
				winners++
			case errors.Is(claimErr, model.ErrNoItemsAvailable):
				losers++
			default:
				t.Fatalf("unexpected claim error: %v", claimErr)
			}
		}
		assert.Equal(t, 1, winners)
		assert.Equal(t, claimants-1, losers)

		item, err := repo.GetByKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, model.StatusRunning, item.Status)
		assert.NotNil(t, item.StartedAt)
	})
}

func TestWorkItemRepo_FailStaleRunning_ReclaimsOnlyOlderThanThreshold(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		clock := NewFixedTimeProvider(start)
		repo := NewWorkItemRepo(db, RepoConfig{TimeProvider: clock})
		ctx := context.Background()

		stale := model.WorkKey{Shop: "acme", StartDate: day(t, "2026-08-01"), ObjectType: model.ObjectTypeOrders}
		fresh := model.WorkKey{Shop: "acme", StartDate: day(t, "2026-08-02"), ObjectType: model.ObjectTypeOrders}
		_, err := repo.InsertIfAbsent(ctx, []model.WorkKey{stale, fresh})
		require.NoError(t, err)

		// First job claimed at t0, second 90 seconds later.
		_, err = repo.ClaimPending(ctx, stale)
		require.NoError(t, err)

		clock.SetTime(start.Add(90 * time.Second))
		_, err = repo.ClaimPending(ctx, fresh)
		require.NoError(t, err)

		// Sweep at t0+3m with a 2 minute threshold: the cutoff lands at
		// t0+1m, so only the first claim is past it.
		clock.SetTime(start.Add(3 * time.Minute))
		reclaimed, err := repo.FailStaleRunning(ctx, 2*time.Minute, 100)
		require.NoError(t, err)

		require.Len(t, reclaimed, 1)
		assert.Equal(t, stale.Shop, reclaimed[0].Shop)
		assert.Equal(t, stale.ObjectType, reclaimed[0].ObjectType)
		assert.Equal(t, stale.StartDate.Format(model.DateLayout), reclaimed[0].StartDate.Format(model.DateLayout))

		reaped, err := repo.GetByKey(ctx, stale)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, reaped.Status)
		require.NotNil(t, reaped.ErrorMessage)
		assert.Contains(t, *reaped.ErrorMessage, "staleness threshold")
		assert.NotNil(t, reaped.CompletedAt)

		survivor, err := repo.GetByKey(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, model.StatusRunning, survivor.Status)
		assert.Nil(t, survivor.ErrorMessage)
	})
}

func TestWorkItemRepo_ListWindows_PaginatesAllRows(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewWorkItemRepo(db, RepoConfig{})
		ctx := context.Background()

		// 110 days across all object types: 550 rows, past the internal
		// page size, so the result must span more than one page.
		windowStart := day(t, "2026-01-01")
		const days = 110
		keys := make([]model.WorkKey, 0, days*len(model.AllObjectTypes))
		for d := range days {
			for _, ot := range model.AllObjectTypes {
				keys = append(keys, model.WorkKey{
					Shop:       "acme",
					StartDate:  windowStart.AddDate(0, 0, d),
					ObjectType: ot,
				})
			}
		}

		created, err := repo.InsertIfAbsent(ctx, keys)
		require.NoError(t, err)
		require.Equal(t, len(keys), created)

		windowEnd := windowStart.AddDate(0, 0, days-1)
		all, err := repo.ListWindows(ctx, windowStart, windowEnd, nil)
		require.NoError(t, err)
		assert.Len(t, all, len(keys))

		// No row lost or duplicated across page boundaries.
		seen := make(map[model.WorkKey]struct{}, len(all))
		for _, item := range all {
			k := item.Key()
			k.StartDate = k.StartDate.UTC().Truncate(24 * time.Hour)
			if _, dup := seen[k]; dup {
				t.Fatalf("duplicate window in result: %s", k)
			}
			seen[k] = struct{}{}
		}

		orders := model.ObjectTypeOrders
		filtered, err := repo.ListWindows(ctx, windowStart, windowEnd, &orders)
		require.NoError(t, err)
		assert.Len(t, filtered, days)
	})
}

func TestWorkItemRepo_MarkFailed_DeadAfterMaxAttempts(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewWorkItemRepo(db, RepoConfig{MaxAttempts: 2})
		ctx := context.Background()

		key := model.WorkKey{Shop: "acme", StartDate: day(t, "2026-08-01"), ObjectType: model.ObjectTypeSKUs}
		_, err := repo.InsertIfAbsent(ctx, []model.WorkKey{key})
		require.NoError(t, err)

		claimed, err := repo.ClaimPending(ctx, key)
		require.NoError(t, err)

		status, err := repo.MarkFailed(ctx, claimed.ID, "upstream 503")
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, status)

		// Requeue without touching the attempt counter, as a retry does.
		_, err = db.ExecContext(ctx, "UPDATE sync_jobs SET status = 'pending' WHERE id = $1", claimed.ID)
		require.NoError(t, err)

		claimed, err = repo.ClaimPending(ctx, key)
		require.NoError(t, err)

		status, err = repo.MarkFailed(ctx, claimed.ID, "upstream 503 again")
		require.NoError(t, err)
		assert.Equal(t, model.StatusDead, status)

		item, err := repo.GetByKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, model.StatusDead, item.Status)
		assert.Equal(t, 2, item.Attempts)

		// Explicit opt-in reset is the only way back from dead.
		reset, err := repo.ResetDead(ctx, ListFilters{Shop: "acme"})
		require.NoError(t, err)
		assert.Equal(t, 1, reset)

		item, err = repo.GetByKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, item.Status)
		assert.Zero(t, item.Attempts)
	})
}
