package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/domain/model"
)

func gapFillTestConfig() config.GapFillConfig {
	return config.GapFillConfig{
		InsertBatchSize:      100,
		LookbackDays:         7,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
		RetryMaxTries:        2,
	}
}

func TestNewGapFillService(t *testing.T) {
	t.Run("returns error when repo is nil", func(t *testing.T) {
		_, err := NewGapFillService(GapFillServiceOptions{
			Shops:  []string{"alpha"},
			Config: gapFillTestConfig(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WorkItemRepository is required")
	})

	t.Run("returns error without shops", func(t *testing.T) {
		_, err := NewGapFillService(GapFillServiceOptions{
			Repo:   &mockWorkItemRepo{},
			Config: gapFillTestConfig(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one shop")
	})
}

func TestGapFillFill(t *testing.T) {
	window := func(day int) time.Time {
		return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
	}

	t.Run("creates jobs for every missing window", func(t *testing.T) {
		repo := &mockWorkItemRepo{}
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   repo,
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha", "beta"},
		})
		require.NoError(t, err)

		stats, err := svc.Fill(context.Background(), FillRequest{
			Start: window(1),
			End:   window(2),
		})

		require.NoError(t, err)
		// 2 shops x 2 days x 5 object types
		assert.Equal(t, 20, stats.Expected)
		assert.Zero(t, stats.Existing)
		assert.Equal(t, 20, stats.Created)
		assert.Zero(t, stats.Remaining)
		assert.Len(t, repo.insertedKeys, 20)
	})

	t.Run("existing jobs are not recreated regardless of status", func(t *testing.T) {
		existing := pendingJob("j1", "alpha", 1, model.ObjectTypeOrders)
		existing.Status = model.StatusFailed
		repo := &mockWorkItemRepo{windows: []model.WorkItem{existing}}
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   repo,
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha"},
		})
		require.NoError(t, err)

		stats, err := svc.Fill(context.Background(), FillRequest{
			Start:      window(1),
			End:        window(1),
			ObjectType: model.ObjectTypeOrders,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, stats.Expected)
		assert.Equal(t, 1, stats.Existing)
		assert.Zero(t, stats.Created)
		assert.Empty(t, repo.insertedKeys)
	})

	t.Run("scopes to a single object type", func(t *testing.T) {
		repo := &mockWorkItemRepo{}
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   repo,
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha"},
		})
		require.NoError(t, err)

		stats, err := svc.Fill(context.Background(), FillRequest{
			Start:      window(1),
			End:        window(3),
			ObjectType: model.ObjectTypeSKUs,
		})

		require.NoError(t, err)
		assert.Equal(t, 3, stats.Expected)
		for _, key := range repo.insertedKeys {
			assert.Equal(t, model.ObjectTypeSKUs, key.ObjectType)
		}
	})

	t.Run("rejects unknown shop", func(t *testing.T) {
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   &mockWorkItemRepo{},
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha"},
		})
		require.NoError(t, err)

		_, err = svc.Fill(context.Background(), FillRequest{
			Start: window(1),
			End:   window(1),
			Shops: []string{"ghost"},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown shop "ghost"`)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   &mockWorkItemRepo{},
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha"},
		})
		require.NoError(t, err)

		_, err = svc.Fill(context.Background(), FillRequest{
			Start: window(5),
			End:   window(1),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "end must not be before start")
	})

	t.Run("defaults to lookback window", func(t *testing.T) {
		repo := &mockWorkItemRepo{}
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   repo,
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha"},
		})
		require.NoError(t, err)

		stats, err := svc.Fill(context.Background(), FillRequest{})

		require.NoError(t, err)
		// 1 shop x 7 days x 5 object types
		assert.Equal(t, 35, stats.Expected)
	})

	t.Run("insert failure reports remaining keys", func(t *testing.T) {
		repo := &mockWorkItemRepo{insertErr: errors.New("db down")}
		svc, err := NewGapFillService(GapFillServiceOptions{
			Repo:   repo,
			Config: gapFillTestConfig(),
			Shops:  []string{"alpha"},
		})
		require.NoError(t, err)

		stats, err := svc.Fill(context.Background(), FillRequest{
			Start:      window(1),
			End:        window(1),
			ObjectType: model.ObjectTypeOrders,
		})

		require.Error(t, err)
		assert.Equal(t, 1, stats.Expected)
		assert.Zero(t, stats.Created)
		assert.Equal(t, 1, stats.Remaining)
	})
}
