package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/domain/model"
	domainsync "github.com/merchkit/merchsync/internal/domain/sync"
)

// mockCounter answers upstream count queries.
type mockCounter struct {
	orders      int
	ordersErr   error
	countCalled int

	expected    map[string]int
	expectedErr error
}

func (m *mockCounter) CountOrders(ctx context.Context, shop string, start, end time.Time) (int, error) {
	m.countCalled++
	if m.ordersErr != nil {
		return 0, m.ordersErr
	}
	return m.orders, nil
}

func (m *mockCounter) ExpectedRecords(ctx context.Context, item model.WorkItem) (int, error) {
	if m.expectedErr != nil {
		return 0, m.expectedErr
	}
	return m.expected[item.ID], nil
}

// mockSyncer records the slices it was asked to transfer.
type mockSyncer struct {
	calls   []sliceCall
	perCall core.OrderSyncResult
	failAt  map[int]error // keyed by offset
}

type sliceCall struct {
	offset int
	limit  int
}

func (m *mockSyncer) SyncOrders(
	ctx context.Context,
	shop string,
	start, end time.Time,
	offset, limit int,
) (core.OrderSyncResult, error) {
	m.calls = append(m.calls, sliceCall{offset: offset, limit: limit})
	if err, ok := m.failAt[offset]; ok {
		return core.OrderSyncResult{}, err
	}
	return m.perCall, nil
}

// mockEstimates is an in-memory estimate cache.
type mockEstimates struct {
	values map[string]int
	getErr error
	setErr error
	sets   int
}

func (m *mockEstimates) key(shop string, start, end time.Time) string {
	return shop + start.Format(model.DateLayout) + end.Format(model.DateLayout)
}

func (m *mockEstimates) Get(ctx context.Context, shop string, start, end time.Time) (int, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.values[m.key(shop, start, end)]
	return v, ok, nil
}

func (m *mockEstimates) Set(ctx context.Context, shop string, start, end time.Time, estimate int) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = make(map[string]int)
	}
	m.values[m.key(shop, start, end)] = estimate
	m.sets++
	return nil
}

func smartSyncTestConfig() config.SmartSyncConfig {
	return config.SmartSyncConfig{
		EstimateTTL: 10 * time.Minute,
		ChunkPause:  0,
	}
}

func smartSyncRequest() SmartSyncRequest {
	return SmartSyncRequest{
		Shop:  "alpha",
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewSmartSyncService(t *testing.T) {
	t.Run("returns error when counter is nil", func(t *testing.T) {
		_, err := NewSmartSyncService(SmartSyncServiceOptions{
			Syncer: &mockSyncer{},
			Config: smartSyncTestConfig(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OrderCounter is required")
	})

	t.Run("returns error when syncer is nil", func(t *testing.T) {
		_, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter: &mockCounter{},
			Config:  smartSyncTestConfig(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OrderSyncer is required")
	})
}

func TestSmartSyncRun(t *testing.T) {
	t.Run("small estimate runs direct", func(t *testing.T) {
		counter := &mockCounter{orders: 299}
		syncer := &mockSyncer{perCall: core.OrderSyncResult{Processed: 299, WithRefunds: 12}}
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter: counter,
			Syncer:  syncer,
			Config:  smartSyncTestConfig(),
		})
		require.NoError(t, err)

		result, err := svc.Run(context.Background(), smartSyncRequest())

		require.NoError(t, err)
		assert.Equal(t, domainsync.StrategyDirect, result.Strategy)
		assert.Equal(t, 299, result.Processed)
		assert.Equal(t, 12, result.WithRefunds)
		require.Len(t, syncer.calls, 1)
		assert.Zero(t, syncer.calls[0].limit, "direct sync covers the whole window")
	})

	t.Run("threshold estimate runs chunked", func(t *testing.T) {
		counter := &mockCounter{orders: 300}
		syncer := &mockSyncer{perCall: core.OrderSyncResult{Processed: 100}}
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter: counter,
			Syncer:  syncer,
			Config:  smartSyncTestConfig(),
		})
		require.NoError(t, err)

		result, err := svc.Run(context.Background(), smartSyncRequest())

		require.NoError(t, err)
		assert.Equal(t, domainsync.StrategyChunked, result.Strategy)
		assert.Equal(t, 3, result.ChunksPlanned)
		assert.Equal(t, 300, result.Processed)
		require.Len(t, syncer.calls, 3)
		assert.Equal(t, sliceCall{offset: 0, limit: 100}, syncer.calls[0])
		assert.Equal(t, sliceCall{offset: 100, limit: 100}, syncer.calls[1])
		assert.Equal(t, sliceCall{offset: 200, limit: 100}, syncer.calls[2])
	})

	t.Run("chunk failure is counted and skipped", func(t *testing.T) {
		counter := &mockCounter{orders: 350}
		syncer := &mockSyncer{
			perCall: core.OrderSyncResult{Processed: 100},
			failAt:  map[int]error{100: errors.New("page fetch failed")},
		}
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter: counter,
			Syncer:  syncer,
			Config:  smartSyncTestConfig(),
		})
		require.NoError(t, err)

		result, err := svc.Run(context.Background(), smartSyncRequest())

		require.Error(t, err)
		assert.Equal(t, 4, result.ChunksPlanned)
		assert.Equal(t, 1, result.ChunksFailed)
		assert.Equal(t, 1, result.Errors)
		assert.Equal(t, 300, result.Processed, "remaining chunks still run")
		assert.Len(t, syncer.calls, 4)
	})

	t.Run("cached estimate skips upstream count", func(t *testing.T) {
		req := smartSyncRequest()
		estimates := &mockEstimates{}
		require.NoError(t, estimates.Set(context.Background(), req.Shop, req.Start, req.End, 50))
		counter := &mockCounter{orders: 9999}
		syncer := &mockSyncer{perCall: core.OrderSyncResult{Processed: 50}}
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter:   counter,
			Syncer:    syncer,
			Estimates: estimates,
			Config:    smartSyncTestConfig(),
		})
		require.NoError(t, err)

		result, err := svc.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 50, result.EstimatedUnits)
		assert.Zero(t, counter.countCalled)
	})

	t.Run("cache miss counts upstream and caches", func(t *testing.T) {
		estimates := &mockEstimates{}
		counter := &mockCounter{orders: 80}
		syncer := &mockSyncer{perCall: core.OrderSyncResult{Processed: 80}}
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter:   counter,
			Syncer:    syncer,
			Estimates: estimates,
			Config:    smartSyncTestConfig(),
		})
		require.NoError(t, err)

		_, err = svc.Run(context.Background(), smartSyncRequest())

		require.NoError(t, err)
		assert.Equal(t, 1, counter.countCalled)
		assert.Equal(t, 1, estimates.sets)
	})

	t.Run("cache errors fall through to live count", func(t *testing.T) {
		estimates := &mockEstimates{getErr: errors.New("redis down")}
		counter := &mockCounter{orders: 10}
		syncer := &mockSyncer{perCall: core.OrderSyncResult{Processed: 10}}
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter:   counter,
			Syncer:    syncer,
			Estimates: estimates,
			Config:    smartSyncTestConfig(),
		})
		require.NoError(t, err)

		result, err := svc.Run(context.Background(), smartSyncRequest())

		require.NoError(t, err)
		assert.Equal(t, 10, result.Processed)
		assert.Equal(t, 1, counter.countCalled)
	})

	t.Run("validates request", func(t *testing.T) {
		svc, err := NewSmartSyncService(SmartSyncServiceOptions{
			Counter: &mockCounter{},
			Syncer:  &mockSyncer{},
			Config:  smartSyncTestConfig(),
		})
		require.NoError(t, err)

		_, err = svc.Run(context.Background(), SmartSyncRequest{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "shop is required")
	})
}
