package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/domain/model"
)

func testShops(t *testing.T, baseURL string) config.ShopRegistry {
	t.Helper()
	var shops config.ShopRegistry
	payload := fmt.Sprintf(`[{"name": "alpha", "base_url": %q, "token": "tok-a"}]`, baseURL)
	require.NoError(t, shops.UnmarshalText([]byte(payload)))
	return shops
}

func testConfig() config.UpstreamConfig {
	return config.UpstreamConfig{
		Timeout:              time.Second,
		PageSize:             2,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
		RetryMaxTries:        3,
	}
}

func testItem(objectType model.ObjectType) model.WorkItem {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return model.WorkItem{
		ID:         "job-1",
		Shop:       "alpha",
		ObjectType: objectType,
		StartDate:  day,
		EndDate:    day,
	}
}

func writeList(w http.ResponseWriter, n int, hasMore bool) {
	items := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, json.RawMessage(`{"id": "r"}`))
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "has_more": hasMore})
}

func TestClientExecute(t *testing.T) {
	t.Run("paginates until has_more is false", func(t *testing.T) {
		var pages []string
		var authHeader atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/orders", r.URL.Path)
			authHeader.Store(r.Header.Get("Authorization"))
			page := r.URL.Query().Get("page")
			pages = append(pages, page)
			writeList(w, 2, page != "3")
		}))
		defer srv.Close()

		client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig()})
		require.NoError(t, err)

		processed, err := client.Execute(context.Background(), testItem(model.ObjectTypeOrders))

		require.NoError(t, err)
		assert.Equal(t, 6, processed)
		assert.Equal(t, []string{"1", "2", "3"}, pages)
		assert.Equal(t, "Bearer tok-a", authHeader.Load())
	})

	t.Run("delivers pages to the sink", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeList(w, 3, false)
		}))
		defer srv.Close()

		var delivered int
		sink := func(ctx context.Context, shop string, objectType model.ObjectType, records []json.RawMessage) error {
			assert.Equal(t, "alpha", shop)
			assert.Equal(t, model.ObjectTypeRefunds, objectType)
			delivered += len(records)
			return nil
		}
		client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig(), Sink: sink})
		require.NoError(t, err)

		processed, err := client.Execute(context.Background(), testItem(model.ObjectTypeRefunds))

		require.NoError(t, err)
		assert.Equal(t, 3, processed)
		assert.Equal(t, 3, delivered)
	})

	t.Run("unknown shop is a permanent error", func(t *testing.T) {
		client, err := NewClient(ClientOptions{Shops: testShops(t, "https://alpha.example.com"), Config: testConfig()})
		require.NoError(t, err)

		item := testItem(model.ObjectTypeOrders)
		item.Shop = "ghost"
		_, err = client.Execute(context.Background(), item)

		require.Error(t, err)
		assert.Contains(t, err.Error(), `shop "ghost" is not registered`)
	})

	t.Run("retries server errors then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeList(w, 1, false)
		}))
		defer srv.Close()

		client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig()})
		require.NoError(t, err)

		processed, err := client.Execute(context.Background(), testItem(model.ObjectTypeOrders))

		require.NoError(t, err)
		assert.Equal(t, 1, processed)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig()})
		require.NoError(t, err)

		_, err = client.Execute(context.Background(), testItem(model.ObjectTypeOrders))

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestClientCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders/count":
			_ = json.NewEncoder(w).Encode(map[string]int{"count": 412})
		case "/api/skus/count":
			_ = json.NewEncoder(w).Encode(map[string]int{"count": 0})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig()})
	require.NoError(t, err)

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	count, err := client.CountOrders(context.Background(), "alpha", day, day.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, 412, count)

	expected, err := client.ExpectedRecords(context.Background(), testItem(model.ObjectTypeSKUs))
	require.NoError(t, err)
	assert.Zero(t, expected)
}

func TestClientSyncOrders(t *testing.T) {
	t.Run("chunk request passes offset and limit", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "100", r.URL.Query().Get("offset"))
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			assert.Empty(t, r.URL.Query().Get("page"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []json.RawMessage{
					json.RawMessage(`{"id": "o1", "refunded": true}`),
					json.RawMessage(`{"id": "o2"}`),
				},
				"has_more": false,
			})
		}))
		defer srv.Close()

		client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig()})
		require.NoError(t, err)

		day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		result, err := client.SyncOrders(context.Background(), "alpha", day, day, 100, 100)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.WithRefunds)
	})

	t.Run("whole window paginates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeList(w, 2, r.URL.Query().Get("page") == "1")
		}))
		defer srv.Close()

		client, err := NewClient(ClientOptions{Shops: testShops(t, srv.URL), Config: testConfig()})
		require.NoError(t, err)

		day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		result, err := client.SyncOrders(context.Background(), "alpha", day, day, 0, 0)

		require.NoError(t, err)
		assert.Equal(t, 4, result.Processed)
	})
}
