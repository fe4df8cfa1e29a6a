// Package upstream provides the HTTP client for the per-shop commerce APIs.
// It implements the executor, counter, and syncer ports the services depend
// on: one client instance serves every registered shop.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/merchkit/merchsync/config"
	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/domain/model"
	apperrors "github.com/merchkit/merchsync/internal/errors"
)

// RecordSink consumes a page of raw upstream records. Implementations decide
// where synced records land; the client only moves them.
type RecordSink func(ctx context.Context, shop string, objectType model.ObjectType, records []json.RawMessage) error

// ClientOptions configures the upstream client.
type ClientOptions struct {
	Shops      config.ShopRegistry // Required: shop name to base URL and token
	Config     config.UpstreamConfig
	Sink       RecordSink   // Optional: page consumer, nil discards after counting
	HTTPClient *http.Client // Optional: defaults to a timeout-bounded client
	Logger     *slog.Logger // Optional: structured logger
}

// Client talks to the upstream shop APIs with bearer-token auth, bounded
// pagination, and retry with exponential backoff on transient failures.
type Client struct {
	shops  config.ShopRegistry
	config config.UpstreamConfig
	sink   RecordSink
	client *http.Client
	logger *slog.Logger
	retry  core.RetryPolicy
}

// NewClient constructs an upstream client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Shops.Len() == 0 {
		return nil, fmt.Errorf("at least one shop is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "upstream_client")
	}

	return &Client{
		shops:  opts.Shops,
		config: opts.Config,
		sink:   opts.Sink,
		client: hc,
		logger: logger,
		retry: core.RetryPolicy{
			InitialInterval: opts.Config.RetryInitialInterval,
			MaxInterval:     opts.Config.RetryMaxInterval,
			MaxTries:        opts.Config.RetryMaxTries,
		},
	}, nil
}

// listResponse is the upstream listing envelope.
type listResponse struct {
	Items   []json.RawMessage `json:"items"`
	HasMore bool              `json:"has_more"`
}

// countResponse is the upstream count envelope.
type countResponse struct {
	Count int `json:"count"`
}

// orderFlags is the subset of an order record the syncer inspects.
type orderFlags struct {
	Refunded bool `json:"refunded"`
}

// Execute pulls every page of the job's window from the upstream and hands
// each page to the sink. Returns the number of records transferred.
func (c *Client) Execute(ctx context.Context, item model.WorkItem) (int, error) {
	shop, ok := c.shops.Lookup(item.Shop)
	if !ok {
		return 0, core.Permanent(apperrors.Upstreamf("shop %q is not registered", item.Shop))
	}

	processed := 0
	page := 1
	for {
		out, err := c.fetchList(ctx, shop, string(item.ObjectType), listQuery{
			start: item.StartDate,
			end:   item.EndDate,
			page:  page,
			limit: c.pageSize(),
		})
		if err != nil {
			return processed, fmt.Errorf("fetch %s page %d for %s: %w", item.ObjectType, page, item.Shop, err)
		}

		if c.sink != nil && len(out.Items) > 0 {
			if err := c.sink(ctx, item.Shop, item.ObjectType, out.Items); err != nil {
				return processed, fmt.Errorf("deliver %s page %d for %s: %w", item.ObjectType, page, item.Shop, err)
			}
		}
		processed += len(out.Items)

		if !out.HasMore || len(out.Items) == 0 {
			return processed, nil
		}
		page++
	}
}

// CountOrders returns the upstream order count for a shop window.
func (c *Client) CountOrders(ctx context.Context, shopName string, start, end time.Time) (int, error) {
	return c.count(ctx, shopName, string(model.ObjectTypeOrders), start, end)
}

// ExpectedRecords returns the upstream record count for one job's window and
// object type.
func (c *Client) ExpectedRecords(ctx context.Context, item model.WorkItem) (int, error) {
	return c.count(ctx, item.Shop, string(item.ObjectType), item.StartDate, item.EndDate)
}

// SyncOrders transfers a slice of a shop's orders. A limit of zero or less
// covers the whole window page by page; otherwise offset and limit select
// one chunk.
func (c *Client) SyncOrders(
	ctx context.Context,
	shopName string,
	start, end time.Time,
	offset, limit int,
) (core.OrderSyncResult, error) {
	shop, ok := c.shops.Lookup(shopName)
	if !ok {
		return core.OrderSyncResult{}, core.Permanent(apperrors.Upstreamf("shop %q is not registered", shopName))
	}

	var result core.OrderSyncResult
	if limit > 0 {
		out, err := c.fetchList(ctx, shop, string(model.ObjectTypeOrders), listQuery{
			start:  start,
			end:    end,
			offset: offset,
			limit:  limit,
		})
		if err != nil {
			return result, fmt.Errorf("fetch orders slice %d+%d for %s: %w", offset, limit, shopName, err)
		}
		return c.consumeOrders(ctx, shopName, out.Items, result)
	}

	page := 1
	for {
		out, err := c.fetchList(ctx, shop, string(model.ObjectTypeOrders), listQuery{
			start: start,
			end:   end,
			page:  page,
			limit: c.pageSize(),
		})
		if err != nil {
			return result, fmt.Errorf("fetch orders page %d for %s: %w", page, shopName, err)
		}

		result, err = c.consumeOrders(ctx, shopName, out.Items, result)
		if err != nil {
			return result, err
		}
		if !out.HasMore || len(out.Items) == 0 {
			return result, nil
		}
		page++
	}
}

func (c *Client) consumeOrders(
	ctx context.Context,
	shopName string,
	items []json.RawMessage,
	result core.OrderSyncResult,
) (core.OrderSyncResult, error) {
	if c.sink != nil && len(items) > 0 {
		if err := c.sink(ctx, shopName, model.ObjectTypeOrders, items); err != nil {
			return result, fmt.Errorf("deliver orders for %s: %w", shopName, err)
		}
	}
	for _, raw := range items {
		result.Processed++
		var flags orderFlags
		if err := json.Unmarshal(raw, &flags); err == nil && flags.Refunded {
			result.WithRefunds++
		}
	}
	return result, nil
}

func (c *Client) count(ctx context.Context, shopName, objectType string, start, end time.Time) (int, error) {
	shop, ok := c.shops.Lookup(shopName)
	if !ok {
		return 0, core.Permanent(apperrors.Upstreamf("shop %q is not registered", shopName))
	}

	endpoint, err := url.JoinPath(shop.BaseURL, "api", objectType, "count")
	if err != nil {
		return 0, fmt.Errorf("build count url: %w", err)
	}

	query := url.Values{}
	query.Set("start", start.UTC().Format(model.DateLayout))
	query.Set("end", end.UTC().Format(model.DateLayout))

	var out countResponse
	if err := c.getJSON(ctx, shop, endpoint+"?"+query.Encode(), &out); err != nil {
		return 0, fmt.Errorf("count %s for %s: %w", objectType, shopName, err)
	}
	return out.Count, nil
}

// listQuery carries the pagination parameters for one listing request.
// Either page or offset addressing is used, never both.
type listQuery struct {
	start, end time.Time
	page       int
	offset     int
	limit      int
}

func (c *Client) fetchList(
	ctx context.Context,
	shop config.Shop,
	objectType string,
	q listQuery,
) (*listResponse, error) {
	endpoint, err := url.JoinPath(shop.BaseURL, "api", objectType)
	if err != nil {
		return nil, fmt.Errorf("build list url: %w", err)
	}

	query := url.Values{}
	query.Set("start", q.start.UTC().Format(model.DateLayout))
	query.Set("end", q.end.UTC().Format(model.DateLayout))
	query.Set("limit", strconv.Itoa(q.limit))
	if q.page > 0 {
		query.Set("page", strconv.Itoa(q.page))
	} else {
		query.Set("offset", strconv.Itoa(q.offset))
	}

	var out listResponse
	if err := c.getJSON(ctx, shop, endpoint+"?"+query.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs an authenticated GET with retry. Rate limiting and server
// errors are retried under the backoff policy; other client errors are
// permanent so a bad request never burns the retry budget.
func (c *Client) getJSON(ctx context.Context, shop config.Shop, endpoint string, out any) error {
	return c.retry.Retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return core.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if shop.Token != "" {
			req.Header.Set("Authorization", "Bearer "+shop.Token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("upstream request failed: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if err := c.checkStatus(resp); err != nil {
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return core.Permanent(fmt.Errorf("decode upstream response: %w", err))
		}
		return nil
	})
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		// Transient; the retry policy backs off and tries again.
		if c.logger != nil {
			c.logger.Debug("retryable upstream status", "status", resp.Status)
		}
		return apperrors.Upstreamf("upstream returned %s", resp.Status)
	default:
		return core.Permanent(apperrors.Upstreamf("upstream returned %s", resp.Status))
	}
}

func (c *Client) pageSize() int {
	if c.config.PageSize > 0 {
		return c.config.PageSize
	}
	return 250
}
