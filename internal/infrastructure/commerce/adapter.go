// Package commerce implements the CommerceGateway port against the
// store platform's REST API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/platform"
)

// maxResponseSize is the maximum allowed response size from the platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Adapter implements the CommerceGateway interface against the store
// platform's REST API.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	retry      platform.RetryPolicy
	logger     *zap.Logger
}

// NewAdapter creates a new commerce adapter with the given configuration
func NewAdapter(config *Config, retry platform.RetryPolicy, logger *zap.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		retry:      retry,
		logger:     logger.Named("commerce"),
	}, nil
}

// GetOrderByID fetches a single order
func (a *Adapter) GetOrderByID(ctx context.Context, id string) (*integration.SourceOrder, error) {
	var envelope orderEnvelope
	if err := a.get(ctx, "/orders/"+url.PathEscape(id), nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Order == nil {
		return nil, fmt.Errorf("order %s: %w", id, shared.ErrNotFound)
	}
	return envelope.Order.toDomainOrder(), nil
}

// ListOrders lists orders matching the query, one page at a time
func (a *Adapter) ListOrders(ctx context.Context, query integration.OrderQuery) (*integration.OrderPage, error) {
	params := url.Values{}
	if !query.UpdatedSince.IsZero() {
		params.Set("updated_at_min", query.UpdatedSince.Format(time.RFC3339))
	}
	if query.Status != "" {
		params.Set("status", query.Status)
	}
	if query.Cursor != "" {
		params.Set("page", query.Cursor)
	}
	if query.PageSize > 0 {
		params.Set("limit", strconv.Itoa(query.PageSize))
	}

	var envelope ordersEnvelope
	if err := a.get(ctx, "/orders", params, &envelope); err != nil {
		return nil, err
	}

	page := &integration.OrderPage{NextCursor: envelope.NextPage}
	for i := range envelope.Orders {
		page.Orders = append(page.Orders, *envelope.Orders[i].toDomainOrder())
	}
	return page, nil
}

// ListCustomers lists customers, one page at a time
func (a *Adapter) ListCustomers(ctx context.Context, cursor string, pageSize int) (*integration.CustomerPage, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("page", cursor)
	}
	if pageSize > 0 {
		params.Set("limit", strconv.Itoa(pageSize))
	}

	var envelope customersEnvelope
	if err := a.get(ctx, "/customers", params, &envelope); err != nil {
		return nil, err
	}

	page := &integration.CustomerPage{NextCursor: envelope.NextPage}
	for i := range envelope.Customers {
		page.Customers = append(page.Customers, envelope.Customers[i].toDomainCustomer())
	}
	return page, nil
}

// ListProducts lists products, one page at a time
func (a *Adapter) ListProducts(ctx context.Context, cursor string, pageSize int) (*integration.ProductPage, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("page", cursor)
	}
	if pageSize > 0 {
		params.Set("limit", strconv.Itoa(pageSize))
	}

	var envelope productsEnvelope
	if err := a.get(ctx, "/products", params, &envelope); err != nil {
		return nil, err
	}

	page := &integration.ProductPage{NextCursor: envelope.NextPage}
	for _, p := range envelope.Products {
		product := integration.SourceProduct{ID: p.ID, Title: p.Title}
		for _, v := range p.Variants {
			if v.SKU != "" {
				product.SKUs = append(product.SKUs, v.SKU)
			}
		}
		page.Products = append(page.Products, product)
	}
	return page, nil
}

// AddOrderTag appends a tag to an order on the platform
func (a *Adapter) AddOrderTag(ctx context.Context, orderID, tag string) error {
	body := tagRequest{Tag: tag}
	return a.send(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/tags", body, nil)
}

// get issues a GET request with query parameters
func (a *Adapter) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := path
	if len(params) > 0 {
		endpoint = path + "?" + params.Encode()
	}
	return a.send(ctx, http.MethodGet, endpoint, nil, out)
}

// send issues one HTTP request with retries for throttled and
// server-side failures.
func (a *Adapter) send(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	return platform.Do(ctx, a.retry, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("commerce: failed to encode request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
		if err != nil {
			return fmt.Errorf("commerce: failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Access-Token", a.config.Token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("commerce: request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("commerce: failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			a.logger.Warn("platform throttled request", zap.String("path", path))
			return fmt.Errorf("%w: %s", integration.ErrRateLimited, path)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("commerce %s: %w", path, shared.ErrNotFound)
		}
		if resp.StatusCode >= 400 {
			return &platform.HTTPStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("commerce: failed to parse response: %w", err)
			}
		}
		return nil
	})
}

// Ensure Adapter implements CommerceGateway
var _ integration.CommerceGateway = (*Adapter)(nil)
