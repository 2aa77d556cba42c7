// Package accounting implements the AccountingGateway port against the
// accounting platform's REST API.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/platform"
)

// maxResponseSize is the maximum allowed response size from the platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// apiDateLayout is the date format the platform expects on documents
const apiDateLayout = "2006-01-02"

// Adapter implements the AccountingGateway interface against the
// accounting platform's REST API.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	retry      platform.RetryPolicy
	logger     *zap.Logger
}

// NewAdapter creates a new accounting adapter with the given configuration
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
		logger:     logger.Named("accounting"),
	}, nil
}

// GetItem fetches an inventory item with its per-warehouse stock
func (a *Adapter) GetItem(ctx context.Context, id string) (*integration.Item, error) {
	var payload itemPayload
	if err := a.send(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.toDomainItem(), nil
}

// FindItemByReference finds an item by its merchant reference (SKU).
// Returns shared.ErrNotFound when no item carries the reference.
func (a *Adapter) FindItemByReference(ctx context.Context, reference string) (*integration.Item, error) {
	params := url.Values{}
	params.Set("reference", reference)

	var payloads []itemPayload
	if err := a.send(ctx, http.MethodGet, "/items?"+params.Encode(), nil, &payloads); err != nil {
		return nil, err
	}
	for i := range payloads {
		if payloads[i].Reference == reference {
			return payloads[i].toDomainItem(), nil
		}
	}
	return nil, fmt.Errorf("item with reference %q: %w", reference, shared.ErrNotFound)
}

// FindContactByEmail finds a contact by email.
// Returns shared.ErrNotFound when no contact matches.
func (a *Adapter) FindContactByEmail(ctx context.Context, email string) (*integration.Contact, error) {
	params := url.Values{}
	params.Set("email", email)

	var payloads []contactPayload
	if err := a.send(ctx, http.MethodGet, "/contacts?"+params.Encode(), nil, &payloads); err != nil {
		return nil, err
	}
	for i := range payloads {
		if strings.EqualFold(payloads[i].Email, email) {
			return payloads[i].toDomainContact(), nil
		}
	}
	return nil, fmt.Errorf("contact with email %q: %w", email, shared.ErrNotFound)
}

// CreateContact creates a contact
func (a *Adapter) CreateContact(ctx context.Context, input integration.ContactInput) (*integration.Contact, error) {
	var payload contactPayload
	if err := a.send(ctx, http.MethodPost, "/contacts", contactRequestFromInput(input), &payload); err != nil {
		return nil, err
	}
	return payload.toDomainContact(), nil
}

// UpdateContact updates an existing contact
func (a *Adapter) UpdateContact(ctx context.Context, id string, input integration.ContactInput) (*integration.Contact, error) {
	var payload contactPayload
	if err := a.send(ctx, http.MethodPut, "/contacts/"+url.PathEscape(id), contactRequestFromInput(input), &payload); err != nil {
		return nil, err
	}
	return payload.toDomainContact(), nil
}

// CreateInvoice creates an invoice
func (a *Adapter) CreateInvoice(ctx context.Context, input integration.InvoiceInput) (*integration.Invoice, error) {
	req := invoiceRequest{
		ContactID:     input.ContactID,
		Date:          input.Date.Format(apiDateLayout),
		ResolutionID:  input.ResolutionID,
		CostCenterID:  input.CostCenterID,
		SellerID:      input.SellerID,
		TemplateID:    input.TemplateID,
		WarehouseID:   input.WarehouseID,
		PaymentMethod: input.PaymentMethod,
		Observations:  input.Observations,
		Currency:      input.Currency,
	}
	for _, line := range input.Lines {
		req.Items = append(req.Items, invoiceItemRequest{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}

	var payload invoicePayload
	if err := a.send(ctx, http.MethodPost, "/invoices", req, &payload); err != nil {
		return nil, err
	}
	return payload.toDomainInvoice(), nil
}

// CreatePayment applies a payment to an invoice
func (a *Adapter) CreatePayment(ctx context.Context, input integration.PaymentInput) (*integration.Payment, error) {
	req := paymentRequest{
		InvoiceID:     input.InvoiceID,
		BankAccountID: input.BankAccountID,
		Amount:        input.Amount,
		Date:          input.Date.Format(apiDateLayout),
		PaymentMethod: input.PaymentMethod,
	}

	var payload idPayload
	if err := a.send(ctx, http.MethodPost, "/payments", req, &payload); err != nil {
		return nil, err
	}
	return &integration.Payment{ID: payload.ID}, nil
}

// CreateInventoryAdjustment records a warehouse stock adjustment
func (a *Adapter) CreateInventoryAdjustment(ctx context.Context, input integration.AdjustmentInput) (*integration.Adjustment, error) {
	req := adjustmentRequest{
		WarehouseID: input.WarehouseID,
		Date:        input.Date.Format(apiDateLayout),
	}
	for _, line := range input.Lines {
		req.Items = append(req.Items, adjustmentItemRequest{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	var payload idPayload
	if err := a.send(ctx, http.MethodPost, "/inventory-adjustments", req, &payload); err != nil {
		return nil, err
	}
	return &integration.Adjustment{ID: payload.ID}, nil
}

// CreateInventoryTransfer records a warehouse-to-warehouse transfer
func (a *Adapter) CreateInventoryTransfer(ctx context.Context, input integration.TransferInput) (*integration.Transfer, error) {
	req := transferRequest{
		OriginWarehouseID:      input.OriginWarehouseID,
		DestinationWarehouseID: input.DestinationWarehouseID,
		Date:                   input.Date.Format(apiDateLayout),
	}
	for _, line := range input.Lines {
		req.Items = append(req.Items, adjustmentItemRequest{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	var payload idPayload
	if err := a.send(ctx, http.MethodPost, "/warehouse-transfers", req, &payload); err != nil {
		return nil, err
	}
	return &integration.Transfer{ID: payload.ID}, nil
}

// ListWarehouses lists all warehouses
func (a *Adapter) ListWarehouses(ctx context.Context) ([]integration.Warehouse, error) {
	var payloads []warehousePayload
	if err := a.send(ctx, http.MethodGet, "/warehouses", nil, &payloads); err != nil {
		return nil, err
	}
	warehouses := make([]integration.Warehouse, 0, len(payloads))
	for _, p := range payloads {
		warehouses = append(warehouses, integration.Warehouse{ID: p.ID, Name: p.Name})
	}
	return warehouses, nil
}

// send issues one HTTP request with retries for throttled and
// server-side failures.
func (a *Adapter) send(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	return platform.Do(ctx, a.retry, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("accounting: failed to encode request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
		if err != nil {
			return fmt.Errorf("accounting: failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.config.Token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("accounting: request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("accounting: failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			a.logger.Warn("platform throttled request", zap.String("path", path))
			return fmt.Errorf("%w: %s", integration.ErrRateLimited, path)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("accounting %s: %w", path, shared.ErrNotFound)
		}
		if resp.StatusCode >= 400 {
			return classifyAPIError(resp.StatusCode, respBody)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("accounting: failed to parse response: %w", err)
			}
		}
		return nil
	})
}

// classifyAPIError maps known platform rejections to domain errors so
// the pipeline can handle them as soft failures.
func classifyAPIError(statusCode int, body []byte) error {
	var apiErr errorPayload
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message := strings.ToLower(apiErr.Message)
		if strings.Contains(message, "identification") && strings.Contains(message, "type") {
			return fmt.Errorf("%w: %s", integration.ErrMissingIdentificationType, apiErr.Message)
		}
	}
	return &platform.HTTPStatusError{StatusCode: statusCode, Body: string(body)}
}

// Ensure Adapter implements AccountingGateway
var _ integration.AccountingGateway = (*Adapter)(nil)
