package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// reviewTag is applied to the source order when a blocked transfer
// decision needs manual operator attention.
const reviewTag = "sync-review"

// invoiceNumberMetadataKey stores the invoice number on the order mapping.
const invoiceNumberMetadataKey = "invoice_number"

// sourceGIDMetadataKey stores the canonical source identifier encoding
// on the order mapping.
const sourceGIDMetadataKey = "source_gid"

// OrderPipeline turns a commerce order into an accounting contact,
// invoice, payment and inventory movement. All trigger surfaces
// (webhook, manual retry, poller, bulk job) call Process with the same
// order representation; each side-effecting step acquires its own
// idempotency key so concurrent triggers and retries are safe.
type OrderPipeline struct {
	storeID      string
	commerce     integration.CommerceGateway
	accounting   integration.AccountingGateway
	mappings     integration.MappingRepository
	guard        shared.IdempotencyGuard
	configs      integration.ConfigResolver
	transfers    *TransferResolver
	syncedOrders integration.SyncedOrderRepository
	audit        integration.AuditSink
	logger       *zap.Logger
}

// NewOrderPipeline creates a new OrderPipeline
func NewOrderPipeline(
	storeID string,
	commerce integration.CommerceGateway,
	accounting integration.AccountingGateway,
	mappings integration.MappingRepository,
	guard shared.IdempotencyGuard,
	configs integration.ConfigResolver,
	transfers *TransferResolver,
	syncedOrders integration.SyncedOrderRepository,
	audit integration.AuditSink,
	logger *zap.Logger,
) *OrderPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderPipeline{
		storeID:      storeID,
		commerce:     commerce,
		accounting:   accounting,
		mappings:     mappings,
		guard:        guard,
		configs:      configs,
		transfers:    transfers,
		syncedOrders: syncedOrders,
		audit:        audit,
		logger:       logger,
	}
}

// ProcessByID fetches the order from the commerce platform and runs the
// pipeline. Used by the webhook and manual retry surfaces.
func (p *OrderPipeline) ProcessByID(ctx context.Context, orderID string) (*integration.SyncOutcome, error) {
	order, err := p.commerce.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order %q: %w", orderID, err)
	}
	return p.Process(ctx, order)
}

// Process runs the order through the pipeline stages:
// Validating, ContactResolution, TransferResolution, InvoiceCreation,
// PaymentCreation, InventoryAdjustment. Soft failures return a
// structured outcome; adapter and storage errors are audited, mark the
// in-flight idempotency key failed, and propagate.
func (p *OrderPipeline) Process(ctx context.Context, order *integration.SourceOrder) (*integration.SyncOutcome, error) {
	cfg, err := p.configs.Resolve(ctx, p.storeID)
	if err != nil {
		return nil, fmt.Errorf("resolve store config: %w", err)
	}

	// Validating
	if cfg.OrderSyncMode == integration.OrderSyncModeOff {
		return integration.NotHandled(integration.ReasonSyncDisabled), nil
	}
	invoiceMode := cfg.OrderSyncMode == integration.OrderSyncModeInvoice
	if missing := order.MissingRequiredFields(invoiceMode); len(missing) > 0 {
		out := integration.NotHandled(integration.ReasonMissingOrderFields)
		out.MissingFields = missing
		return out, nil
	}
	if cfg.OrderSyncMode == integration.OrderSyncModeDBOnly {
		if err := p.persistSyncedOrder(ctx, order); err != nil {
			return nil, err
		}
		return &integration.SyncOutcome{Handled: true}, nil
	}
	invoiceEnabled := invoiceMode && cfg.Invoice.Enabled
	if invoiceEnabled && (cfg.Invoice.ResolutionID == "" || cfg.Invoice.PaymentMethod == "") {
		return integration.NotHandled(integration.ReasonMissingInvoiceSettings), nil
	}

	outcome := &integration.SyncOutcome{Handled: true}

	// ContactResolution
	contactID, softReason, err := p.resolveContact(ctx, order)
	if err != nil {
		return nil, err
	}
	if softReason != "" {
		return integration.NotHandled(softReason), nil
	}
	outcome.ContactID = contactID
	if cfg.OrderSyncMode == integration.OrderSyncModeContactOnly {
		if err := p.persistSyncedOrder(ctx, order); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	// TransferResolution
	decision, err := p.transfers.Resolve(ctx, order, cfg)
	if err != nil {
		p.auditError(ctx, "transfer", order.ID, err)
		return nil, err
	}
	outcome.Transfer = decision
	if decision.Blocked {
		if decision.Reason == integration.ReasonAlreadyProcessing {
			// Guard outcome from a concurrent trigger; no tagging.
			return integration.NotHandled(integration.ReasonAlreadyProcessing), nil
		}
		if cfg.TransferEnabled {
			p.tagForReview(ctx, order)
			out := integration.NotHandled(decision.Reason)
			out.Transfer = decision
			return out, nil
		}
	}
	warehouseID := decision.ChosenWarehouseID
	if warehouseID == "" {
		warehouseID = cfg.DefaultWarehouseID
	}

	// InvoiceCreation
	if invoiceEnabled {
		ref, softReason, err := p.createInvoice(ctx, order, cfg, contactID, warehouseID)
		if err != nil {
			return nil, err
		}
		if softReason != "" {
			return integration.NotHandled(softReason), nil
		}
		outcome.Invoice = ref
		if ref.Reused {
			outcome.Skipped = integration.ReasonAlreadyCompleted
		}
	}

	// PaymentCreation
	if outcome.Invoice != nil && order.IsPaid() && cfg.ApplyPayment {
		payment, warning, err := p.createPayment(ctx, order, cfg, outcome.Invoice)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			outcome.Warnings = append(outcome.Warnings, warning)
		}
		outcome.Payment = payment
	}

	// InventoryAdjustment
	adjustment, err := p.adjustInventory(ctx, order, warehouseID)
	if err != nil {
		return nil, err
	}
	outcome.Adjustment = adjustment

	if err := p.persistSyncedOrder(ctx, order); err != nil {
		return nil, err
	}
	p.auditSuccess(ctx, "order", order.ID)
	return outcome, nil
}

// resolveContact finds or creates the accounting contact for the order's
// customer and persists the contact mapping. An active e-invoice
// override takes precedence over the raw customer fields.
func (p *OrderPipeline) resolveContact(ctx context.Context, order *integration.SourceOrder) (string, integration.Reason, error) {
	customer := order.Customer
	input := integration.ContactInput{
		Name:           customer.FullName(),
		Email:          customer.Email,
		Phone:          customer.Phone,
		Identification: customer.Identification,
		Address:        customer.Address,
	}

	if ei := order.EInvoice; ei != nil && ei.Active {
		if !ei.Complete() {
			return "", integration.ReasonMissingEInvoiceData, nil
		}
		input.Name = ei.FiscalName
		input.Identification = ei.Identification
		input.IdentificationType = ei.IdentificationType
		if ei.Email != "" {
			input.Email = ei.Email
		}
		input.Address = ei.Address
	}

	if input.Email == "" {
		return "", integration.ReasonMissingCustomerEmail, nil
	}
	input.Identification = integration.FallbackIdentification(input.Identification, customer.Phone)

	contact, err := p.accounting.FindContactByEmail(ctx, input.Email)
	switch {
	case err == nil:
		contact, err = p.accounting.UpdateContact(ctx, contact.ID, input)
	case errors.Is(err, shared.ErrNotFound):
		contact, err = p.accounting.CreateContact(ctx, input)
	}
	if err != nil {
		if errors.Is(err, integration.ErrMissingIdentificationType) {
			return "", integration.ReasonMissingIdentificationType, nil
		}
		p.auditError(ctx, "contact", order.ID, err)
		return "", "", fmt.Errorf("resolve contact %q: %w", input.Email, err)
	}

	mapping, mErr := integration.NewEntityMapping(integration.EntityTypeContact, input.Email, contact.ID)
	if mErr != nil {
		return "", "", mErr
	}
	if err := p.mappings.Save(ctx, mapping); err != nil {
		return "", "", fmt.Errorf("save contact mapping: %w", err)
	}
	return contact.ID, "", nil
}

// createInvoice builds and creates the invoice under the invoice
// idempotency key, reusing the stored mapping when the key already
// completed.
func (p *OrderPipeline) createInvoice(ctx context.Context, order *integration.SourceOrder, cfg *integration.StoreConfig, contactID, warehouseID string) (*integration.InvoiceRef, integration.Reason, error) {
	key := integration.StepKey(integration.StepOpInvoice, order.ID)

	acq, err := p.guard.Acquire(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("acquire invoice key: %w", err)
	}
	if !acq.Acquired {
		if acq.Status == shared.IdempotencyStatusCompleted {
			mapping, err := p.mappings.GetBySourceID(ctx, integration.EntityTypeOrder, order.ID)
			if err != nil {
				return nil, "", fmt.Errorf("load invoice mapping: %w", err)
			}
			return &integration.InvoiceRef{
				DestinationID: mapping.DestinationID,
				Number:        mapping.Metadata[invoiceNumberMetadataKey],
				Reused:        true,
			}, "", nil
		}
		return nil, integration.ReasonAlreadyProcessing, nil
	}

	lines := make([]integration.InvoiceLine, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		mapping, err := p.mappings.GetBySourceID(ctx, integration.EntityTypeItem, li.SKU)
		if err != nil {
			if errors.Is(err, integration.ErrMappingNotFound) {
				// Unmapped lines are dropped, not retried as a unit.
				p.logger.Warn("invoice line skipped, no item mapping",
					zap.String("order_id", order.ID), zap.String("sku", li.SKU))
				continue
			}
			return nil, "", p.failStep(ctx, key, "invoice", order.ID, err)
		}
		lines = append(lines, integration.InvoiceLine{
			ItemID:   mapping.DestinationID,
			Quantity: quantityOf(li),
			Price:    li.EffectivePrice(),
		})
	}

	invoice, err := p.accounting.CreateInvoice(ctx, integration.InvoiceInput{
		ContactID:     contactID,
		Date:          order.CreatedAt,
		ResolutionID:  cfg.Invoice.ResolutionID,
		CostCenterID:  cfg.Invoice.CostCenterID,
		SellerID:      cfg.Invoice.SellerID,
		TemplateID:    cfg.Invoice.TemplateID,
		WarehouseID:   warehouseID,
		PaymentMethod: cfg.Invoice.PaymentMethod,
		Observations:  renderObservations(cfg.Invoice.ObservationsTemplate, order),
		Currency:      order.Currency,
		Lines:         lines,
	})
	if err != nil {
		return nil, "", p.failStep(ctx, key, "invoice", order.ID, err)
	}

	mapping, mErr := integration.NewEntityMapping(integration.EntityTypeOrder, order.ID, invoice.ID)
	if mErr != nil {
		return nil, "", p.failStep(ctx, key, "invoice", order.ID, mErr)
	}
	number := invoice.Number.Display()
	mapping.SetMetadata(invoiceNumberMetadataKey, number)
	mapping.SetMetadata(sourceGIDMetadataKey,
		shared.NewExternalID(shared.SystemCommerce, "order", order.ID).Canonical())
	if err := p.mappings.Save(ctx, mapping); err != nil {
		return nil, "", p.failStep(ctx, key, "invoice", order.ID, err)
	}

	if err := p.guard.Mark(ctx, key, shared.IdempotencyStatusCompleted, nil); err != nil {
		p.logger.Error("mark invoice key", zap.String("order_id", order.ID), zap.Error(err))
	}
	return &integration.InvoiceRef{DestinationID: invoice.ID, Number: number}, "", nil
}

// createPayment applies a payment to the invoice when a bank account
// resolves. A missing bank account is a warning, not a failure; the
// gateway-to-bank-account mapping takes precedence over the store default.
func (p *OrderPipeline) createPayment(ctx context.Context, order *integration.SourceOrder, cfg *integration.StoreConfig, invoice *integration.InvoiceRef) (*integration.PaymentRef, string, error) {
	bankAccountID := cfg.DefaultBankAccountID
	if order.Gateway != "" {
		mapping, err := p.mappings.GetBySourceID(ctx, integration.EntityTypeBankAccount, order.Gateway)
		switch {
		case err == nil:
			bankAccountID = mapping.DestinationID
		case !errors.Is(err, integration.ErrMappingNotFound):
			return nil, "", fmt.Errorf("resolve bank account mapping: %w", err)
		}
	}
	if bankAccountID == "" {
		return nil, "no bank account resolved for payment", nil
	}

	key := integration.StepKey(integration.StepOpPayment, order.ID)
	acq, err := p.guard.Acquire(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("acquire payment key: %w", err)
	}
	if !acq.Acquired {
		if acq.Status == shared.IdempotencyStatusCompleted {
			mapping, err := p.mappings.GetBySourceID(ctx, integration.EntityTypePayment, order.ID)
			if err == nil {
				return &integration.PaymentRef{DestinationID: mapping.DestinationID, BankAccountID: bankAccountID}, "", nil
			}
		}
		return nil, "payment already in flight", nil
	}

	payment, err := p.accounting.CreatePayment(ctx, integration.PaymentInput{
		InvoiceID:     invoice.DestinationID,
		BankAccountID: bankAccountID,
		Amount:        order.TotalPrice,
		Date:          order.CreatedAt,
		PaymentMethod: cfg.Invoice.PaymentMethod,
	})
	if err != nil {
		return nil, "", p.failStep(ctx, key, "payment", order.ID, err)
	}

	mapping, mErr := integration.NewEntityMapping(integration.EntityTypePayment, order.ID, payment.ID)
	if mErr != nil {
		return nil, "", p.failStep(ctx, key, "payment", order.ID, mErr)
	}
	if err := p.mappings.Save(ctx, mapping); err != nil {
		return nil, "", p.failStep(ctx, key, "payment", order.ID, err)
	}
	if err := p.guard.Mark(ctx, key, shared.IdempotencyStatusCompleted, nil); err != nil {
		p.logger.Error("mark payment key", zap.String("order_id", order.ID), zap.Error(err))
	}
	return &integration.PaymentRef{DestinationID: payment.ID, BankAccountID: bankAccountID}, "", nil
}

// adjustInventory issues a negative stock adjustment for every mapped
// line item. Unmapped items are recorded as missing and excluded; the
// adjustment proceeds for the rest.
func (p *OrderPipeline) adjustInventory(ctx context.Context, order *integration.SourceOrder, warehouseID string) (*integration.AdjustmentRef, error) {
	lines := make([]integration.AdjustmentLine, 0, len(order.LineItems))
	var missing []string
	for _, li := range order.LineItems {
		mapping, err := p.mappings.GetBySourceID(ctx, integration.EntityTypeItem, li.SKU)
		if err != nil {
			if errors.Is(err, integration.ErrMappingNotFound) {
				missing = append(missing, li.SKU)
				continue
			}
			return nil, fmt.Errorf("resolve item mapping %q: %w", li.SKU, err)
		}
		lines = append(lines, integration.AdjustmentLine{
			ItemID:   mapping.DestinationID,
			Quantity: quantityOf(li).Neg(),
		})
	}
	if len(lines) == 0 {
		return &integration.AdjustmentRef{WarehouseID: warehouseID, MissingItems: missing}, nil
	}

	key := integration.StepKey(integration.StepOpInventoryAdjust, order.ID)
	acq, err := p.guard.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire inventory-adjust key: %w", err)
	}
	if !acq.Acquired {
		return &integration.AdjustmentRef{WarehouseID: warehouseID, AdjustedItems: len(lines), MissingItems: missing}, nil
	}

	adjustment, err := p.accounting.CreateInventoryAdjustment(ctx, integration.AdjustmentInput{
		WarehouseID: warehouseID,
		Date:        order.CreatedAt,
		Lines:       lines,
	})
	if err != nil {
		return nil, p.failStep(ctx, key, "inventory-adjust", order.ID, err)
	}
	if err := p.guard.Mark(ctx, key, shared.IdempotencyStatusCompleted, nil); err != nil {
		p.logger.Error("mark inventory-adjust key", zap.String("order_id", order.ID), zap.Error(err))
	}
	return &integration.AdjustmentRef{
		DestinationID: adjustment.ID,
		WarehouseID:   warehouseID,
		AdjustedItems: len(lines),
		MissingItems:  missing,
	}, nil
}

// failStep audits a hard failure and marks the step key failed so a
// later retry can re-acquire it, then returns the wrapped error.
func (p *OrderPipeline) failStep(ctx context.Context, key, entity, orderID string, cause error) error {
	p.auditError(ctx, entity, orderID, cause)
	if err := p.guard.Mark(ctx, key, shared.IdempotencyStatusFailed, cause); err != nil {
		p.logger.Error("mark step key failed",
			zap.String("key", key), zap.String("order_id", orderID), zap.Error(err))
	}
	return fmt.Errorf("%s step for order %q: %w", entity, orderID, cause)
}

func (p *OrderPipeline) persistSyncedOrder(ctx context.Context, order *integration.SourceOrder) error {
	record := &integration.SyncedOrder{
		OrderID:         order.ID,
		OrderName:       order.Name,
		CustomerEmail:   order.Customer.Email,
		CustomerName:    order.Customer.FullName(),
		Currency:        order.Currency,
		Total:           order.TotalPrice,
		FinancialStatus: order.FinancialStatus,
		SyncedAt:        time.Now(),
	}
	if err := p.syncedOrders.Save(ctx, record); err != nil {
		return fmt.Errorf("persist synced order %q: %w", order.ID, err)
	}
	return nil
}

func (p *OrderPipeline) tagForReview(ctx context.Context, order *integration.SourceOrder) {
	if err := p.commerce.AddOrderTag(ctx, order.ID, reviewTag); err != nil {
		p.logger.Warn("tag order for review", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (p *OrderPipeline) auditSuccess(ctx context.Context, entity, orderID string) {
	if err := p.audit.Record(ctx, integration.AuditEntry{
		Entity:    entity,
		Direction: integration.AuditDirectionOutbound,
		Status:    integration.AuditStatusSuccess,
		Message:   "order " + orderID + " synced",
	}); err != nil {
		p.logger.Warn("audit record", zap.Error(err))
	}
}

func (p *OrderPipeline) auditError(ctx context.Context, entity, orderID string, cause error) {
	if err := p.audit.Record(ctx, integration.AuditEntry{
		Entity:    entity,
		Direction: integration.AuditDirectionOutbound,
		Status:    integration.AuditStatusError,
		Message:   "order " + orderID + ": " + cause.Error(),
	}); err != nil {
		p.logger.Warn("audit record", zap.Error(err))
	}
}

// renderObservations substitutes the order name into the configured
// observations template.
func renderObservations(template string, order *integration.SourceOrder) string {
	if template == "" {
		return ""
	}
	name := order.Name
	if name == "" {
		name = order.ID
	}
	return strings.ReplaceAll(template, "{order}", name)
}

func quantityOf(li integration.OrderLineItem) decimal.Decimal {
	return decimal.NewFromInt(int64(li.Quantity))
}
