package integration

import "context"

// OrderSyncMode controls how far the pipeline takes an order.
type OrderSyncMode string

const (
	// OrderSyncModeOff disables order sync entirely.
	OrderSyncModeOff OrderSyncMode = "off"
	// OrderSyncModeDBOnly persists denormalized order/contact records
	// without touching the accounting system.
	OrderSyncModeDBOnly OrderSyncMode = "db_only"
	// OrderSyncModeContactOnly syncs the contact but never invoices.
	OrderSyncModeContactOnly OrderSyncMode = "contact_only"
	// OrderSyncModeInvoice runs the full order-to-invoice pipeline.
	OrderSyncModeInvoice OrderSyncMode = "invoice"
)

// IsValid returns true if the mode is valid
func (m OrderSyncMode) IsValid() bool {
	switch m {
	case OrderSyncModeOff, OrderSyncModeDBOnly, OrderSyncModeContactOnly, OrderSyncModeInvoice:
		return true
	default:
		return false
	}
}

// InvoiceSettings are the accounting-side references stamped on every
// generated invoice.
type InvoiceSettings struct {
	// Enabled gates invoice generation; when false the pipeline still
	// reports handled with a nil invoice.
	Enabled bool
	// ResolutionID is the fiscal numbering resolution to invoice under.
	ResolutionID string
	// CostCenterID is the cost center stamped on invoices.
	CostCenterID string
	// SellerID is the seller reference stamped on invoices.
	SellerID string
	// TemplateID is the invoice template.
	TemplateID string
	// PaymentMethod is the payment method label on the invoice.
	PaymentMethod string
	// ObservationsTemplate is the templated observations text; the
	// literal "{order}" is replaced with the order name.
	ObservationsTemplate string
}

// StoreConfig is the effective per-store sync configuration, resolved
// once per pipeline invocation.
type StoreConfig struct {
	OrderSyncMode OrderSyncMode

	// TransferEnabled requires a warehouse transfer before invoicing.
	TransferEnabled bool
	// TransferStrategy selects the origin warehouse.
	TransferStrategy TransferStrategy
	// OriginWarehouseIDs are the candidate origin warehouses; empty
	// means all known warehouses for non-manual strategies.
	OriginWarehouseIDs []string
	// DestinationWarehouseID is the warehouse transfers land in.
	DestinationWarehouseID string
	// PriorityWarehouseID is consulted first by the priority strategy.
	PriorityWarehouseID string
	// DefaultWarehouseID is the invoice warehouse when no transfer
	// decision chose one.
	DefaultWarehouseID string

	// ApplyPayment auto-applies a payment for paid orders.
	ApplyPayment bool
	// DefaultBankAccountID receives payments when no gateway mapping exists.
	DefaultBankAccountID string

	Invoice InvoiceSettings
}

// ConfigResolver returns the effective configuration for a store.
// Implementations resolve layering (store override over organization
// default over hard-coded default) once, at resolution time.
type ConfigResolver interface {
	Resolve(ctx context.Context, storeID string) (*StoreConfig, error)
}

// StoreConfigLayer is one layer of configuration with optional fields;
// nil means "not set at this layer".
type StoreConfigLayer struct {
	OrderSyncMode          *OrderSyncMode
	TransferEnabled        *bool
	TransferStrategy       *TransferStrategy
	OriginWarehouseIDs     []string
	DestinationWarehouseID *string
	PriorityWarehouseID    *string
	DefaultWarehouseID     *string
	ApplyPayment           *bool
	DefaultBankAccountID   *string
	InvoiceEnabled         *bool
	ResolutionID           *string
	CostCenterID           *string
	SellerID               *string
	TemplateID             *string
	PaymentMethod          *string
	ObservationsTemplate   *string
}

// DefaultStoreConfig returns the hard-coded bottom layer.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		OrderSyncMode:    OrderSyncModeOff,
		TransferStrategy: TransferStrategyConsolidation,
	}
}

// MergeStoreConfig resolves layered configuration with explicit
// precedence: later layers override earlier ones, starting from
// DefaultStoreConfig. Each optional field is applied only where set.
func MergeStoreConfig(layers ...StoreConfigLayer) StoreConfig {
	cfg := DefaultStoreConfig()
	for _, l := range layers {
		if l.OrderSyncMode != nil {
			cfg.OrderSyncMode = *l.OrderSyncMode
		}
		if l.TransferEnabled != nil {
			cfg.TransferEnabled = *l.TransferEnabled
		}
		if l.TransferStrategy != nil {
			cfg.TransferStrategy = *l.TransferStrategy
		}
		if len(l.OriginWarehouseIDs) > 0 {
			cfg.OriginWarehouseIDs = l.OriginWarehouseIDs
		}
		if l.DestinationWarehouseID != nil {
			cfg.DestinationWarehouseID = *l.DestinationWarehouseID
		}
		if l.PriorityWarehouseID != nil {
			cfg.PriorityWarehouseID = *l.PriorityWarehouseID
		}
		if l.DefaultWarehouseID != nil {
			cfg.DefaultWarehouseID = *l.DefaultWarehouseID
		}
		if l.ApplyPayment != nil {
			cfg.ApplyPayment = *l.ApplyPayment
		}
		if l.DefaultBankAccountID != nil {
			cfg.DefaultBankAccountID = *l.DefaultBankAccountID
		}
		if l.InvoiceEnabled != nil {
			cfg.Invoice.Enabled = *l.InvoiceEnabled
		}
		if l.ResolutionID != nil {
			cfg.Invoice.ResolutionID = *l.ResolutionID
		}
		if l.CostCenterID != nil {
			cfg.Invoice.CostCenterID = *l.CostCenterID
		}
		if l.SellerID != nil {
			cfg.Invoice.SellerID = *l.SellerID
		}
		if l.TemplateID != nil {
			cfg.Invoice.TemplateID = *l.TemplateID
		}
		if l.PaymentMethod != nil {
			cfg.Invoice.PaymentMethod = *l.PaymentMethod
		}
		if l.ObservationsTemplate != nil {
			cfg.Invoice.ObservationsTemplate = *l.ObservationsTemplate
		}
	}
	return cfg
}
