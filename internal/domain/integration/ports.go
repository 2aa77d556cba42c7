package integration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Known adapter error conditions the pipeline maps to soft failures.
var (
	// ErrMissingIdentificationType is returned by the accounting adapter
	// when contact creation is rejected for lacking an identification type.
	ErrMissingIdentificationType = errors.New("integration: missing identification type")
	// ErrRateLimited indicates the platform throttled the request; the
	// adapters retry it with backoff before surfacing it.
	ErrRateLimited = errors.New("integration: platform rate limited")
)

// ---------------------------------------------------------------------------
// Accounting system types
// ---------------------------------------------------------------------------

// Warehouse is an inventory location in the accounting system.
type Warehouse struct {
	ID   string
	Name string
}

// ItemStock is the availability of one item in one warehouse.
type ItemStock struct {
	WarehouseID string
	Available   decimal.Decimal
}

// Item is an inventory item in the accounting system with its
// per-warehouse availability.
type Item struct {
	ID     string
	Name   string
	Stocks []ItemStock
}

// AvailableIn returns the available quantity in the given warehouse.
func (i *Item) AvailableIn(warehouseID string) decimal.Decimal {
	for _, s := range i.Stocks {
		if s.WarehouseID == warehouseID {
			return s.Available
		}
	}
	return decimal.Zero
}

// Contact is a contact record in the accounting system.
type Contact struct {
	ID                 string
	Name               string
	Email              string
	Phone              string
	Identification     string
	IdentificationType string
	Address            Address
}

// ContactInput is the payload for creating or updating a contact.
type ContactInput struct {
	Name               string
	Email              string
	Phone              string
	Identification     string
	IdentificationType string
	Address            Address
}

// InvoiceLine is one priced line on an invoice payload.
type InvoiceLine struct {
	ItemID   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// InvoiceInput is the payload for creating an invoice.
type InvoiceInput struct {
	ContactID     string
	Date          time.Time
	ResolutionID  string
	CostCenterID  string
	SellerID      string
	TemplateID    string
	WarehouseID   string
	PaymentMethod string
	Observations  string
	Currency      string
	Lines         []InvoiceLine
}

// InvoiceNumber carries the number fields the accounting system reports.
type InvoiceNumber struct {
	FullNumber      string
	FormattedNumber string
	Prefix          string
	Number          string
}

// Display returns the human-readable invoice number, preferring the full
// number, then the formatted number, then prefix+number.
func (n InvoiceNumber) Display() string {
	if n.FullNumber != "" {
		return n.FullNumber
	}
	if n.FormattedNumber != "" {
		return n.FormattedNumber
	}
	return n.Prefix + n.Number
}

// Invoice is an invoice created in the accounting system.
type Invoice struct {
	ID     string
	Number InvoiceNumber
	Total  decimal.Decimal
}

// PaymentInput is the payload for applying a payment to an invoice.
type PaymentInput struct {
	InvoiceID     string
	BankAccountID string
	Amount        decimal.Decimal
	Date          time.Time
	PaymentMethod string
}

// Payment is a payment recorded in the accounting system.
type Payment struct {
	ID string
}

// AdjustmentLine is one per-item quantity delta in a stock adjustment.
type AdjustmentLine struct {
	ItemID   string
	Quantity decimal.Decimal
}

// AdjustmentInput is the payload for a warehouse stock adjustment.
type AdjustmentInput struct {
	WarehouseID string
	Date        time.Time
	Lines       []AdjustmentLine
}

// Adjustment is a stock adjustment recorded in the accounting system.
type Adjustment struct {
	ID string
}

// TransferInput is the payload for a warehouse-to-warehouse stock transfer.
type TransferInput struct {
	OriginWarehouseID      string
	DestinationWarehouseID string
	Date                   time.Time
	Lines                  []AdjustmentLine
}

// Transfer is a stock transfer recorded in the accounting system.
type Transfer struct {
	ID string
}

// AccountingGateway is the port to the destination accounting system.
type AccountingGateway interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	FindItemByReference(ctx context.Context, reference string) (*Item, error)
	FindContactByEmail(ctx context.Context, email string) (*Contact, error)
	CreateContact(ctx context.Context, input ContactInput) (*Contact, error)
	UpdateContact(ctx context.Context, id string, input ContactInput) (*Contact, error)
	CreateInvoice(ctx context.Context, input InvoiceInput) (*Invoice, error)
	CreatePayment(ctx context.Context, input PaymentInput) (*Payment, error)
	CreateInventoryAdjustment(ctx context.Context, input AdjustmentInput) (*Adjustment, error)
	CreateInventoryTransfer(ctx context.Context, input TransferInput) (*Transfer, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
}

// ---------------------------------------------------------------------------
// Commerce system types
// ---------------------------------------------------------------------------

// OrderQuery filters a paged order listing on the commerce platform.
type OrderQuery struct {
	UpdatedSince time.Time
	Status       string
	// Cursor is the opaque page cursor; empty starts from the beginning.
	Cursor   string
	PageSize int
}

// OrderPage is one page of a commerce order listing.
type OrderPage struct {
	Orders []SourceOrder
	// NextCursor is empty on the last page.
	NextCursor string
}

// CustomerPage is one page of a commerce customer listing.
type CustomerPage struct {
	Customers  []OrderCustomer
	NextCursor string
}

// SourceProduct is a product record on the commerce platform.
type SourceProduct struct {
	ID    string
	Title string
	SKUs  []string
}

// ProductPage is one page of a commerce product listing.
type ProductPage struct {
	Products   []SourceProduct
	NextCursor string
}

// CommerceGateway is the port to the source commerce system.
type CommerceGateway interface {
	GetOrderByID(ctx context.Context, id string) (*SourceOrder, error)
	ListOrders(ctx context.Context, query OrderQuery) (*OrderPage, error)
	ListCustomers(ctx context.Context, cursor string, pageSize int) (*CustomerPage, error)
	ListProducts(ctx context.Context, cursor string, pageSize int) (*ProductPage, error)
	AddOrderTag(ctx context.Context, orderID, tag string) error
}

// ---------------------------------------------------------------------------
// Audit sink and denormalized order store
// ---------------------------------------------------------------------------

// AuditDirection is the direction of the audited operation.
type AuditDirection string

const (
	AuditDirectionOutbound AuditDirection = "outbound"
	AuditDirectionInbound  AuditDirection = "inbound"
)

// AuditStatus is the outcome class of the audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusSkipped AuditStatus = "skipped"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	Entity    string
	Direction AuditDirection
	Status    AuditStatus
	Message   string
	Request   string
	Response  string
}

// AuditSink appends audit entries. Implementations must never fail the
// business operation on sink errors.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// SyncedOrder is the denormalized order/contact record persisted in
// db_only mode and alongside full syncs.
type SyncedOrder struct {
	OrderID         string
	OrderName       string
	CustomerEmail   string
	CustomerName    string
	Currency        string
	Total           decimal.Decimal
	FinancialStatus string
	SyncedAt        time.Time
}

// SyncedOrderRepository persists denormalized synced orders.
type SyncedOrderRepository interface {
	Save(ctx context.Context, order *SyncedOrder) error
	FindByOrderID(ctx context.Context, orderID string) (*SyncedOrder, error)
}
