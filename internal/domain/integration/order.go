package integration

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FinancialStatus values reported by the commerce platform.
const (
	FinancialStatusPaid    = "paid"
	FinancialStatusPending = "pending"
)

// SourceOrder is the order representation shared by every trigger
// surface (webhook, manual retry, poller, bulk job). It is the input to
// the order pipeline.
type SourceOrder struct {
	// ID is the order id on the commerce platform.
	ID string
	// Name is the human-readable order number, e.g. "#1001".
	Name string
	// Currency is the ISO currency code of the order.
	Currency string
	// TotalPrice is the order total as reported by the platform.
	TotalPrice decimal.Decimal
	// FinancialStatus is the payment status on the platform ("paid", "pending", ...).
	FinancialStatus string
	// Gateway is the payment gateway that collected the order, if any.
	Gateway string
	// Note is the free-form order note.
	Note string
	// Tags are the tags currently applied to the order on the platform.
	Tags []string
	// CreatedAt is the order creation time on the platform.
	CreatedAt time.Time
	// Customer is the buyer record attached to the order.
	Customer OrderCustomer
	// LineItems are the purchased lines.
	LineItems []OrderLineItem
	// EInvoice carries the electronic-invoicing override for this order,
	// when the buyer requested a fiscal invoice.
	EInvoice *EInvoiceOverride
}

// IsPaid returns true when the platform reports the order as paid.
func (o *SourceOrder) IsPaid() bool {
	return strings.EqualFold(o.FinancialStatus, FinancialStatusPaid)
}

// MissingRequiredFields returns the names of fields the pipeline needs
// but the order does not carry. For invoice mode, line items, currency
// and total are required on top of the order id.
func (o *SourceOrder) MissingRequiredFields(invoiceMode bool) []string {
	var missing []string
	if o.ID == "" {
		missing = append(missing, "id")
	}
	if invoiceMode {
		if len(o.LineItems) == 0 {
			missing = append(missing, "line_items")
		}
		if o.Currency == "" {
			missing = append(missing, "currency")
		}
		if o.TotalPrice.IsZero() {
			missing = append(missing, "total_price")
		}
	}
	return missing
}

// OrderLineItem is a purchased line on a source order.
type OrderLineItem struct {
	// ID is the line item id on the commerce platform.
	ID string
	// SKU is the merchant SKU, used to resolve the destination item mapping.
	SKU string
	// Title is the product title at purchase time.
	Title string
	// Quantity is the purchased quantity.
	Quantity int
	// Price is the listed unit price.
	Price decimal.Decimal
	// DiscountedPrice is the unit price after discounts, when the
	// platform reports one.
	DiscountedPrice *decimal.Decimal
}

// EffectivePrice returns the discounted unit price when present, the
// listed price otherwise.
func (li OrderLineItem) EffectivePrice() decimal.Decimal {
	if li.DiscountedPrice != nil {
		return *li.DiscountedPrice
	}
	return li.Price
}

// OrderCustomer is the buyer record on a source order.
type OrderCustomer struct {
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	Identification string
	Address        Address
}

// FullName returns the customer's display name.
func (c OrderCustomer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Address is a postal address in either system.
type Address struct {
	Line1    string
	City     string
	Province string
	Country  string
	Zip      string
}

// EInvoiceOverride carries per-order electronic-invoicing data supplied
// by the buyer. When active, its fields take precedence over the raw
// order customer fields.
type EInvoiceOverride struct {
	Active             bool
	FiscalName         string
	Identification     string
	IdentificationType string
	Email              string
	Address            Address
}

// Complete returns true when the override carries everything contact
// creation needs.
func (e *EInvoiceOverride) Complete() bool {
	return e.FiscalName != "" && e.Identification != "" && e.IdentificationType != ""
}
