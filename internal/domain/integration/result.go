package integration

// Reason names an expected business condition that short-circuits the
// pipeline. Reasons are returned as data, never raised as errors.
type Reason string

const (
	ReasonSyncDisabled              Reason = "sync_disabled"
	ReasonMissingOrderFields        Reason = "missing_order_fields"
	ReasonMissingInvoiceSettings    Reason = "missing_invoice_settings"
	ReasonMissingEInvoiceData       Reason = "missing_einvoice_data"
	ReasonMissingCustomerEmail      Reason = "missing_customer_email"
	ReasonMissingIdentificationType Reason = "missing_identification_type"
	ReasonMissingTransferConfig     Reason = "missing_transfer_config"
	ReasonMissingItemMapping        Reason = "missing_item_mapping"
	ReasonInsufficientStock         Reason = "insufficient_stock"
	ReasonTransferFailed            Reason = "transfer_failed"
	ReasonTransferDisabled          Reason = "transfer_disabled"
	ReasonAlreadyProcessing         Reason = "already_processing"
	ReasonAlreadyCompleted          Reason = "already_completed"
)

// String returns the string representation of Reason
func (r Reason) String() string {
	return string(r)
}

// InvoiceRef references the invoice created (or reused) for an order.
type InvoiceRef struct {
	// DestinationID is the invoice id in the accounting system.
	DestinationID string `json:"destination_id"`
	// Number is the human-readable invoice number.
	Number string `json:"number"`
	// Reused is true when an existing mapping was reused instead of
	// creating a new invoice.
	Reused bool `json:"reused,omitempty"`
}

// PaymentRef references the payment applied to an order's invoice.
type PaymentRef struct {
	DestinationID string `json:"destination_id"`
	BankAccountID string `json:"bank_account_id"`
}

// AdjustmentRef summarizes the inventory adjustment issued for an order.
type AdjustmentRef struct {
	DestinationID string `json:"destination_id"`
	WarehouseID   string `json:"warehouse_id"`
	// AdjustedItems counts line items included in the adjustment.
	AdjustedItems int `json:"adjusted_items"`
	// MissingItems lists SKUs excluded because no mapping resolved.
	MissingItems []string `json:"missing_items,omitempty"`
}

// SyncOutcome is the result shape shared by every trigger surface.
// Handled=true means the pipeline ran to its end for the resolved mode,
// possibly with partial results; Handled=false carries the soft-failure
// Reason and any detail.
type SyncOutcome struct {
	Handled bool   `json:"handled"`
	Reason  Reason `json:"reason,omitempty"`
	// MissingFields details a missing_order_fields exit.
	MissingFields []string `json:"missing_fields,omitempty"`
	// Skipped names a suppressed step, e.g. already_completed invoice reuse.
	Skipped Reason `json:"skipped,omitempty"`

	ContactID  string            `json:"contact_id,omitempty"`
	Transfer   *TransferDecision `json:"transfer,omitempty"`
	Invoice    *InvoiceRef       `json:"invoice,omitempty"`
	Payment    *PaymentRef       `json:"payment,omitempty"`
	Adjustment *AdjustmentRef    `json:"adjustment,omitempty"`
	// Warnings are non-fatal conditions recorded along the way.
	Warnings []string `json:"warnings,omitempty"`
}

// NotHandled builds a soft-failure outcome.
func NotHandled(reason Reason) *SyncOutcome {
	return &SyncOutcome{Handled: false, Reason: reason}
}
