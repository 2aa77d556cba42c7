package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStrategy selects the origin warehouse for a stock transfer.
type TransferStrategy string

const (
	// TransferStrategyManual uses an explicitly configured candidate list.
	TransferStrategyManual TransferStrategy = "manual"
	// TransferStrategyConsolidation prefers the single warehouse most
	// likely to satisfy the whole order, minimizing split shipments.
	TransferStrategyConsolidation TransferStrategy = "consolidation"
	// TransferStrategyPriority prefers a configured warehouse, falling
	// back to max_stock when it cannot fulfill.
	TransferStrategyPriority TransferStrategy = "priority"
	// TransferStrategyMaxStock picks the warehouse with the most total
	// available stock.
	TransferStrategyMaxStock TransferStrategy = "max_stock"
)

// IsValid returns true if the strategy is valid
func (s TransferStrategy) IsValid() bool {
	switch s {
	case TransferStrategyManual, TransferStrategyConsolidation, TransferStrategyPriority, TransferStrategyMaxStock:
		return true
	default:
		return false
	}
}

// String returns the string representation of TransferStrategy
func (s TransferStrategy) String() string {
	return string(s)
}

// ItemRequirement is one destination item the order needs, derived from
// a line item with a resolved mapping.
type ItemRequirement struct {
	DestinationItemID string
	Quantity          decimal.Decimal
}

// WarehouseStats is the per-warehouse evaluation over the required items.
type WarehouseStats struct {
	WarehouseID string `json:"warehouse_id"`
	// ItemsWithStock counts required items with any stock in this warehouse.
	ItemsWithStock int `json:"items_with_stock"`
	// TotalAvailable is the summed available quantity over required items.
	TotalAvailable decimal.Decimal `json:"total_available"`
	// CanFulfillAll is true when every required item is fully covered.
	CanFulfillAll bool `json:"can_fulfill_all"`
	// MissingItems lists required item ids this warehouse cannot cover.
	MissingItems []string `json:"missing_items,omitempty"`
}

// TransferDecision is the audited outcome of one warehouse resolution.
// A decision is written exactly once per evaluation and never mutated; a
// retry either creates a new decision or is suppressed by the
// idempotency guard.
type TransferDecision struct {
	ID      uuid.UUID
	OrderID string
	// Blocked is true when the pipeline must stop with Reason.
	Blocked bool
	// Reason names the blocking condition, or ReasonTransferDisabled for
	// the non-blocking audit-only outcome.
	Reason Reason
	// ChosenWarehouseID is the selected origin warehouse, when one was chosen.
	ChosenWarehouseID string
	// Rule is the strategy that produced the decision.
	Rule TransferStrategy
	// Details carries the full per-warehouse evaluation for diagnostics.
	Details   []WarehouseStats
	CreatedAt time.Time
}

// NewTransferDecision creates a decision row for an order.
func NewTransferDecision(orderID string, rule TransferStrategy) *TransferDecision {
	return &TransferDecision{
		ID:        uuid.New(),
		OrderID:   orderID,
		Rule:      rule,
		CreatedAt: time.Now(),
	}
}

// Block marks the decision as blocking with the given reason.
func (d *TransferDecision) Block(reason Reason) *TransferDecision {
	d.Blocked = true
	d.Reason = reason
	return d
}

// TransferDecisionRepository persists transfer decisions as audit rows.
type TransferDecisionRepository interface {
	// Save appends a decision. Decisions are append-only.
	Save(ctx context.Context, decision *TransferDecision) error

	// FindLatestByOrder returns the most recent decision for an order,
	// or ErrMappingNotFound-style shared.ErrNotFound when none exists.
	FindLatestByOrder(ctx context.Context, orderID string) (*TransferDecision, error)
}
