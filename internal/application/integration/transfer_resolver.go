package integration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// TransferResolver chooses the origin warehouse for an order's stock
// transfer, or blocks the pipeline when no warehouse qualifies. Every
// invocation persists exactly one decision row; the transfer idempotency
// key suppresses re-evaluation on repeated triggers.
type TransferResolver struct {
	accounting integration.AccountingGateway
	mappings   integration.MappingRepository
	decisions  integration.TransferDecisionRepository
	guard      shared.IdempotencyGuard
	logger     *zap.Logger
}

// NewTransferResolver creates a new TransferResolver
func NewTransferResolver(
	accounting integration.AccountingGateway,
	mappings integration.MappingRepository,
	decisions integration.TransferDecisionRepository,
	guard shared.IdempotencyGuard,
	logger *zap.Logger,
) *TransferResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferResolver{
		accounting: accounting,
		mappings:   mappings,
		decisions:  decisions,
		guard:      guard,
		logger:     logger,
	}
}

// Resolve evaluates warehouse eligibility for the order and, when
// transfers are enabled and a warehouse qualifies, issues the transfer
// instruction. The returned decision is blocked when the pipeline must
// stop; ReasonAlreadyProcessing and ReasonAlreadyCompleted decisions are
// guard outcomes and are not persisted.
func (r *TransferResolver) Resolve(ctx context.Context, order *integration.SourceOrder, cfg *integration.StoreConfig) (*integration.TransferDecision, error) {
	key := integration.StepKey(integration.StepOpTransfer, order.ID)

	acq, err := r.guard.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire transfer key: %w", err)
	}
	if !acq.Acquired {
		if acq.Status == shared.IdempotencyStatusCompleted {
			stored, err := r.decisions.FindLatestByOrder(ctx, order.ID)
			if err == nil {
				return stored, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			// Key completed but no decision row survived. The earlier run
			// already went through, so the marker must not read as blocked
			// on an otherwise handled order.
			marker := integration.NewTransferDecision(order.ID, cfg.TransferStrategy)
			marker.Reason = integration.ReasonAlreadyCompleted
			return marker, nil
		}
		return integration.NewTransferDecision(order.ID, cfg.TransferStrategy).
			Block(integration.ReasonAlreadyProcessing), nil
	}

	decision, err := r.evaluate(ctx, order, cfg)
	if err != nil {
		if markErr := r.guard.Mark(ctx, key, shared.IdempotencyStatusFailed, err); markErr != nil {
			r.logger.Error("mark transfer key failed", zap.String("order_id", order.ID), zap.Error(markErr))
		}
		return nil, err
	}

	if !cfg.TransferEnabled {
		// Recorded for audit only: the evaluation result is kept but the
		// pipeline may proceed and no transfer is issued.
		decision.Blocked = false
		decision.Reason = integration.ReasonTransferDisabled
	} else if !decision.Blocked {
		if err := r.issueTransfer(ctx, order, cfg, decision); err != nil {
			r.logger.Warn("inventory transfer failed",
				zap.String("order_id", order.ID),
				zap.String("warehouse_id", decision.ChosenWarehouseID),
				zap.Error(err))
			decision.Block(integration.ReasonTransferFailed)
		}
	}

	if err := r.decisions.Save(ctx, decision); err != nil {
		if markErr := r.guard.Mark(ctx, key, shared.IdempotencyStatusFailed, err); markErr != nil {
			r.logger.Error("mark transfer key failed", zap.String("order_id", order.ID), zap.Error(markErr))
		}
		return nil, fmt.Errorf("save transfer decision: %w", err)
	}

	// A blocked decision is marked failed so an operator retry can
	// re-evaluate after fixing the underlying condition.
	status := shared.IdempotencyStatusCompleted
	var cause error
	if decision.Blocked {
		status = shared.IdempotencyStatusFailed
		cause = errors.New(decision.Reason.String())
	}
	if err := r.guard.Mark(ctx, key, status, cause); err != nil {
		r.logger.Error("mark transfer key", zap.String("order_id", order.ID), zap.Error(err))
	}

	return decision, nil
}

// evaluate runs the eligibility computation without issuing a transfer.
func (r *TransferResolver) evaluate(ctx context.Context, order *integration.SourceOrder, cfg *integration.StoreConfig) (*integration.TransferDecision, error) {
	decision := integration.NewTransferDecision(order.ID, cfg.TransferStrategy)

	candidates, err := r.candidateWarehouses(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DestinationWarehouseID == "" || len(candidates) == 0 {
		return decision.Block(integration.ReasonMissingTransferConfig), nil
	}

	requirements, missing, err := r.itemRequirements(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		decision.Details = nil
		return decision.Block(integration.ReasonMissingItemMapping), nil
	}

	stats, err := r.warehouseStats(ctx, requirements, candidates)
	if err != nil {
		return nil, err
	}
	decision.Details = stats

	eligible := make([]integration.WarehouseStats, 0, len(stats))
	for _, s := range stats {
		if s.CanFulfillAll {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return decision.Block(integration.ReasonInsufficientStock), nil
	}

	decision.ChosenWarehouseID = selectWarehouse(cfg.TransferStrategy, eligible, cfg.PriorityWarehouseID)
	return decision, nil
}

// candidateWarehouses resolves the origin candidates: the configured
// list, or every known warehouse except the destination for non-manual
// strategies.
func (r *TransferResolver) candidateWarehouses(ctx context.Context, cfg *integration.StoreConfig) ([]string, error) {
	if len(cfg.OriginWarehouseIDs) > 0 {
		return cfg.OriginWarehouseIDs, nil
	}
	if cfg.TransferStrategy == integration.TransferStrategyManual {
		return nil, nil
	}
	warehouses, err := r.accounting.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	ids := make([]string, 0, len(warehouses))
	for _, w := range warehouses {
		if w.ID != cfg.DestinationWarehouseID {
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

// itemRequirements resolves order lines to destination item ids via the
// mapping store, aggregating quantities per item. SKUs with no mapping
// are returned separately.
func (r *TransferResolver) itemRequirements(ctx context.Context, order *integration.SourceOrder) ([]integration.ItemRequirement, []string, error) {
	byItem := make(map[string]decimal.Decimal)
	ordered := make([]string, 0, len(order.LineItems))
	var missing []string
	for _, line := range order.LineItems {
		mapping, err := r.mappings.GetBySourceID(ctx, integration.EntityTypeItem, line.SKU)
		if err != nil {
			if errors.Is(err, integration.ErrMappingNotFound) {
				missing = append(missing, line.SKU)
				continue
			}
			return nil, nil, fmt.Errorf("resolve item mapping %q: %w", line.SKU, err)
		}
		if _, seen := byItem[mapping.DestinationID]; !seen {
			ordered = append(ordered, mapping.DestinationID)
		}
		byItem[mapping.DestinationID] = byItem[mapping.DestinationID].Add(decimal.NewFromInt(int64(line.Quantity)))
	}
	requirements := make([]integration.ItemRequirement, 0, len(ordered))
	for _, id := range ordered {
		requirements = append(requirements, integration.ItemRequirement{
			DestinationItemID: id,
			Quantity:          byItem[id],
		})
	}
	return requirements, missing, nil
}

// warehouseStats queries live inventory once per required item and
// computes the per-warehouse evaluation.
func (r *TransferResolver) warehouseStats(ctx context.Context, requirements []integration.ItemRequirement, candidates []string) ([]integration.WarehouseStats, error) {
	items := make(map[string]*integration.Item, len(requirements))
	for _, req := range requirements {
		item, err := r.accounting.GetItem(ctx, req.DestinationItemID)
		if err != nil {
			return nil, fmt.Errorf("get item %q: %w", req.DestinationItemID, err)
		}
		items[req.DestinationItemID] = item
	}

	stats := make([]integration.WarehouseStats, 0, len(candidates))
	for _, warehouseID := range candidates {
		s := integration.WarehouseStats{WarehouseID: warehouseID, CanFulfillAll: true}
		for _, req := range requirements {
			available := items[req.DestinationItemID].AvailableIn(warehouseID)
			if available.IsPositive() {
				s.ItemsWithStock++
			}
			s.TotalAvailable = s.TotalAvailable.Add(available)
			if available.LessThan(req.Quantity) {
				s.CanFulfillAll = false
				s.MissingItems = append(s.MissingItems, req.DestinationItemID)
			}
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// issueTransfer sends the origin-to-destination transfer instruction for
// every required item quantity.
func (r *TransferResolver) issueTransfer(ctx context.Context, order *integration.SourceOrder, cfg *integration.StoreConfig, decision *integration.TransferDecision) error {
	requirements, _, err := r.itemRequirements(ctx, order)
	if err != nil {
		return err
	}
	lines := make([]integration.AdjustmentLine, 0, len(requirements))
	for _, req := range requirements {
		lines = append(lines, integration.AdjustmentLine{ItemID: req.DestinationItemID, Quantity: req.Quantity})
	}
	_, err = r.accounting.CreateInventoryTransfer(ctx, integration.TransferInput{
		OriginWarehouseID:      decision.ChosenWarehouseID,
		DestinationWarehouseID: cfg.DestinationWarehouseID,
		Date:                   time.Now(),
		Lines:                  lines,
	})
	return err
}

// selectWarehouse picks one eligible warehouse per the strategy. Exact
// ties are broken by ascending warehouse id so repeated evaluations over
// the same snapshot are deterministic.
func selectWarehouse(strategy integration.TransferStrategy, eligible []integration.WarehouseStats, priorityID string) string {
	sorted := make([]integration.WarehouseStats, len(eligible))
	copy(sorted, eligible)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WarehouseID < sorted[j].WarehouseID })

	switch strategy {
	case integration.TransferStrategyPriority:
		for _, s := range sorted {
			if s.WarehouseID == priorityID {
				return s.WarehouseID
			}
		}
		return maxByTotalAvailable(sorted)
	case integration.TransferStrategyMaxStock:
		return maxByTotalAvailable(sorted)
	default: // manual, consolidation
		best := sorted[0]
		for _, s := range sorted[1:] {
			if s.ItemsWithStock > best.ItemsWithStock ||
				(s.ItemsWithStock == best.ItemsWithStock && s.TotalAvailable.GreaterThan(best.TotalAvailable)) {
				best = s
			}
		}
		return best.WarehouseID
	}
}

func maxByTotalAvailable(sorted []integration.WarehouseStats) string {
	best := sorted[0]
	for _, s := range sorted[1:] {
		if s.TotalAvailable.GreaterThan(best.TotalAvailable) {
			best = s
		}
	}
	return best.WarehouseID
}
