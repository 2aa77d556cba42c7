package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Mapping errors
var (
	ErrMappingNotFound      = errors.New("integration: entity mapping not found")
	ErrMappingAlreadyExists = errors.New("integration: entity mapping already exists")
	ErrMappingInvalid       = errors.New("integration: invalid entity mapping")
)

// EntityType classifies what kind of entity a mapping links.
type EntityType string

const (
	// EntityTypeContact links a commerce customer to an accounting contact.
	EntityTypeContact EntityType = "contact"
	// EntityTypeOrder links a commerce order to an accounting invoice.
	EntityTypeOrder EntityType = "order"
	// EntityTypeItem links a commerce SKU to an accounting inventory item.
	EntityTypeItem EntityType = "item"
	// EntityTypePayment links a commerce order to an accounting payment.
	EntityTypePayment EntityType = "payment"
	// EntityTypeBankAccount links a payment gateway to an accounting bank account.
	EntityTypeBankAccount EntityType = "bank_account"
)

// IsValid returns true if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeContact, EntityTypeOrder, EntityTypeItem, EntityTypePayment, EntityTypeBankAccount:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// EntityMapping is a durable correspondence between an entity's id in
// the source system and its id in the destination system. At most one
// row exists per (EntityType, SourceID) and per (EntityType,
// DestinationID); a mapping is created on first successful link and
// updated, never duplicated, thereafter.
type EntityMapping struct {
	ID            uuid.UUID
	EntityType    EntityType
	SourceID      string
	DestinationID string
	// ParentID links a child mapping to its parent's source id, e.g. a
	// SKU mapping to its product.
	ParentID string
	// Metadata carries mapping-scoped annotations such as the invoice
	// number or an alternate id encoding used by the source system.
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntityMapping creates a mapping linking sourceID to destinationID.
func NewEntityMapping(entityType EntityType, sourceID, destinationID string) (*EntityMapping, error) {
	if !entityType.IsValid() || sourceID == "" || destinationID == "" {
		return nil, ErrMappingInvalid
	}
	now := time.Now()
	return &EntityMapping{
		ID:            uuid.New(),
		EntityType:    entityType,
		SourceID:      sourceID,
		DestinationID: destinationID,
		Metadata:      make(map[string]string),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// SetMetadata sets a metadata annotation on the mapping.
func (m *EntityMapping) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
	m.UpdatedAt = time.Now()
}

// MappingRepository persists entity mappings.
type MappingRepository interface {
	// GetBySourceID finds a mapping by entity type and source-system id.
	// Returns ErrMappingNotFound when no row exists.
	GetBySourceID(ctx context.Context, entityType EntityType, sourceID string) (*EntityMapping, error)

	// GetByDestinationID finds a mapping by entity type and
	// destination-system id. Returns ErrMappingNotFound when no row exists.
	GetByDestinationID(ctx context.Context, entityType EntityType, destinationID string) (*EntityMapping, error)

	// Save upserts a mapping keyed by (EntityType, SourceID).
	Save(ctx context.Context, mapping *EntityMapping) error

	// UpdateMetadata merges the given metadata into the mapping for
	// (entityType, sourceID).
	UpdateMetadata(ctx context.Context, entityType EntityType, sourceID string, metadata map[string]string) error
}
