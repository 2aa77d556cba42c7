package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// EntityMappingModel is the persistence model for the EntityMapping domain entity.
type EntityMappingModel struct {
	ID            uuid.UUID              `gorm:"type:uuid;primary_key"`
	EntityType    integration.EntityType `gorm:"type:varchar(30);not null;uniqueIndex:idx_mapping_type_source,priority:1;uniqueIndex:idx_mapping_type_destination,priority:1"`
	SourceID      string                 `gorm:"type:varchar(255);not null;uniqueIndex:idx_mapping_type_source,priority:2"`
	DestinationID string                 `gorm:"type:varchar(255);not null;uniqueIndex:idx_mapping_type_destination,priority:2"`
	ParentID      string                 `gorm:"type:varchar(255);index"`
	MetadataJSON  string                 `gorm:"type:jsonb;column:metadata"`
	CreatedAt     time.Time              `gorm:"not null"`
	UpdatedAt     time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityMappingModel) TableName() string {
	return "entity_mappings"
}

// ToDomain converts the persistence model to a domain EntityMapping entity.
func (m *EntityMappingModel) ToDomain() *integration.EntityMapping {
	mapping := &integration.EntityMapping{
		ID:            m.ID,
		EntityType:    m.EntityType,
		SourceID:      m.SourceID,
		DestinationID: m.DestinationID,
		ParentID:      m.ParentID,
		Metadata:      make(map[string]string),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.MetadataJSON != "" {
		var metadata map[string]string
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			mapping.Metadata = metadata
		}
	}
	return mapping
}

// FromDomain populates the persistence model from a domain EntityMapping entity.
func (m *EntityMappingModel) FromDomain(em *integration.EntityMapping) {
	m.ID = em.ID
	m.EntityType = em.EntityType
	m.SourceID = em.SourceID
	m.DestinationID = em.DestinationID
	m.ParentID = em.ParentID
	m.CreatedAt = em.CreatedAt
	m.UpdatedAt = em.UpdatedAt
	if len(em.Metadata) > 0 {
		if jsonBytes, err := json.Marshal(em.Metadata); err == nil {
			m.MetadataJSON = string(jsonBytes)
		}
	} else {
		m.MetadataJSON = "{}"
	}
}

// EntityMappingModelFromDomain creates a new persistence model from a domain entity.
func EntityMappingModelFromDomain(em *integration.EntityMapping) *EntityMappingModel {
	m := &EntityMappingModel{}
	m.FromDomain(em)
	return m
}

// IdempotencyKeyModel is the persistence model for idempotency keys.
type IdempotencyKeyModel struct {
	Key       string                   `gorm:"type:varchar(255);primary_key"`
	Status    shared.IdempotencyStatus `gorm:"type:varchar(20);not null"`
	LastError string                   `gorm:"type:text"`
	UpdatedAt time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdempotencyKeyModel) TableName() string {
	return "idempotency_keys"
}

// ToDomain converts the persistence model to a domain IdempotencyKey.
func (m *IdempotencyKeyModel) ToDomain() *shared.IdempotencyKey {
	return &shared.IdempotencyKey{
		Key:       m.Key,
		Status:    m.Status,
		LastError: m.LastError,
		UpdatedAt: m.UpdatedAt,
	}
}

// TransferDecisionModel is the persistence model for transfer decisions.
type TransferDecisionModel struct {
	ID                uuid.UUID                    `gorm:"type:uuid;primary_key"`
	OrderID           string                       `gorm:"type:varchar(255);not null;index:idx_transfer_decision_order"`
	Blocked           bool                         `gorm:"not null"`
	Reason            integration.Reason           `gorm:"type:varchar(50)"`
	ChosenWarehouseID string                       `gorm:"type:varchar(255)"`
	Rule              integration.TransferStrategy `gorm:"type:varchar(30);not null"`
	DetailsJSON       string                       `gorm:"type:jsonb;column:details"`
	CreatedAt         time.Time                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransferDecisionModel) TableName() string {
	return "transfer_decisions"
}

// ToDomain converts the persistence model to a domain TransferDecision.
func (m *TransferDecisionModel) ToDomain() *integration.TransferDecision {
	decision := &integration.TransferDecision{
		ID:                m.ID,
		OrderID:           m.OrderID,
		Blocked:           m.Blocked,
		Reason:            m.Reason,
		ChosenWarehouseID: m.ChosenWarehouseID,
		Rule:              m.Rule,
		CreatedAt:         m.CreatedAt,
	}
	if m.DetailsJSON != "" {
		var details []integration.WarehouseStats
		if err := json.Unmarshal([]byte(m.DetailsJSON), &details); err == nil {
			decision.Details = details
		}
	}
	return decision
}

// FromDomain populates the persistence model from a domain TransferDecision.
func (m *TransferDecisionModel) FromDomain(d *integration.TransferDecision) {
	m.ID = d.ID
	m.OrderID = d.OrderID
	m.Blocked = d.Blocked
	m.Reason = d.Reason
	m.ChosenWarehouseID = d.ChosenWarehouseID
	m.Rule = d.Rule
	m.CreatedAt = d.CreatedAt
	if len(d.Details) > 0 {
		if jsonBytes, err := json.Marshal(d.Details); err == nil {
			m.DetailsJSON = string(jsonBytes)
		}
	} else {
		m.DetailsJSON = "[]"
	}
}

// SyncLogModel is the persistence model for audit sink entries.
type SyncLogModel struct {
	ID        uuid.UUID                  `gorm:"type:uuid;primary_key"`
	Entity    string                     `gorm:"type:varchar(50);not null;index"`
	Direction integration.AuditDirection `gorm:"type:varchar(20);not null"`
	Status    integration.AuditStatus    `gorm:"type:varchar(20);not null"`
	Message   string                     `gorm:"type:text"`
	Request   string                     `gorm:"type:text"`
	Response  string                     `gorm:"type:text"`
	CreatedAt time.Time                  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// SyncedOrderModel is the persistence model for denormalized synced orders.
type SyncedOrderModel struct {
	OrderID         string          `gorm:"type:varchar(255);primary_key"`
	OrderName       string          `gorm:"type:varchar(100)"`
	CustomerEmail   string          `gorm:"type:varchar(255);index"`
	CustomerName    string          `gorm:"type:varchar(255)"`
	Currency        string          `gorm:"type:varchar(10)"`
	Total           decimal.Decimal `gorm:"type:numeric(18,4)"`
	FinancialStatus string          `gorm:"type:varchar(30)"`
	SyncedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncedOrderModel) TableName() string {
	return "synced_orders"
}

// ToDomain converts the persistence model to a domain SyncedOrder.
func (m *SyncedOrderModel) ToDomain() *integration.SyncedOrder {
	return &integration.SyncedOrder{
		OrderID:         m.OrderID,
		OrderName:       m.OrderName,
		CustomerEmail:   m.CustomerEmail,
		CustomerName:    m.CustomerName,
		Currency:        m.Currency,
		Total:           m.Total,
		FinancialStatus: m.FinancialStatus,
		SyncedAt:        m.SyncedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncedOrder.
func (m *SyncedOrderModel) FromDomain(o *integration.SyncedOrder) {
	m.OrderID = o.OrderID
	m.OrderName = o.OrderName
	m.CustomerEmail = o.CustomerEmail
	m.CustomerName = o.CustomerName
	m.Currency = o.Currency
	m.Total = o.Total
	m.FinancialStatus = o.FinancialStatus
	m.SyncedAt = o.SyncedAt
}
