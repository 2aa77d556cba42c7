package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormMappingRepository implements MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// GetBySourceID finds a mapping by entity type and source-system id
func (r *GormMappingRepository) GetBySourceID(ctx context.Context, entityType integration.EntityType, sourceID string) (*integration.EntityMapping, error) {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND source_id = ?", entityType, sourceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetByDestinationID finds a mapping by entity type and destination-system id
func (r *GormMappingRepository) GetByDestinationID(ctx context.Context, entityType integration.EntityType, destinationID string) (*integration.EntityMapping, error) {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND destination_id = ?", entityType, destinationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts a mapping keyed by (entity_type, source_id). First
// successful link creates the row; later syncs update it in place so a
// pair is never duplicated.
func (r *GormMappingRepository) Save(ctx context.Context, mapping *integration.EntityMapping) error {
	model := models.EntityMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "entity_type"}, {Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"destination_id", "parent_id", "metadata", "updated_at",
			}),
		}).
		Create(model).Error
}

// UpdateMetadata merges metadata into the mapping for (entityType, sourceID)
func (r *GormMappingRepository) UpdateMetadata(ctx context.Context, entityType integration.EntityType, sourceID string, metadata map[string]string) error {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND source_id = ?", entityType, sourceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return integration.ErrMappingNotFound
		}
		return err
	}

	merged := make(map[string]string)
	if model.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(model.MetadataJSON), &merged); err != nil {
			merged = make(map[string]string)
		}
	}
	for k, v := range metadata {
		merged[k] = v
	}
	jsonBytes, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal mapping metadata: %w", err)
	}

	return r.db.WithContext(ctx).
		Model(&models.EntityMappingModel{}).
		Where("entity_type = ? AND source_id = ?", entityType, sourceID).
		Update("metadata", string(jsonBytes)).Error
}

// Ensure GormMappingRepository implements MappingRepository
var _ integration.MappingRepository = (*GormMappingRepository)(nil)
