package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// ContactSyncService syncs individual commerce customers into
// accounting contacts. It is the single-record sync behind the contact
// bulk endpoint.
type ContactSyncService struct {
	accounting integration.AccountingGateway
	mappings   integration.MappingRepository
	logger     *zap.Logger
}

// NewContactSyncService creates a new ContactSyncService
func NewContactSyncService(accounting integration.AccountingGateway, mappings integration.MappingRepository, logger *zap.Logger) *ContactSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactSyncService{accounting: accounting, mappings: mappings, logger: logger}
}

// SyncContact links one commerce customer to an accounting contact,
// creating the contact when none matches the email. Customers already
// mapped, or lacking an email, are skipped.
func (s *ContactSyncService) SyncContact(ctx context.Context, customer integration.OrderCustomer) (BulkItemStatus, error) {
	if customer.Email == "" {
		return BulkItemSkipped, nil
	}
	if _, err := s.mappings.GetBySourceID(ctx, integration.EntityTypeContact, customer.Email); err == nil {
		return BulkItemSkipped, nil
	} else if !errors.Is(err, integration.ErrMappingNotFound) {
		return BulkItemSkipped, err
	}

	input := integration.ContactInput{
		Name:           customer.FullName(),
		Email:          customer.Email,
		Phone:          customer.Phone,
		Identification: integration.FallbackIdentification(customer.Identification, customer.Phone),
		Address:        customer.Address,
	}

	contact, err := s.accounting.FindContactByEmail(ctx, customer.Email)
	switch {
	case err == nil:
		// Existing contact, just link it.
	case errors.Is(err, shared.ErrNotFound):
		contact, err = s.accounting.CreateContact(ctx, input)
		if err != nil {
			return BulkItemSkipped, fmt.Errorf("create contact %q: %w", customer.Email, err)
		}
	default:
		return BulkItemSkipped, fmt.Errorf("find contact %q: %w", customer.Email, err)
	}

	mapping, err := integration.NewEntityMapping(integration.EntityTypeContact, customer.Email, contact.ID)
	if err != nil {
		return BulkItemSkipped, err
	}
	if err := s.mappings.Save(ctx, mapping); err != nil {
		return BulkItemSkipped, fmt.Errorf("save contact mapping: %w", err)
	}
	return BulkItemSynced, nil
}
