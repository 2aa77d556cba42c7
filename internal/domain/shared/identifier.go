package shared

import (
	"fmt"
	"strings"
)

// System identifies which external platform an identifier belongs to.
type System string

const (
	// SystemCommerce is the e-commerce platform that originates orders.
	SystemCommerce System = "commerce"
	// SystemAccounting is the accounting platform that receives invoices.
	SystemAccounting System = "accounting"
)

// ExternalID is a tagged identifier for an entity living in an external
// system. It replaces ad hoc composite id strings: every adapter boundary
// goes through Canonical / ParseExternalID instead of building its own
// string format.
type ExternalID struct {
	System     System
	EntityType string
	RawID      string
}

// NewExternalID creates a tagged external identifier.
func NewExternalID(system System, entityType, rawID string) ExternalID {
	return ExternalID{System: system, EntityType: entityType, RawID: rawID}
}

// IsZero returns true when the identifier carries no raw id.
func (id ExternalID) IsZero() bool {
	return id.RawID == ""
}

// Canonical returns the single wire encoding used for persistence and
// cross-system references: "<system>/<entityType>/<rawID>".
func (id ExternalID) Canonical() string {
	return fmt.Sprintf("%s/%s/%s", id.System, id.EntityType, id.RawID)
}

// String implements fmt.Stringer.
func (id ExternalID) String() string {
	return id.Canonical()
}

// ParseExternalID parses the canonical encoding produced by Canonical.
// The raw id segment may itself contain slashes.
func ParseExternalID(s string) (ExternalID, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ExternalID{}, fmt.Errorf("%w: malformed external id %q", ErrInvalidInput, s)
	}
	return ExternalID{
		System:     System(parts[0]),
		EntityType: parts[1],
		RawID:      parts[2],
	}, nil
}
