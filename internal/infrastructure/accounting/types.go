package accounting

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/backend/internal/domain/integration"
)

// itemPayload is the wire representation of an inventory item
type itemPayload struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Reference string           `json:"reference"`
	Inventory inventoryPayload `json:"inventory"`
}

// inventoryPayload carries per-warehouse availability for an item
type inventoryPayload struct {
	Warehouses []warehouseStockPayload `json:"warehouses"`
}

// warehouseStockPayload is one warehouse's availability for an item
type warehouseStockPayload struct {
	ID        string          `json:"id"`
	Available decimal.Decimal `json:"availableQuantity"`
}

// warehousePayload is the wire representation of a warehouse
type warehousePayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// contactPayload is the wire representation of a contact
type contactPayload struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phonePrimary"`
	Identification *identificationPayload `json:"identificationObject,omitempty"`
	Address        *contactAddressPayload `json:"address,omitempty"`
}

// identificationPayload carries a contact's fiscal identification
type identificationPayload struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

// contactAddressPayload is the wire representation of a contact address
type contactAddressPayload struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

// invoicePayload is the wire representation of a created invoice
type invoicePayload struct {
	ID             string                `json:"id"`
	Total          decimal.Decimal       `json:"total"`
	NumberTemplate numberTemplatePayload `json:"numberTemplate"`
}

// numberTemplatePayload carries the invoice numbering fields
type numberTemplatePayload struct {
	FullNumber      string `json:"fullNumber"`
	FormattedNumber string `json:"formattedNumber"`
	Prefix          string `json:"prefix"`
	Number          string `json:"number"`
}

// idPayload is the minimal response carrying a created record id
type idPayload struct {
	ID string `json:"id"`
}

// errorPayload is the platform error response body
type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// invoiceRequest is the payload for creating an invoice
type invoiceRequest struct {
	ContactID     string               `json:"clientId"`
	Date          string               `json:"date"`
	ResolutionID  string               `json:"numberTemplateId"`
	CostCenterID  string               `json:"costCenterId,omitempty"`
	SellerID      string               `json:"sellerId,omitempty"`
	TemplateID    string               `json:"templateId,omitempty"`
	WarehouseID   string               `json:"warehouseId,omitempty"`
	PaymentMethod string               `json:"paymentMethod"`
	Observations  string               `json:"observations,omitempty"`
	Currency      string               `json:"currency,omitempty"`
	Items         []invoiceItemRequest `json:"items"`
}

// invoiceItemRequest is one invoice line in the request payload
type invoiceItemRequest struct {
	ItemID   string          `json:"id"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// paymentRequest is the payload for applying a payment
type paymentRequest struct {
	InvoiceID     string          `json:"invoiceId"`
	BankAccountID string          `json:"bankAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
}

// adjustmentRequest is the payload for a stock adjustment
type adjustmentRequest struct {
	WarehouseID string                  `json:"warehouseId"`
	Date        string                  `json:"date"`
	Items       []adjustmentItemRequest `json:"items"`
}

// adjustmentItemRequest is one item delta in an adjustment or transfer
type adjustmentItemRequest struct {
	ItemID   string          `json:"id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// transferRequest is the payload for a warehouse transfer
type transferRequest struct {
	OriginWarehouseID      string                  `json:"originWarehouseId"`
	DestinationWarehouseID string                  `json:"destinationWarehouseId"`
	Date                   string                  `json:"date"`
	Items                  []adjustmentItemRequest `json:"items"`
}

// contactRequest is the payload for creating or updating a contact
type contactRequest struct {
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phonePrimary,omitempty"`
	Identification *identificationPayload `json:"identificationObject,omitempty"`
	Address        *contactAddressPayload `json:"address,omitempty"`
}

// toDomainItem converts a wire item into a domain Item
func (p *itemPayload) toDomainItem() *integration.Item {
	item := &integration.Item{
		ID:   p.ID,
		Name: p.Name,
	}
	for _, w := range p.Inventory.Warehouses {
		item.Stocks = append(item.Stocks, integration.ItemStock{
			WarehouseID: w.ID,
			Available:   w.Available,
		})
	}
	return item
}

// toDomainContact converts a wire contact into a domain Contact
func (p *contactPayload) toDomainContact() *integration.Contact {
	contact := &integration.Contact{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Phone: p.Phone,
	}
	if p.Identification != nil {
		contact.Identification = p.Identification.Number
		contact.IdentificationType = p.Identification.Type
	}
	if p.Address != nil {
		contact.Address = integration.Address{
			Line1:   p.Address.Address,
			City:    p.Address.City,
			Country: p.Address.Country,
			Zip:     p.Address.ZipCode,
		}
	}
	return contact
}

// toDomainInvoice converts a wire invoice into a domain Invoice
func (p *invoicePayload) toDomainInvoice() *integration.Invoice {
	return &integration.Invoice{
		ID:    p.ID,
		Total: p.Total,
		Number: integration.InvoiceNumber{
			FullNumber:      p.NumberTemplate.FullNumber,
			FormattedNumber: p.NumberTemplate.FormattedNumber,
			Prefix:          p.NumberTemplate.Prefix,
			Number:          p.NumberTemplate.Number,
		},
	}
}

// contactRequestFromInput builds a wire contact request from the domain input
func contactRequestFromInput(input integration.ContactInput) contactRequest {
	req := contactRequest{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	}
	if input.Identification != "" {
		req.Identification = &identificationPayload{
			Number: input.Identification,
			Type:   input.IdentificationType,
		}
	}
	if input.Address != (integration.Address{}) {
		req.Address = &contactAddressPayload{
			Address: input.Address.Line1,
			City:    input.Address.City,
			Country: input.Address.Country,
			ZipCode: input.Address.Zip,
		}
	}
	return req
}
