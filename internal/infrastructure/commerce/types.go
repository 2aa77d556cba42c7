package commerce

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlink/backend/internal/domain/integration"
)

// orderEnvelope wraps a single order response
type orderEnvelope struct {
	Order *orderPayload `json:"order"`
}

// ordersEnvelope wraps a paged order listing
type ordersEnvelope struct {
	Orders   []orderPayload `json:"orders"`
	NextPage string         `json:"next_page"`
}

// customersEnvelope wraps a paged customer listing
type customersEnvelope struct {
	Customers []customerPayload `json:"customers"`
	NextPage  string            `json:"next_page"`
}

// productsEnvelope wraps a paged product listing
type productsEnvelope struct {
	Products []productPayload `json:"products"`
	NextPage string           `json:"next_page"`
}

// orderPayload is the wire representation of an order
type orderPayload struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Currency        string            `json:"currency"`
	TotalPrice      string            `json:"total_price"`
	FinancialStatus string            `json:"financial_status"`
	Gateway         string            `json:"gateway"`
	Note            string            `json:"note"`
	Tags            []string          `json:"tags"`
	CreatedAt       time.Time         `json:"created_at"`
	Customer        customerPayload   `json:"customer"`
	LineItems       []lineItemPayload `json:"line_items"`
	EInvoice        *eInvoicePayload  `json:"einvoice,omitempty"`
}

// lineItemPayload is the wire representation of an order line
type lineItemPayload struct {
	ID              string `json:"id"`
	SKU             string `json:"sku"`
	Title           string `json:"title"`
	Quantity        int    `json:"quantity"`
	Price           string `json:"price"`
	DiscountedPrice string `json:"discounted_price,omitempty"`
}

// customerPayload is the wire representation of a customer
type customerPayload struct {
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Phone          string         `json:"phone"`
	Identification string         `json:"identification"`
	Address        addressPayload `json:"default_address"`
}

// addressPayload is the wire representation of a postal address
type addressPayload struct {
	Line1    string `json:"address1"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

// eInvoicePayload carries the buyer-supplied electronic invoicing data
type eInvoicePayload struct {
	Active             bool           `json:"active"`
	FiscalName         string         `json:"fiscal_name"`
	Identification     string         `json:"identification"`
	IdentificationType string         `json:"identification_type"`
	Email              string         `json:"email"`
	Address            addressPayload `json:"address"`
}

// productPayload is the wire representation of a product
type productPayload struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Variants []variantPayload `json:"variants"`
}

// variantPayload is the wire representation of a product variant
type variantPayload struct {
	SKU string `json:"sku"`
}

// tagRequest is the payload for adding a tag to an order
type tagRequest struct {
	Tag string `json:"tag"`
}

// parseDecimal parses a platform money string, returning zero when the
// field is missing or malformed.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// toDomainOrder converts a wire order into a domain SourceOrder
func (p *orderPayload) toDomainOrder() *integration.SourceOrder {
	order := &integration.SourceOrder{
		ID:              p.ID,
		Name:            p.Name,
		Currency:        p.Currency,
		TotalPrice:      parseDecimal(p.TotalPrice),
		FinancialStatus: p.FinancialStatus,
		Gateway:         p.Gateway,
		Note:            p.Note,
		Tags:            p.Tags,
		CreatedAt:       p.CreatedAt,
		Customer:        p.Customer.toDomainCustomer(),
	}

	for _, li := range p.LineItems {
		item := integration.OrderLineItem{
			ID:       li.ID,
			SKU:      li.SKU,
			Title:    li.Title,
			Quantity: li.Quantity,
			Price:    parseDecimal(li.Price),
		}
		if li.DiscountedPrice != "" {
			d := parseDecimal(li.DiscountedPrice)
			item.DiscountedPrice = &d
		}
		order.LineItems = append(order.LineItems, item)
	}

	if p.EInvoice != nil {
		order.EInvoice = &integration.EInvoiceOverride{
			Active:             p.EInvoice.Active,
			FiscalName:         p.EInvoice.FiscalName,
			Identification:     p.EInvoice.Identification,
			IdentificationType: p.EInvoice.IdentificationType,
			Email:              p.EInvoice.Email,
			Address:            p.EInvoice.Address.toDomainAddress(),
		}
	}

	return order
}

// toDomainCustomer converts a wire customer into a domain OrderCustomer
func (p *customerPayload) toDomainCustomer() integration.OrderCustomer {
	return integration.OrderCustomer{
		Email:          p.Email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Phone:          p.Phone,
		Identification: p.Identification,
		Address:        p.Address.toDomainAddress(),
	}
}

// toDomainAddress converts a wire address into a domain Address
func (p addressPayload) toDomainAddress() integration.Address {
	return integration.Address{
		Line1:    p.Line1,
		City:     p.City,
		Province: p.Province,
		Country:  p.Country,
		Zip:      p.Zip,
	}
}
