package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/platform"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(&Config{
		BaseURL: server.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	}, platform.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}, nil)
	require.NoError(t, err)
	return adapter
}

func TestAdapter_GetItem(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/item-7", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "item-7",
			"name": "Mug",
			"inventory": map[string]interface{}{
				"warehouses": []map[string]interface{}{
					{"id": "wh-1", "availableQuantity": 12},
					{"id": "wh-2", "availableQuantity": 0},
				},
			},
		})
	}))

	item, err := adapter.GetItem(context.Background(), "item-7")
	require.NoError(t, err)

	assert.Equal(t, "item-7", item.ID)
	assert.True(t, item.AvailableIn("wh-1").Equal(decimal.NewFromInt(12)))
	assert.True(t, item.AvailableIn("wh-2").IsZero())
	assert.True(t, item.AvailableIn("wh-unknown").IsZero())
}

func TestAdapter_FindItemByReference(t *testing.T) {
	t.Run("matches exact reference", func(t *testing.T) {
		adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "SKU-1", r.URL.Query().Get("reference"))
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": "item-1", "reference": "SKU-10"},
				{"id": "item-2", "reference": "SKU-1"},
			})
		}))

		item, err := adapter.FindItemByReference(context.Background(), "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "item-2", item.ID)
	})

	t.Run("no match yields not found", func(t *testing.T) {
		adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]interface{}{})
		}))

		_, err := adapter.FindItemByReference(context.Background(), "SKU-404")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAdapter_CreateContact(t *testing.T) {
	t.Run("creates contact with identification", func(t *testing.T) {
		adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/contacts", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			ident := body["identificationObject"].(map[string]interface{})
			assert.Equal(t, "3001234567", ident["number"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":    "contact-12",
				"name":  "Ana Diaz",
				"email": "buyer@example.com",
				"identificationObject": map[string]interface{}{
					"number": "3001234567",
					"type":   "CC",
				},
			})
		}))

		contact, err := adapter.CreateContact(context.Background(), integration.ContactInput{
			Name:               "Ana Diaz",
			Email:              "buyer@example.com",
			Identification:     "3001234567",
			IdentificationType: "CC",
		})
		require.NoError(t, err)
		assert.Equal(t, "contact-12", contact.ID)
		assert.Equal(t, "CC", contact.IdentificationType)
	})

	t.Run("maps identification type rejection to domain error", func(t *testing.T) {
		adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": "identification object requires a type",
				"code":    "invalid_identification",
			})
		}))

		_, err := adapter.CreateContact(context.Background(), integration.ContactInput{
			Name:  "Ana Diaz",
			Email: "buyer@example.com",
		})
		assert.ErrorIs(t, err, integration.ErrMissingIdentificationType)
	})
}

func TestAdapter_CreateInvoice(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoices", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "contact-12", body["clientId"])
		assert.Equal(t, "res-1", body["numberTemplateId"])
		assert.Len(t, body["items"], 2)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "inv-77",
			"total": 125000,
			"numberTemplate": map[string]interface{}{
				"fullNumber": "FV-1-42",
				"prefix":     "FV-1",
				"number":     "42",
			},
		})
	}))

	invoice, err := adapter.CreateInvoice(context.Background(), integration.InvoiceInput{
		ContactID:     "contact-12",
		Date:          time.Now(),
		ResolutionID:  "res-1",
		PaymentMethod: "cash",
		Lines: []integration.InvoiceLine{
			{ItemID: "item-1", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(45000)},
			{ItemID: "item-2", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(35000)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "inv-77", invoice.ID)
	assert.Equal(t, "FV-1-42", invoice.Number.Display())
}

func TestAdapter_CreateInventoryTransfer(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/warehouse-transfers", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "wh-2", body["originWarehouseId"])
		assert.Equal(t, "wh-1", body["destinationWarehouseId"])

		json.NewEncoder(w).Encode(map[string]interface{}{"id": "tr-5"})
	}))

	transfer, err := adapter.CreateInventoryTransfer(context.Background(), integration.TransferInput{
		OriginWarehouseID:      "wh-2",
		DestinationWarehouseID: "wh-1",
		Date:                   time.Now(),
		Lines: []integration.AdjustmentLine{
			{ItemID: "item-1", Quantity: decimal.NewFromInt(2)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "tr-5", transfer.ID)
}

func TestAdapter_ListWarehouses(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "wh-1", "name": "Main"},
			{"id": "wh-2", "name": "Outlet"},
		})
	}))

	warehouses, err := adapter.ListWarehouses(context.Background())
	require.NoError(t, err)
	assert.Len(t, warehouses, 2)
	assert.Equal(t, "Main", warehouses[0].Name)
}

func TestAdapter_RateLimit(t *testing.T) {
	calls := 0
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := adapter.ListWarehouses(context.Background())
	assert.ErrorIs(t, err, integration.ErrRateLimited)
	assert.Equal(t, 2, calls)
}
