package dto

import "time"

// OrderWebhookRequest is the inbound order event payload. The event id
// is what deduplicates redelivered webhooks; the order itself is always
// re-fetched from the commerce platform rather than trusted from the
// payload.
type OrderWebhookRequest struct {
	EventID string `json:"event_id"`
	OrderID string `json:"order_id" binding:"required"`
	Topic   string `json:"topic"`
}

// DedupKey returns the key used to suppress duplicate deliveries.
// Deliveries without an event id fall back to the order id, which
// collapses retriggers of the same order inside the TTL window.
func (r OrderWebhookRequest) DedupKey() string {
	if r.EventID != "" {
		return r.EventID
	}
	return "order:" + r.OrderID
}

// WebhookAck is the response to a deduplicated webhook delivery.
type WebhookAck struct {
	Duplicate bool `json:"duplicate"`
}

// BulkSyncRequest starts a streaming bulk run. JobID is optional; the
// server assigns one when absent. Since only applies to order runs.
type BulkSyncRequest struct {
	JobID string     `json:"job_id"`
	Since *time.Time `json:"since"`
}

// CancelJobResponse reports the outcome of a job cancellation request.
type CancelJobResponse struct {
	JobID    string `json:"job_id"`
	Canceled bool   `json:"canceled"`
}

// HealthResponse reports process liveness and dependency reachability.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
