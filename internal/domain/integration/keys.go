package integration

// StepOp names a guarded side-effecting pipeline step.
type StepOp string

const (
	StepOpInvoice         StepOp = "invoice"
	StepOpPayment         StepOp = "payment"
	StepOpInventoryAdjust StepOp = "inventory-adjust"
	StepOpTransfer        StepOp = "transfer"
)

// StepKey builds the idempotency key for a step on an order. Each step
// carries its own key so steps are independently retryable: a failed
// payment never forces re-creation of a completed invoice.
func StepKey(op StepOp, orderID string) string {
	return string(op) + ":" + orderID
}
