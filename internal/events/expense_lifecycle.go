package events

import "time"

const ExpenseLifecycleTopic = "expense.claim.lifecycle.v1"

const (
	EventTypeExpenseSubmitted = "expense_submitted"
	EventTypeExpenseDecided   = "expense_decided"
)

// ExpenseSubmittedEvent carries the snapshotted approver ids so consumers
// can fan out without reading the chain back from the database.
type ExpenseSubmittedEvent struct {
	EventType   string    `json:"event_type"`
	RequestID   string    `json:"request_id,omitempty"`
	ExpenseID   string    `json:"expense_id"`
	CompanyID   string    `json:"company_id"`
	OwnerID     string    `json:"owner_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	ApproverIDs []string  `json:"approver_ids"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ExpenseDecidedEvent struct {
	EventType   string    `json:"event_type"`
	RequestID   string    `json:"request_id,omitempty"`
	ExpenseID   string    `json:"expense_id"`
	CompanyID   string    `json:"company_id"`
	OwnerID     string    `json:"owner_id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
