package approval

type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	Comment  string `json:"comment" binding:"omitempty,max=500"`
}

// SubmitResponse reports the snapshot an expense was submitted with.
type SubmitResponse struct {
	ExpenseID             string   `json:"expense_id"`
	Status                string   `json:"status"`
	SequenceMatters       bool     `json:"sequence_matters"`
	MinApprovalPercentage int      `json:"min_approval_percentage"`
	ChainSize             int      `json:"chain_size"`
	ApproverIDs           []string `json:"approver_ids"`
	SubmittedAt           string   `json:"submitted_at"`
}

// DecisionOutcome is returned from recording a decision: the decision as
// stored plus the expense status it produced, which is unchanged while
// the expense is still pending.
type DecisionOutcome struct {
	ExpenseID  string `json:"expense_id"`
	ApproverID string `json:"approver_id"`
	Decision   string `json:"decision"`
	Status     string `json:"status"`
	DecidedAt  string `json:"decided_at"`
}

type DecisionResponse struct {
	ApproverID string `json:"approver_id"`
	Decision   string `json:"decision"`
	Comment    string `json:"comment,omitempty"`
	DecidedAt  string `json:"decided_at"`
}

type ChainApproverResponse struct {
	ApproverID string `json:"approver_id"`
	Position   int    `json:"position"`
	Required   bool   `json:"required"`
	Removed    bool   `json:"removed,omitempty"`
}

// PendingExpenseResponse is one entry of an approver's work queue.
type PendingExpenseResponse struct {
	ExpenseID   string  `json:"expense_id"`
	OwnerID     string  `json:"owner_id"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	SubmittedAt *string `json:"submitted_at,omitempty"`
}
