package expense

type CreateExpenseRequest struct {
	Description string  `json:"description" binding:"required"`
	Date        string  `json:"date" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	PaidBy      string  `json:"paid_by" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gte=0"`
	Currency    string  `json:"currency" binding:"required,iso4217"`
	Remarks     string  `json:"remarks"`
}

type UpdateExpenseRequest struct {
	Description string  `json:"description" binding:"required"`
	Date        string  `json:"date" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	PaidBy      string  `json:"paid_by" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gte=0"`
	Currency    string  `json:"currency" binding:"required,iso4217"`
	Remarks     string  `json:"remarks"`
}

type ExpenseResponse struct {
	ID          string  `json:"id"`
	CompanyID   string  `json:"company_id"`
	OwnerID     string  `json:"owner_id"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	PaidBy      string  `json:"paid_by"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Remarks     string  `json:"remarks"`
	Status      string  `json:"status"`

	SequenceMatters       bool `json:"sequence_matters,omitempty"`
	MinApprovalPercentage int  `json:"min_approval_percentage,omitempty"`
	ChainSize             int  `json:"chain_size,omitempty"`

	SubmittedAt *string `json:"submitted_at,omitempty"`
	DecidedAt   *string `json:"decided_at,omitempty"`
}

// GroupedExpensesResponse is the owner dashboard projection
type GroupedExpensesResponse struct {
	Draft     []ExpenseResponse `json:"draft"`
	Submitted []ExpenseResponse `json:"submitted"`
	Approved  []ExpenseResponse `json:"approved"`
	Rejected  []ExpenseResponse `json:"rejected"`
}

// StatusCurrencyTotal is one aggregate row. Totals are grouped per
// currency on purpose: amounts in different currencies are never summed
// together.
type StatusCurrencyTotal struct {
	Status      string  `json:"status"`
	Currency    string  `json:"currency"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}
