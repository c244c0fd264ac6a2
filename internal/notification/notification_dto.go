package notification

type NotificationResponse struct {
	ID        string `json:"id"`
	ExpenseID string `json:"expense_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}
