package approvalrule

type RuleApproverRequest struct {
	ApproverID string `json:"approver_id" binding:"required,uuid"`
	Required   bool   `json:"required"`
}

type UpsertRuleRequest struct {
	ManagerID             *string               `json:"manager_id" binding:"omitempty,uuid"`
	SequenceMatters       bool                  `json:"sequence_matters"`
	MinApprovalPercentage int                   `json:"min_approval_percentage" binding:"gte=0,lte=100"`
	ManagerIsApprover     bool                  `json:"manager_is_approver"`
	Approvers             []RuleApproverRequest `json:"approvers"`
}

type RuleApproverResponse struct {
	ApproverID string `json:"approver_id"`
	Position   int    `json:"position"`
	Required   bool   `json:"required"`
}

type RuleResponse struct {
	ID                    string                 `json:"id"`
	CompanyID             string                 `json:"company_id"`
	EmployeeID            string                 `json:"employee_id"`
	ManagerID             *string                `json:"manager_id,omitempty"`
	SequenceMatters       bool                   `json:"sequence_matters"`
	MinApprovalPercentage int                    `json:"min_approval_percentage"`
	ManagerIsApprover     bool                   `json:"manager_is_approver"`
	Approvers             []RuleApproverResponse `json:"approvers"`
}
