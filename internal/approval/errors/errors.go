package approvalerrors

import (
	"net/http"

	"go-expense/internal/shared/apperror"
)

var (
	ErrInvalidStateTransition = apperror.New(
		apperror.CodeInvalidState,
		"operation is not valid for the expense's current status",
		http.StatusConflict,
	)
	ErrUnauthorizedApprover = apperror.New(
		apperror.CodeForbidden,
		"approver is not part of this expense's approval chain",
		http.StatusForbidden,
	)
	ErrOutOfOrderDecision = apperror.New(
		apperror.CodeConflict,
		"an earlier required approver has not approved yet",
		http.StatusConflict,
	)
	ErrDecisionConflict = apperror.New(
		apperror.CodeConflict,
		"the expense was decided concurrently, reload and retry",
		http.StatusConflict,
	)
)
