package ruleerrors

import (
	"net/http"

	"go-expense/internal/shared/apperror"
)

var (
	ErrRuleNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval rule not found",
		http.StatusNotFound,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"employee not found in company",
		http.StatusNotFound,
	)
	ErrApproverNotFound = apperror.New(
		apperror.CodeInvalidInput,
		"approver not found in company",
		http.StatusBadRequest,
	)
	ErrDuplicateApprover = apperror.New(
		apperror.CodeInvalidInput,
		"the same approver appears more than once in the chain",
		http.StatusBadRequest,
	)
	ErrSelfApprover = apperror.New(
		apperror.CodeInvalidInput,
		"an employee cannot be an approver of their own expenses",
		http.StatusBadRequest,
	)

	// A rule with no approvers and manager_is_approver=false would approve
	// nothing and gate nothing. It is rejected rather than treated as
	// auto-approve.
	ErrDegenerateRule = apperror.New(
		apperror.CodeInvalidInput,
		"rule has no approvers and does not include the manager",
		http.StatusBadRequest,
	)

	ErrRuleNotResolvable = apperror.New(
		apperror.CodeInvalidState,
		"no approval chain can be built for this employee",
		http.StatusUnprocessableEntity,
	)
)
