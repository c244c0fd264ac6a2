package expenseerrors

import (
	"net/http"

	"go-expense/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrExpenseNotFound = apperror.New(
		apperror.CodeNotFound,
		"expense not found",
		http.StatusNotFound,
	)
	ErrNotExpenseOwner = apperror.New(
		apperror.CodeForbidden,
		"only the expense owner may perform this action",
		http.StatusForbidden,
	)
	ErrNotEditable = apperror.New(
		apperror.CodeInvalidState,
		"only DRAFT expenses can be edited or deleted",
		http.StatusBadRequest,
	)
)
