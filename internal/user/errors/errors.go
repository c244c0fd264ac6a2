package usererrors

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
	ErrInvalidUserID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid user id",
		http.StatusBadRequest,
	)
	ErrUserNotFound = apperror.New(
		apperror.CodeNotFound,
		"user not found",
		http.StatusNotFound,
	)
	ErrEmailTaken = apperror.New(
		apperror.CodeConflict,
		"email is already registered",
		http.StatusConflict,
	)
	ErrManagerNotFound = apperror.New(
		apperror.CodeInvalidInput,
		"manager does not exist in this company",
		http.StatusBadRequest,
	)
	ErrInvalidManager = apperror.New(
		apperror.CodeInvalidInput,
		"manager must have the MANAGER or ADMIN role",
		http.StatusBadRequest,
	)
	ErrSelfManager = apperror.New(
		apperror.CodeInvalidInput,
		"a user cannot be their own manager",
		http.StatusBadRequest,
	)
	ErrAdminHasManager = apperror.New(
		apperror.CodeInvalidInput,
		"an ADMIN user cannot have a manager",
		http.StatusBadRequest,
	)
	ErrUserReferenced = apperror.New(
		apperror.CodeConflict,
		"user is referenced by approval rules or active approval chains; pass cascade=true to remove the references",
		http.StatusConflict,
	)
)
