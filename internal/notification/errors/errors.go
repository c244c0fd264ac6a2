package notificationerrors

import (
	"net/http"

	"go-expense/internal/shared/apperror"
)

var (
	ErrNotificationNotFound = apperror.New(
		apperror.CodeNotFound,
		"notification not found",
		http.StatusNotFound,
	)
)
