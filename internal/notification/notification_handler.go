package notification

import (
	"net/http"

	"go-expense/internal/shared/apperror"
	"go-expense/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("notification.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("notification request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func actorID(c *gin.Context) string {
	if id := c.GetString("user_id_validated"); id != "" {
		return id
	}
	return c.GetString("user_id")
}

func (h *Handler) List(c *gin.Context) {
	companyID := c.GetString("company_id")
	unreadOnly := c.DefaultQuery("unread", "false") == "true"

	resp, err := h.service.ListForRecipient(c.Request.Context(), companyID, actorID(c), unreadOnly)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) MarkRead(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	if err := h.service.MarkRead(c.Request.Context(), companyID, actorID(c), id); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"read": true}, nil)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	companyID := c.GetString("company_id")

	if err := h.service.MarkAllRead(c.Request.Context(), companyID, actorID(c)); err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"read": true}, nil)
}
