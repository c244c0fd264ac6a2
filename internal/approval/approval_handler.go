package approval

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go-expense/internal/shared/apperror"
	"go-expense/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("approval.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.handler")
	}
	return &Handler{service: service, rdb: rdb, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("approval request failed",
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

func (h *Handler) Submit(c *gin.Context) {
	companyID := c.GetString("company_id")
	expenseID := c.Param("id")

	resp, err := h.service.Submit(c.Request.Context(), companyID, actorID(c), expenseID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Decide(c *gin.Context) {
	companyID := c.GetString("company_id")
	expenseID := c.Param("id")

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http decision validation failed", zap.Error(err))
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, err.Error())
		return
	}

	resp, err := h.service.RecordDecision(c.Request.Context(), companyID, actorID(c), expenseID, req)
	if err != nil {
		h.releaseIdempotencyLock(c)
		h.writeServiceError(c, err)
		return
	}

	h.storeIdempotentResponse(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Pending(c *gin.Context) {
	companyID := c.GetString("company_id")

	resp, err := h.service.PendingFor(c.Request.Context(), companyID, actorID(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	total := int64(len(resp))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp) {
		start = len(resp)
	}
	if end > len(resp) {
		end = len(resp)
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) Decisions(c *gin.Context) {
	companyID := c.GetString("company_id")
	expenseID := c.Param("id")

	resp, err := h.service.Decisions(c.Request.Context(), companyID, expenseID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Chain(c *gin.Context) {
	companyID := c.GetString("company_id")
	expenseID := c.Param("id")

	resp, err := h.service.Chain(c.Request.Context(), companyID, expenseID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// storeIdempotentResponse caches the outcome under the key set by the
// idempotency middleware so a retried POST replays instead of re-deciding.
func (h *Handler) storeIdempotentResponse(c *gin.Context, resp DecisionOutcome) {
	cacheKey := c.GetString("idempotency_cache_key")
	if cacheKey == "" || h.rdb == nil {
		return
	}
	if payload, err := json.Marshal(resp); err == nil {
		h.rdb.Set(c.Request.Context(), cacheKey, payload, 10*time.Minute)
	}
	h.releaseIdempotencyLock(c)
}

func (h *Handler) releaseIdempotencyLock(c *gin.Context) {
	lockKey := c.GetString("idempotency_lock_key")
	if lockKey == "" || h.rdb == nil {
		return
	}
	h.rdb.Del(c.Request.Context(), lockKey)
}
