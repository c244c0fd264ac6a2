package approval_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-expense/internal/approval"
	approvalerrors "go-expense/internal/approval/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	submitFn         func(ctx context.Context, companyID, actorID, expenseID string) (approval.SubmitResponse, error)
	recordDecisionFn func(ctx context.Context, companyID, approverID, expenseID string, req approval.DecisionRequest) (approval.DecisionOutcome, error)
	pendingForFn     func(ctx context.Context, companyID, approverID string) ([]approval.PendingExpenseResponse, error)
	decisionsFn      func(ctx context.Context, companyID, expenseID string) ([]approval.DecisionResponse, error)
	chainFn          func(ctx context.Context, companyID, expenseID string) ([]approval.ChainApproverResponse, error)
}

func (f *fakeService) Submit(ctx context.Context, companyID, actorID, expenseID string) (approval.SubmitResponse, error) {
	return f.submitFn(ctx, companyID, actorID, expenseID)
}
func (f *fakeService) RecordDecision(ctx context.Context, companyID, approverID, expenseID string, req approval.DecisionRequest) (approval.DecisionOutcome, error) {
	return f.recordDecisionFn(ctx, companyID, approverID, expenseID, req)
}
func (f *fakeService) PendingFor(ctx context.Context, companyID, approverID string) ([]approval.PendingExpenseResponse, error) {
	return f.pendingForFn(ctx, companyID, approverID)
}
func (f *fakeService) Decisions(ctx context.Context, companyID, expenseID string) ([]approval.DecisionResponse, error) {
	return f.decisionsFn(ctx, companyID, expenseID)
}
func (f *fakeService) Chain(ctx context.Context, companyID, expenseID string) ([]approval.ChainApproverResponse, error) {
	return f.chainFn(ctx, companyID, expenseID)
}

func TestHandler_SubmitAndPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	companyID := uuid.New().String()
	userID := uuid.New().String()
	expenseID := uuid.New().String()

	svc := &fakeService{
		submitFn: func(ctx context.Context, cid, aid, eid string) (approval.SubmitResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, userID, aid)
			assert.Equal(t, expenseID, eid)
			return approval.SubmitResponse{ExpenseID: eid, Status: "SUBMITTED", ChainSize: 2}, nil
		},
		pendingForFn: func(ctx context.Context, cid, aid string) ([]approval.PendingExpenseResponse, error) {
			return []approval.PendingExpenseResponse{{ExpenseID: uuid.New().String()}}, nil
		},
	}

	h := approval.NewHandler(svc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", companyID)
	c.Set("user_id_validated", userID)
	c.Params = gin.Params{{Key: "id", Value: expenseID}}
	c.Request = httptest.NewRequest(http.MethodPost, "/expenses/"+expenseID+"/submit", nil)
	h.Submit(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SUBMITTED")

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Set("company_id", companyID)
	c2.Set("user_id_validated", userID)
	c2.Request = httptest.NewRequest(http.MethodGet, "/approvals/pending", nil)
	h.Pending(c2)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestHandler_DecideRejectsUnknownVerdict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := approval.NewHandler(&fakeService{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("user_id_validated", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodPost, "/expenses/x/decisions", strings.NewReader(`{"decision":"MAYBE"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Decide(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_DecideMapsEngineErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		recordDecisionFn: func(ctx context.Context, cid, aid, eid string, req approval.DecisionRequest) (approval.DecisionOutcome, error) {
			return approval.DecisionOutcome{}, approvalerrors.ErrOutOfOrderDecision
		},
	}
	h := approval.NewHandler(svc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("user_id_validated", uuid.New().String())
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	c.Request = httptest.NewRequest(http.MethodPost, "/expenses/x/decisions", strings.NewReader(`{"decision":"APPROVED"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Decide(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}
