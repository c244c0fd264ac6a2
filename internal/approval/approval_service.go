package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	approvalerrors "go-expense/internal/approval/errors"
	"go-expense/internal/approvalrule"
	"go-expense/internal/events"
	"go-expense/internal/expense"
	expenseerrors "go-expense/internal/expense/errors"
	"go-expense/internal/messaging/kafka"
	"go-expense/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=approval_service.go -destination=mock/approval_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, companyID, actorID, expenseID string) (SubmitResponse, error)
	RecordDecision(ctx context.Context, companyID, approverID, expenseID string, req DecisionRequest) (DecisionOutcome, error)
	PendingFor(ctx context.Context, companyID, approverID string) ([]PendingExpenseResponse, error)
	Decisions(ctx context.Context, companyID, expenseID string) ([]DecisionResponse, error)
	Chain(ctx context.Context, companyID, expenseID string) ([]ChainApproverResponse, error)
}

// expenseLocks serializes mutations per expense id so two approvers
// deciding on the same expense never interleave their aggregate
// computations. Different expenses map to different stripes and do not
// block each other.
type expenseLocks struct {
	stripes [64]sync.Mutex
}

func (l *expenseLocks) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu
}

type service struct {
	db       *sql.DB
	repo     Repository
	expenses expense.Repository
	resolver approvalrule.Resolver
	outbox   kafka.OutboxRepository
	rdb      *redis.Client
	locks    *expenseLocks
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	expenses expense.Repository,
	resolver approvalrule.Resolver,
	outbox kafka.OutboxRepository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("approval.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		expenses: expenses,
		resolver: resolver,
		outbox:   outbox,
		rdb:      rdb,
		locks:    &expenseLocks{},
		logger:   l,
	}
}

// Submit moves a DRAFT expense to SUBMITTED. The effective chain is
// resolved here and stamped onto the expense as a snapshot; later edits
// to the rule never touch an in-flight expense. Resolution failures
// leave the expense in DRAFT.
func (s *service) Submit(ctx context.Context, companyID, actorID, expenseID string) (SubmitResponse, error) {
	mu := s.locks.lock(expenseID)
	defer mu.Unlock()

	e, err := s.expenses.FindByIDAndCompany(ctx, companyID, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmitResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return SubmitResponse{}, err
	}
	if e.OwnerID.String() != actorID {
		return SubmitResponse{}, expenseerrors.ErrNotExpenseOwner
	}
	if e.Status != expense.StatusDraft {
		s.logger.Warn("submit rejected, expense not in draft",
			zap.String("expense_id", expenseID),
			zap.String("status", e.Status),
		)
		return SubmitResponse{}, approvalerrors.ErrInvalidStateTransition
	}

	chain, err := s.resolver.Resolve(ctx, companyID, e.OwnerID.String())
	if err != nil {
		return SubmitResponse{}, err
	}

	now := time.Now().UTC()
	e.SequenceMatters = chain.SequenceMatters
	e.MinApprovalPercentage = chain.MinApprovalPercentage
	e.ChainSize = len(chain.Approvers)
	e.SubmittedAt = &now

	companyUUID := e.CompanyID
	rows := make([]ChainApprover, len(chain.Approvers))
	approverIDs := make([]string, len(chain.Approvers))
	for i, a := range chain.Approvers {
		approverUUID, err := uuid.Parse(a.ApproverID)
		if err != nil {
			return SubmitResponse{}, expenseerrors.ErrInvalidActorID
		}
		rows[i] = ChainApprover{
			ID:         uuid.New(),
			CompanyID:  companyUUID,
			ExpenseID:  e.ID,
			ApproverID: approverUUID,
			Position:   i,
			Required:   a.Required,
		}
		approverIDs[i] = a.ApproverID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit begin tx failed", zap.Error(err))
		return SubmitResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	etx := s.expenses.WithTx(tx)

	if err := qtx.CreateChain(ctx, rows); err != nil {
		s.logger.Error("submit chain snapshot failed",
			zap.String("expense_id", expenseID),
			zap.Error(err),
		)
		return SubmitResponse{}, err
	}

	ok, err := etx.MarkSubmitted(ctx, e)
	if err != nil {
		return SubmitResponse{}, err
	}
	if !ok {
		// Lost the DRAFT compare-and-swap to a concurrent submit
		return SubmitResponse{}, approvalerrors.ErrInvalidStateTransition
	}

	if err := s.enqueueSubmittedEvent(ctx, tx, e, approverIDs, now); err != nil {
		return SubmitResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit commit failed", zap.String("expense_id", expenseID), zap.Error(err))
		return SubmitResponse{}, err
	}

	s.invalidateTotals(ctx, companyID)
	s.logger.Info("expense submitted",
		zap.String("expense_id", expenseID),
		zap.String("company_id", companyID),
		zap.Int("chain_size", e.ChainSize),
		zap.Bool("sequence_matters", e.SequenceMatters),
		zap.Int("min_approval_percentage", e.MinApprovalPercentage),
	)

	return SubmitResponse{
		ExpenseID:             expenseID,
		Status:                expense.StatusSubmitted,
		SequenceMatters:       e.SequenceMatters,
		MinApprovalPercentage: e.MinApprovalPercentage,
		ChainSize:             e.ChainSize,
		ApproverIDs:           approverIDs,
		SubmittedAt:           now.Format(time.RFC3339),
	}, nil
}

// RecordDecision applies one approver's verdict and computes the
// aggregate outcome. The expense stays SUBMITTED until either every
// approval condition holds, a required approver rejects, or the
// threshold becomes unreachable.
func (s *service) RecordDecision(ctx context.Context, companyID, approverID, expenseID string, req DecisionRequest) (DecisionOutcome, error) {
	mu := s.locks.lock(expenseID)
	defer mu.Unlock()

	e, err := s.expenses.FindByIDAndCompany(ctx, companyID, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DecisionOutcome{}, expenseerrors.ErrExpenseNotFound
		}
		return DecisionOutcome{}, err
	}
	if e.Status != expense.StatusSubmitted {
		return DecisionOutcome{}, approvalerrors.ErrInvalidStateTransition
	}

	chain, err := s.repo.FindChain(ctx, companyID, expenseID)
	if err != nil {
		return DecisionOutcome{}, err
	}

	member, ok := findMember(chain, approverID)
	if !ok {
		s.logger.Warn("decision from non-chain member",
			zap.String("expense_id", expenseID),
			zap.String("approver_id", approverID),
		)
		return DecisionOutcome{}, approvalerrors.ErrUnauthorizedApprover
	}

	decisions, err := s.repo.FindDecisions(ctx, companyID, expenseID)
	if err != nil {
		return DecisionOutcome{}, err
	}
	decided := decisionIndex(decisions)

	// Sequencing gates approvals only. A rejection anywhere in the chain
	// is always accepted and short-circuits through the veto or the
	// unreachable-threshold check below.
	if req.Decision == DecisionApproved && e.SequenceMatters {
		if blocked := earlierRequiredUndecided(chain, member, decided); blocked {
			return DecisionOutcome{}, approvalerrors.ErrOutOfOrderDecision
		}
	}

	now := time.Now().UTC()
	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return DecisionOutcome{}, approvalerrors.ErrUnauthorizedApprover
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("record decision begin tx failed", zap.Error(err))
		return DecisionOutcome{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	etx := s.expenses.WithTx(tx)

	if err := qtx.UpsertDecision(ctx, &ApprovalDecision{
		ID:         uuid.New(),
		CompanyID:  e.CompanyID,
		ExpenseID:  e.ID,
		ApproverID: approverUUID,
		Decision:   req.Decision,
		Comment:    req.Comment,
		DecidedAt:  now,
	}); err != nil {
		s.logger.Error("record decision persist failed",
			zap.String("expense_id", expenseID),
			zap.Error(err),
		)
		return DecisionOutcome{}, err
	}
	decided[approverID] = req.Decision

	next := s.evaluate(e, chain, member, req.Decision, decided)

	if next != expense.StatusSubmitted {
		swapped, err := etx.UpdateStatusIfCurrent(ctx, companyID, expenseID, expense.StatusSubmitted, next, &now)
		if err != nil {
			return DecisionOutcome{}, err
		}
		if !swapped {
			return DecisionOutcome{}, approvalerrors.ErrDecisionConflict
		}
		if err := s.enqueueDecidedEvent(ctx, tx, e, next, now); err != nil {
			return DecisionOutcome{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("record decision commit failed", zap.String("expense_id", expenseID), zap.Error(err))
		return DecisionOutcome{}, err
	}

	if next != expense.StatusSubmitted {
		s.invalidateTotals(ctx, companyID)
	}

	s.logger.Info("decision recorded",
		zap.String("expense_id", expenseID),
		zap.String("approver_id", approverID),
		zap.String("decision", req.Decision),
		zap.String("status", next),
	)

	return DecisionOutcome{
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Decision:   req.Decision,
		Status:     next,
		DecidedAt:  now.Format(time.RFC3339),
	}, nil
}

// evaluate computes the expense's next status from the full decision set.
//
// The percentage comparison is done in integers against the chain size
// frozen at submission: approved*100 >= minPct*chainSize. Dividing first
// would drift on thresholds like 1/3 vs 33%.
func (s *service) evaluate(e *expense.Expense, chain []ChainApprover, member *ChainApprover, decision string, decided map[string]string) string {
	if decision == DecisionRejected && member.Required && !member.Removed {
		// Required veto: overrides any percentage math
		return expense.StatusRejected
	}

	approved := 0
	undecided := 0
	requiredPending := false
	for i := range chain {
		a := &chain[i]
		d, has := decided[a.ApproverID.String()]
		switch {
		case has && d == DecisionApproved:
			approved++
		case !has && !a.Removed:
			undecided++
		}
		if a.Required && !a.Removed && d != DecisionApproved {
			requiredPending = true
		}
	}

	minPct := e.MinApprovalPercentage
	chainSize := e.ChainSize
	if chainSize == 0 {
		// Cannot happen for a submitted expense; treat defensively as pending
		return expense.StatusSubmitted
	}

	if approved*100 >= minPct*chainSize && !requiredPending {
		return expense.StatusApproved
	}

	// Unreachable threshold: even if every undecided live approver
	// approves, the percentage can no longer be met
	if (approved+undecided)*100 < minPct*chainSize {
		return expense.StatusRejected
	}

	return expense.StatusSubmitted
}

// PendingFor lists the SUBMITTED expenses where the approver can act
// right now: chain member, not yet decided, and not blocked by an
// earlier required approver when the chain is sequenced.
func (s *service) PendingFor(ctx context.Context, companyID, approverID string) ([]PendingExpenseResponse, error) {
	candidates, err := s.repo.ListSubmittedForApprover(ctx, companyID, approverID)
	if err != nil {
		return nil, err
	}

	pending := make([]PendingExpenseResponse, 0, len(candidates))
	for i := range candidates {
		e := &candidates[i]
		expenseID := e.ID.String()

		chain, err := s.repo.FindChain(ctx, companyID, expenseID)
		if err != nil {
			return nil, err
		}
		member, ok := findMember(chain, approverID)
		if !ok {
			continue
		}

		decisions, err := s.repo.FindDecisions(ctx, companyID, expenseID)
		if err != nil {
			return nil, err
		}
		decided := decisionIndex(decisions)

		if _, already := decided[approverID]; already {
			continue
		}
		if e.SequenceMatters && earlierRequiredUndecided(chain, member, decided) {
			continue
		}

		entry := PendingExpenseResponse{
			ExpenseID:   expenseID,
			OwnerID:     e.OwnerID.String(),
			Description: e.Description,
			Date:        e.ExpenseDate.Format("2006-01-02"),
			Category:    e.Category,
			Amount:      e.Amount,
			Currency:    e.Currency,
		}
		if e.SubmittedAt != nil {
			v := e.SubmittedAt.Format(time.RFC3339)
			entry.SubmittedAt = &v
		}
		pending = append(pending, entry)
	}

	return pending, nil
}

func (s *service) Decisions(ctx context.Context, companyID, expenseID string) ([]DecisionResponse, error) {
	if _, err := s.expenses.FindByIDAndCompany(ctx, companyID, expenseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expenseerrors.ErrExpenseNotFound
		}
		return nil, err
	}

	decisions, err := s.repo.FindDecisions(ctx, companyID, expenseID)
	if err != nil {
		return nil, err
	}

	resp := make([]DecisionResponse, len(decisions))
	for i, d := range decisions {
		resp[i] = DecisionResponse{
			ApproverID: d.ApproverID.String(),
			Decision:   d.Decision,
			Comment:    d.Comment,
			DecidedAt:  d.DecidedAt.Format(time.RFC3339),
		}
	}
	return resp, nil
}

func (s *service) Chain(ctx context.Context, companyID, expenseID string) ([]ChainApproverResponse, error) {
	if _, err := s.expenses.FindByIDAndCompany(ctx, companyID, expenseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expenseerrors.ErrExpenseNotFound
		}
		return nil, err
	}

	chain, err := s.repo.FindChain(ctx, companyID, expenseID)
	if err != nil {
		return nil, err
	}

	resp := make([]ChainApproverResponse, len(chain))
	for i, a := range chain {
		resp[i] = ChainApproverResponse{
			ApproverID: a.ApproverID.String(),
			Position:   a.Position,
			Required:   a.Required,
			Removed:    a.Removed,
		}
	}
	return resp, nil
}

func (s *service) enqueueSubmittedEvent(ctx context.Context, tx *sql.Tx, e *expense.Expense, approverIDs []string, now time.Time) error {
	requestID := contextutil.GetRequestID(ctx)
	payload, err := json.Marshal(events.ExpenseSubmittedEvent{
		EventType:   events.EventTypeExpenseSubmitted,
		RequestID:   requestID,
		ExpenseID:   e.ID.String(),
		CompanyID:   e.CompanyID.String(),
		OwnerID:     e.OwnerID.String(),
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    e.Currency,
		ApproverIDs: approverIDs,
		OccurredAt:  now,
	})
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		AggregateType: "expense",
		AggregateID:   e.ID.String(),
		EventType:     events.EventTypeExpenseSubmitted,
		Topic:         events.ExpenseLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) enqueueDecidedEvent(ctx context.Context, tx *sql.Tx, e *expense.Expense, status string, now time.Time) error {
	requestID := contextutil.GetRequestID(ctx)
	payload, err := json.Marshal(events.ExpenseDecidedEvent{
		EventType:   events.EventTypeExpenseDecided,
		RequestID:   requestID,
		ExpenseID:   e.ID.String(),
		CompanyID:   e.CompanyID.String(),
		OwnerID:     e.OwnerID.String(),
		Description: e.Description,
		Status:      status,
		OccurredAt:  now,
	})
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		AggregateType: "expense",
		AggregateID:   e.ID.String(),
		EventType:     events.EventTypeExpenseDecided,
		Topic:         events.ExpenseLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) invalidateTotals(ctx context.Context, companyID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := expense.GetTotalsCacheKey(companyID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate totals cache",
			zap.Error(err),
			zap.String("key", cacheKey),
		)
	}
}

func findMember(chain []ChainApprover, approverID string) (*ChainApprover, bool) {
	for i := range chain {
		if chain[i].ApproverID.String() == approverID && !chain[i].Removed {
			return &chain[i], true
		}
	}
	return nil, false
}

func decisionIndex(decisions []ApprovalDecision) map[string]string {
	idx := make(map[string]string, len(decisions))
	for _, d := range decisions {
		idx[d.ApproverID.String()] = d.Decision
	}
	return idx
}

// earlierRequiredUndecided reports whether a live required approver ahead
// of member in the chain has not approved yet.
func earlierRequiredUndecided(chain []ChainApprover, member *ChainApprover, decided map[string]string) bool {
	for i := range chain {
		a := &chain[i]
		if a.Position >= member.Position {
			break
		}
		if !a.Required || a.Removed {
			continue
		}
		if decided[a.ApproverID.String()] != DecisionApproved {
			return true
		}
	}
	return false
}
