package approvalrule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	ruleerrors "go-expense/internal/approvalrule/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const ruleCachePrefix = "approval:rules:"

func ruleCacheKey(companyID, employeeID string) string {
	return ruleCachePrefix + companyID + ":" + employeeID
}

// UserDirectory is the slice of the user repository the service needs for
// referential checks.
type UserDirectory interface {
	ExistsInCompany(ctx context.Context, companyID, id string) (bool, error)
}

//go:generate mockgen -source=rule_service.go -destination=mock/rule_service_mock.go -package=mock
type Service interface {
	Upsert(ctx context.Context, companyID, employeeID string, req UpsertRuleRequest) (RuleResponse, error)
	Get(ctx context.Context, companyID, employeeID string) (RuleResponse, error)
	GetAll(ctx context.Context, companyID string) ([]RuleResponse, error)
	Delete(ctx context.Context, companyID, employeeID string) error
}

type service struct {
	db     *sql.DB
	repo   Repository
	users  UserDirectory
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	users UserDirectory,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("approvalrule.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approvalrule.service")
	}
	return &service{db: db, repo: repo, users: users, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (s *service) Upsert(ctx context.Context, companyID, employeeID string, req UpsertRuleRequest) (RuleResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return RuleResponse{}, ruleerrors.ErrEmployeeNotFound
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return RuleResponse{}, ruleerrors.ErrEmployeeNotFound
	}

	if len(req.Approvers) == 0 && !req.ManagerIsApprover {
		return RuleResponse{}, ruleerrors.ErrDegenerateRule
	}

	exists, err := s.users.ExistsInCompany(ctx, companyID, employeeID)
	if err != nil {
		return RuleResponse{}, err
	}
	if !exists {
		return RuleResponse{}, ruleerrors.ErrEmployeeNotFound
	}

	var managerUUID *uuid.UUID
	if req.ManagerID != nil {
		parsed, err := uuid.Parse(*req.ManagerID)
		if err != nil {
			return RuleResponse{}, ruleerrors.ErrApproverNotFound
		}
		exists, err := s.users.ExistsInCompany(ctx, companyID, *req.ManagerID)
		if err != nil {
			return RuleResponse{}, err
		}
		if !exists {
			return RuleResponse{}, ruleerrors.ErrApproverNotFound
		}
		managerUUID = &parsed
	}

	seen := make(map[string]struct{}, len(req.Approvers))
	approvers := make([]RuleApprover, 0, len(req.Approvers))
	for i, a := range req.Approvers {
		if a.ApproverID == employeeID {
			return RuleResponse{}, ruleerrors.ErrSelfApprover
		}
		if _, dup := seen[a.ApproverID]; dup {
			return RuleResponse{}, ruleerrors.ErrDuplicateApprover
		}
		seen[a.ApproverID] = struct{}{}

		exists, err := s.users.ExistsInCompany(ctx, companyID, a.ApproverID)
		if err != nil {
			return RuleResponse{}, err
		}
		if !exists {
			return RuleResponse{}, ruleerrors.ErrApproverNotFound
		}

		approverUUID, err := uuid.Parse(a.ApproverID)
		if err != nil {
			return RuleResponse{}, ruleerrors.ErrApproverNotFound
		}
		approvers = append(approvers, RuleApprover{
			ID:         uuid.New(),
			ApproverID: approverUUID,
			Position:   i,
			Required:   a.Required,
		})
	}

	rule := &ApprovalRule{
		ID:                    uuid.New(),
		CompanyID:             companyUUID,
		EmployeeID:            employeeUUID,
		ManagerID:             managerUUID,
		SequenceMatters:       req.SequenceMatters,
		MinApprovalPercentage: req.MinApprovalPercentage,
		ManagerIsApprover:     req.ManagerIsApprover,
		Approvers:             approvers,
	}

	if err := s.repo.Upsert(ctx, rule); err != nil {
		s.logger.Error("upsert rule failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return RuleResponse{}, err
	}

	s.invalidate(ctx, companyID, employeeID)
	s.logger.Info("upsert rule success",
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
		zap.Int("approvers", len(approvers)),
		zap.Bool("sequence_matters", req.SequenceMatters),
		zap.Int("min_approval_percentage", req.MinApprovalPercentage),
	)

	return mapToRuleResponse(*rule), nil
}

func (s *service) Get(ctx context.Context, companyID, employeeID string) (RuleResponse, error) {
	cacheKey := ruleCacheKey(companyID, employeeID)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var resp RuleResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		rule, err := s.repo.FindByEmployee(ctx, companyID, employeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return RuleResponse{}, ruleerrors.ErrRuleNotFound
			}
			return RuleResponse{}, err
		}
		resp := mapToRuleResponse(*rule)

		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, 10*time.Minute)
			}
		}
		return resp, nil
	})
	if err != nil {
		return RuleResponse{}, err
	}
	return v.(RuleResponse), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]RuleResponse, error) {
	rules, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]RuleResponse, len(rules))
	for i, r := range rules {
		resp[i] = mapToRuleResponse(r)
	}
	return resp, nil
}

func (s *service) Delete(ctx context.Context, companyID, employeeID string) error {
	if err := s.repo.DeleteByEmployee(ctx, companyID, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ruleerrors.ErrRuleNotFound
		}
		return err
	}
	s.invalidate(ctx, companyID, employeeID)
	s.logger.Info("delete rule success",
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
	)
	return nil
}

func (s *service) invalidate(ctx context.Context, companyID, employeeID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := ruleCacheKey(companyID, employeeID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate rule cache",
			zap.Error(err),
			zap.String("key", cacheKey),
		)
	}
}

func mapToRuleResponse(rule ApprovalRule) RuleResponse {
	resp := RuleResponse{
		ID:                    rule.ID.String(),
		CompanyID:             rule.CompanyID.String(),
		EmployeeID:            rule.EmployeeID.String(),
		SequenceMatters:       rule.SequenceMatters,
		MinApprovalPercentage: rule.MinApprovalPercentage,
		ManagerIsApprover:     rule.ManagerIsApprover,
		Approvers:             make([]RuleApproverResponse, len(rule.Approvers)),
	}
	if rule.ManagerID != nil {
		v := rule.ManagerID.String()
		resp.ManagerID = &v
	}
	for i, a := range rule.Approvers {
		resp.Approvers[i] = RuleApproverResponse{
			ApproverID: a.ApproverID.String(),
			Position:   a.Position,
			Required:   a.Required,
		}
	}
	return resp
}
