package user

import (
	"context"
	"database/sql"
	"errors"

	"go-expense/internal/domain"
	usererrors "go-expense/internal/user/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ApprovalRuleGuard reports and removes references to a user inside stored
// approval rules. Satisfied by the approvalrule repository.
type ApprovalRuleGuard interface {
	CountApproverReferences(ctx context.Context, companyID, userID string) (int64, error)
	CountManagerReferences(ctx context.Context, companyID, userID string) (int64, error)
	RemoveApproverFromRules(ctx context.Context, companyID, userID string) error
	ClearManagerFromRules(ctx context.Context, companyID, userID string) error
}

// ActiveChainGuard reports and removes a user's membership in snapshot
// chains of SUBMITTED expenses. Satisfied by the approval repository.
// Removal marks the chain entry as removed; the snapshotted chain size
// never changes.
type ActiveChainGuard interface {
	CountActiveChainMemberships(ctx context.Context, companyID, approverID string) (int64, error)
	MarkChainApproverRemoved(ctx context.Context, companyID, approverID string) error
}

//go:generate mockgen -source=user_service.go -destination=mock/user_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID string, req CreateUserRequest) (UserResponse, error)
	GetAll(ctx context.Context, companyID string) ([]UserResponse, error)
	GetByID(ctx context.Context, companyID, id string) (UserResponse, error)
	Update(ctx context.Context, companyID, id string, req UpdateUserRequest) (UserResponse, error)
	Delete(ctx context.Context, companyID, id string, cascade bool) error
}

type service struct {
	db         *sql.DB
	repo       Repository
	ruleGuard  ApprovalRuleGuard
	chainGuard ActiveChainGuard
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	ruleGuard ApprovalRuleGuard,
	chainGuard ActiveChainGuard,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("user.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("user.service")
	}
	return &service{db: db, repo: repo, ruleGuard: ruleGuard, chainGuard: chainGuard, logger: l}
}

func (s *service) Create(ctx context.Context, companyID string, req CreateUserRequest) (UserResponse, error) {
	s.logger.Debug("create user requested",
		zap.String("company_id", companyID),
		zap.String("email", req.Email),
		zap.String("role", req.Role),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return UserResponse{}, usererrors.ErrInvalidCompanyID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create user begin tx failed", zap.Error(err))
		return UserResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	managerID, err := s.validateManagerLink(ctx, qtx, companyID, req.Role, req.ManagerID, nil)
	if err != nil {
		s.logger.Warn("create user manager validation failed", zap.Error(err))
		return UserResponse{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("create user hash password failed", zap.Error(err))
		return UserResponse{}, err
	}

	u := &User{
		ID:        uuid.New(),
		CompanyID: companyUUID,
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hashed),
		Role:      req.Role,
		ManagerID: managerID,
		IsActive:  true,
	}

	if err := qtx.Create(ctx, u); err != nil {
		s.logger.Error("create user persist failed", zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create user commit failed", zap.Error(err))
		return UserResponse{}, err
	}
	s.logger.Info("create user success",
		zap.String("user_id", u.ID.String()),
		zap.String("company_id", companyID),
		zap.String("role", u.Role),
	)

	return mapToResponse(*u), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]UserResponse, error) {
	users, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(users), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (UserResponse, error) {
	u, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, usererrors.ErrUserNotFound
		}
		return UserResponse{}, err
	}
	return mapToResponse(*u), nil
}

func (s *service) Update(ctx context.Context, companyID, id string, req UpdateUserRequest) (UserResponse, error) {
	s.logger.Debug("update user requested",
		zap.String("user_id", id),
		zap.String("company_id", companyID),
		zap.String("role", req.Role),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update user begin tx failed", zap.Error(err))
		return UserResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	u, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, usererrors.ErrUserNotFound
		}
		return UserResponse{}, err
	}

	managerID, err := s.validateManagerLink(ctx, qtx, companyID, req.Role, req.ManagerID, &id)
	if err != nil {
		s.logger.Warn("update user manager validation failed", zap.Error(err))
		return UserResponse{}, err
	}

	u.Name = req.Name
	u.Role = req.Role
	u.ManagerID = managerID
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	u.Manager = nil

	if err := qtx.Update(ctx, u); err != nil {
		s.logger.Error("update user persist failed", zap.String("user_id", id), zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update user commit failed", zap.String("user_id", id), zap.Error(err))
		return UserResponse{}, err
	}
	s.logger.Info("update user success",
		zap.String("user_id", id),
		zap.String("role", u.Role),
	)

	return mapToResponse(*u), nil
}

// Delete enforces the referential integrity guard: a user who still appears
// in approval rules, in active snapshot chains, or as someone's manager can
// only be deleted when the admin confirms the cascade.
func (s *service) Delete(ctx context.Context, companyID, id string, cascade bool) error {
	s.logger.Debug("delete user requested",
		zap.String("user_id", id),
		zap.String("company_id", companyID),
		zap.Bool("cascade", cascade),
	)

	referenced, err := s.countReferences(ctx, companyID, id)
	if err != nil {
		return err
	}

	if referenced > 0 && !cascade {
		s.logger.Warn("delete user blocked by references",
			zap.String("user_id", id),
			zap.Int64("references", referenced),
		)
		return usererrors.ErrUserReferenced
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if referenced > 0 {
		if s.ruleGuard != nil {
			if err := s.ruleGuard.RemoveApproverFromRules(ctx, companyID, id); err != nil {
				return err
			}
			if err := s.ruleGuard.ClearManagerFromRules(ctx, companyID, id); err != nil {
				return err
			}
		}
		if s.chainGuard != nil {
			if err := s.chainGuard.MarkChainApproverRemoved(ctx, companyID, id); err != nil {
				return err
			}
		}
		if err := qtx.ClearManagerReferences(ctx, companyID, id); err != nil {
			return err
		}
	}

	if err := qtx.Delete(ctx, companyID, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("delete user success",
		zap.String("user_id", id),
		zap.Bool("cascade", cascade),
	)
	return nil
}

func (s *service) countReferences(ctx context.Context, companyID, id string) (int64, error) {
	var total int64

	if s.ruleGuard != nil {
		asApprover, err := s.ruleGuard.CountApproverReferences(ctx, companyID, id)
		if err != nil {
			return 0, err
		}
		asManager, err := s.ruleGuard.CountManagerReferences(ctx, companyID, id)
		if err != nil {
			return 0, err
		}
		total += asApprover + asManager
	}

	if s.chainGuard != nil {
		inChains, err := s.chainGuard.CountActiveChainMemberships(ctx, companyID, id)
		if err != nil {
			return 0, err
		}
		total += inChains
	}

	managed, err := s.repo.CountManagedBy(ctx, companyID, id)
	if err != nil {
		return 0, err
	}
	total += managed

	return total, nil
}

func (s *service) validateManagerLink(
	ctx context.Context,
	qtx Repository,
	companyID, role string,
	managerID *string,
	selfID *string,
) (*uuid.UUID, error) {
	if managerID == nil || *managerID == "" {
		return nil, nil
	}
	if role == domain.RoleAdmin {
		return nil, usererrors.ErrAdminHasManager
	}
	if selfID != nil && *managerID == *selfID {
		return nil, usererrors.ErrSelfManager
	}

	mgr, err := qtx.FindByIDAndCompany(ctx, companyID, *managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usererrors.ErrManagerNotFound
		}
		return nil, err
	}
	if mgr.Role == domain.RoleEmployee {
		return nil, usererrors.ErrInvalidManager
	}

	id := mgr.ID
	return &id, nil
}

func mapToResponse(u User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		CompanyID: u.CompanyID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
	}
	if u.ManagerID != nil {
		v := u.ManagerID.String()
		resp.ManagerID = &v
	}
	if u.Manager != nil {
		resp.ManagerName = &u.Manager.Name
	}
	return resp
}

func mapToListResponse(users []User) []UserResponse {
	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapToResponse(u)
	}
	return resp
}
