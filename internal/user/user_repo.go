package user

import (
	"context"
	"database/sql"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:generate mockgen -source=user_repo.go -destination=mock/user_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, u *User) error
	FindAllByCompany(ctx context.Context, companyID string) ([]User, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, companyID, id string) error
	ExistsInCompany(ctx context.Context, companyID, id string) (bool, error)
	ManagerOf(ctx context.Context, companyID, id string) (*string, error)
	CountManagedBy(ctx context.Context, companyID, managerID string) (int64, error)
	ClearManagerReferences(ctx context.Context, companyID, managerID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: tx}), &gorm.Config{})
	if err != nil {
		return r
	}
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Where("company_id = ?", companyID).
		First(&u, "id = ?", id).Error
	return &u, err
}

func (r *repository) Update(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&User{}, "id = ?", id).Error
}

func (r *repository) ExistsInCompany(ctx context.Context, companyID, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Where("company_id = ?", companyID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ManagerOf(ctx context.Context, companyID, id string) (*string, error) {
	var u User
	err := r.db.WithContext(ctx).
		Select("manager_id").
		Where("company_id = ?", companyID).
		First(&u, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if u.ManagerID == nil {
		return nil, nil
	}
	v := u.ManagerID.String()
	return &v, nil
}

func (r *repository) CountManagedBy(ctx context.Context, companyID, managerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("company_id = ?", companyID).
		Where("manager_id = ?", managerID).
		Count(&count).Error
	return count, err
}

func (r *repository) ClearManagerReferences(ctx context.Context, companyID, managerID string) error {
	return r.db.WithContext(ctx).
		Model(&User{}).
		Where("company_id = ?", companyID).
		Where("manager_id = ?", managerID).
		Update("manager_id", nil).Error
}
