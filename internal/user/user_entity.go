package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index"`
	Name      string     `gorm:"column:name;type:varchar(255);not null"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Password  string     `gorm:"column:password;type:text;not null"`
	Role      string     `gorm:"column:role;type:varchar(20);not null;default:EMPLOYEE"`
	ManagerID *uuid.UUID `gorm:"column:manager_id;type:uuid"`
	IsActive  bool       `gorm:"column:is_active;default:true"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`

	// Self join for displaying the manager name
	Manager *UserManager `gorm:"foreignKey:ManagerID;references:ID"`
}

// UserManager is a sub-struct for the minimal manager join
type UserManager struct {
	ID   uuid.UUID `gorm:"primaryKey"`
	Name string    `gorm:"column:name"`
}

func (UserManager) TableName() string {
	return "users"
}
