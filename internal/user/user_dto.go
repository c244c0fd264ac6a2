package user

type CreateUserRequest struct {
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=6"`
	Role      string  `json:"role" binding:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	ManagerID *string `json:"manager_id" binding:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	Name      string  `json:"name" binding:"required"`
	Role      string  `json:"role" binding:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	ManagerID *string `json:"manager_id" binding:"omitempty,uuid"`
	IsActive  *bool   `json:"is_active"`
}

type UserResponse struct {
	ID          string  `json:"id"`
	CompanyID   string  `json:"company_id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	ManagerID   *string `json:"manager_id,omitempty"`
	ManagerName *string `json:"manager_name,omitempty"`
	IsActive    bool    `json:"is_active"`
}
