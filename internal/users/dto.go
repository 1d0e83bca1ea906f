package users

import "github.com/nivaas-labs/nivaas/internal/rbac"

type RegisterRequest struct {
	Email      string    `json:"email" validate:"required,email"`
	Password   string    `json:"password" validate:"required,min=8"`
	Name       string    `json:"name" validate:"required,max=200"`
	Phone      string    `json:"phone,omitempty" validate:"omitempty,max=20"`
	SocietyID  string    `json:"societyId" validate:"required"`
	FlatNumber string    `json:"flatNumber,omitempty" validate:"omitempty,max=20"`
	Role       rbac.Role `json:"role" validate:"required"`
}

type ApproveRequest struct {
	Role rbac.Role `json:"role,omitempty"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

type ListRequest struct {
	SocietyID string
	Status    string
	Limit     int
	Offset    int
}
