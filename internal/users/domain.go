package users

import (
	"time"

	"github.com/nivaas-labs/nivaas/internal/rbac"
)

// Registration status lifecycle. Rejection deletes the record outright.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// User represents a resident or staff account. The record exclusively owns
// its role-association list; legacy PrimaryRole/SocietyID fields survive only
// until the migration routine has run.
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	Name             string                 `json:"name"`
	Phone            string                 `json:"phone,omitempty"`
	Status           string                 `json:"status"`
	PrimaryRole      rbac.Role              `json:"primaryRole,omitempty"`
	SocietyID        string                 `json:"societyId,omitempty"`
	FlatNumber       string                 `json:"flatNumber,omitempty"`
	RoleAssociations []rbac.RoleAssociation `json:"roleAssociations"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// Subject converts the record into the resolver's evaluation view.
func (u *User) Subject() rbac.Subject {
	return rbac.Subject{
		UserID:          u.ID,
		LegacyRole:      u.PrimaryRole,
		LegacySocietyID: u.SocietyID,
		Associations:    u.RoleAssociations,
	}
}
