package vendors

import "time"

// Vendor service categories.
const (
	CategoryPlumbing    = "plumbing"
	CategoryElectrical  = "electrical"
	CategoryCarpentry   = "carpentry"
	CategoryCleaning    = "cleaning"
	CategoryPestControl = "pest_control"
	CategoryOther       = "other"
)

// Vendor is a service provider listed in the society directory.
type Vendor struct {
	ID        string    `json:"id"`
	SocietyID string    `json:"societyId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Verified  bool      `json:"verified"`
	AddedBy   string    `json:"addedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UpsertRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"required,oneof=plumbing electrical carpentry cleaning pest_control other"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Notes    string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Verified bool   `json:"verified"`
}

type ListRequest struct {
	SocietyID string
	Category  string
	Limit     int
	Offset    int
}
