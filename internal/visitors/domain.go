package visitors

import "time"

// Gate pass lifecycle states.
const (
	StatusPending    = "pending"
	StatusCheckedIn  = "checked_in"
	StatusCheckedOut = "checked_out"
	StatusExpired    = "expired"
	StatusCancelled  = "cancelled"
)

// GatePass is a pre-authorized visitor entry issued by a resident and
// verified by the gate staff against its code.
type GatePass struct {
	ID           string     `json:"id"`
	SocietyID    string     `json:"societyId"`
	ResidentID   string     `json:"residentId"`
	FlatNumber   string     `json:"flatNumber"`
	VisitorName  string     `json:"visitorName"`
	VisitorPhone string     `json:"visitorPhone,omitempty"`
	Purpose      string     `json:"purpose,omitempty"`
	Code         string     `json:"code"`
	Status       string     `json:"status"`
	ValidFrom    time.Time  `json:"validFrom"`
	ValidUntil   time.Time  `json:"validUntil"`
	CheckedInAt  *time.Time `json:"checkedInAt,omitempty"`
	CheckedOutAt *time.Time `json:"checkedOutAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Usable reports whether the pass can admit a visitor at now.
func (p *GatePass) Usable(now time.Time) bool {
	return p.Status == StatusPending && !now.Before(p.ValidFrom) && now.Before(p.ValidUntil)
}

type IssueRequest struct {
	VisitorName  string     `json:"visitorName" validate:"required,max=200"`
	VisitorPhone string     `json:"visitorPhone,omitempty" validate:"omitempty,max=20"`
	Purpose      string     `json:"purpose,omitempty" validate:"omitempty,max=500"`
	FlatNumber   string     `json:"flatNumber" validate:"required,max=20"`
	ValidFrom    *time.Time `json:"validFrom,omitempty"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
}

type VerifyRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type ListRequest struct {
	SocietyID  string
	ResidentID string
	Status     string
	Limit      int
	Offset     int
}
