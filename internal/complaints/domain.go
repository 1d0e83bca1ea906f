package complaints

import "time"

// Complaint lifecycle states.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Complaint categories.
const (
	CategoryMaintenance = "maintenance"
	CategorySecurity    = "security"
	CategoryHousekeep   = "housekeeping"
	CategoryNoise       = "noise"
	CategoryOther       = "other"
)

// transitions lists the allowed next states per current state. Resolved
// complaints can be reopened by the resident; closed is terminal.
var transitions = map[string][]string{
	StatusOpen:       {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {StatusClosed, StatusOpen},
	StatusClosed:     {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Complaint is a resident-raised issue tracked through resolution.
type Complaint struct {
	ID          string     `json:"id"`
	SocietyID   string     `json:"societyId"`
	RaisedBy    string     `json:"raisedBy"`
	FlatNumber  string     `json:"flatNumber,omitempty"`
	Category    string     `json:"category"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

type RaiseRequest struct {
	Category    string `json:"category" validate:"required,oneof=maintenance security housekeeping noise other"`
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
	FlatNumber  string `json:"flatNumber,omitempty" validate:"omitempty,max=20"`
}

type TransitionRequest struct {
	Status     string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	AssignedTo string `json:"assignedTo,omitempty"`
	Resolution string `json:"resolution,omitempty" validate:"omitempty,max=10000"`
}

type ListRequest struct {
	SocietyID string
	Status    string
	Category  string
	RaisedBy  string
	Limit     int
	Offset    int
}
