package parking

import "time"

// Slot occupancy states.
const (
	SlotFree      = "free"
	SlotAllocated = "allocated"
)

// Slot kinds.
const (
	KindCar     = "car"
	KindBike    = "bike"
	KindVisitor = "visitor"
)

// Slot is one parking space in a society.
type Slot struct {
	ID          string     `json:"id"`
	SocietyID   string     `json:"societyId"`
	SlotNumber  string     `json:"slotNumber"`
	Level       string     `json:"level,omitempty"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	AllocatedTo string     `json:"allocatedTo,omitempty"`
	FlatNumber  string     `json:"flatNumber,omitempty"`
	AllocatedAt *time.Time `json:"allocatedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CreateSlotRequest struct {
	SlotNumber string `json:"slotNumber" validate:"required,max=20"`
	Level      string `json:"level,omitempty" validate:"omitempty,max=20"`
	Kind       string `json:"kind" validate:"required,oneof=car bike visitor"`
}

type AllocateRequest struct {
	UserID     string `json:"userId" validate:"required"`
	FlatNumber string `json:"flatNumber" validate:"required,max=20"`
}

type ListRequest struct {
	SocietyID string
	Status    string
	Kind      string
	Limit     int
	Offset    int
}
