package meetings

import "time"

// Meeting lifecycle states.
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// RSVP answers.
const (
	RSVPYes   = "yes"
	RSVPNo    = "no"
	RSVPMaybe = "maybe"
)

// Meeting is a society gathering, general body or committee.
type Meeting struct {
	ID          string    `json:"id"`
	SocietyID   string    `json:"societyId"`
	Title       string    `json:"title"`
	Agenda      string    `json:"agenda,omitempty"`
	Venue       string    `json:"venue"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RSVP is one member's attendance answer for a meeting.
type RSVP struct {
	MeetingID   string    `json:"meetingId"`
	UserID      string    `json:"userId"`
	Response    string    `json:"response"`
	RespondedAt time.Time `json:"respondedAt"`
}

type ScheduleRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Agenda      string    `json:"agenda,omitempty" validate:"omitempty,max=10000"`
	Venue       string    `json:"venue" validate:"required,max=200"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

type RSVPRequest struct {
	Response string `json:"response" validate:"required,oneof=yes no maybe"`
}

type ListRequest struct {
	SocietyID string
	Status    string
	Upcoming  bool
	Limit     int
	Offset    int
}
