package notices

import "time"

// Notice categories.
const (
	CategoryGeneral = "general"
	CategoryUrgent  = "urgent"
	CategoryEvent   = "event"
)

// Notice is an announcement published to a society's notice board.
type Notice struct {
	ID          string     `json:"id"`
	SocietyID   string     `json:"societyId"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Category    string     `json:"category"`
	Pinned      bool       `json:"pinned"`
	PublishedBy string     `json:"publishedBy"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Active reports whether the notice should still be displayed at now.
func (n *Notice) Active(now time.Time) bool {
	return n.ExpiresAt == nil || n.ExpiresAt.After(now)
}

type CreateRequest struct {
	Title     string     `json:"title" validate:"required,max=200"`
	Body      string     `json:"body" validate:"required,max=10000"`
	Category  string     `json:"category" validate:"omitempty,oneof=general urgent event"`
	Pinned    bool       `json:"pinned"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type UpdateRequest struct {
	Title     *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Body      *string    `json:"body,omitempty" validate:"omitempty,max=10000"`
	Category  *string    `json:"category,omitempty" validate:"omitempty,oneof=general urgent event"`
	Pinned    *bool      `json:"pinned,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type ListRequest struct {
	SocietyID      string
	Category       string
	IncludeExpired bool
	Limit          int
	Offset         int
}
