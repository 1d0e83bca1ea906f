package auth

import "time"

// Account is the authentication view of a user record.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Status       string
	SocietyID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Approved reports whether the account may authenticate.
func (a Account) Approved() bool {
	return a.Status == "approved"
}
