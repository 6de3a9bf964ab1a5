package user

import "time"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID  string
	Email   string
	Name    string
	IsAdmin bool
}

type Profile struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
