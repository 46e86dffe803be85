package domain

import "time"

// IssuedToken is a signed bearer credential handed to a client.
type IssuedToken struct {
	Value     string
	UserID    string
	Role      Role
	ExpiresAt time.Time
}
