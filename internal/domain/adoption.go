package domain

import "time"

// AdoptionStatus enumerates the states of an adoption request.
//
// pending is the only non-terminal state. A withdrawn request is deleted
// rather than transitioned.
type AdoptionStatus string

const (
	AdoptionStatusPending  AdoptionStatus = "pending"
	AdoptionStatusApproved AdoptionStatus = "approved"
	AdoptionStatusRejected AdoptionStatus = "rejected"
)

// Active reports whether the status blocks another request for the same pair.
func (s AdoptionStatus) Active() bool {
	return s == AdoptionStatusPending || s == AdoptionStatusApproved
}

// Terminal reports whether no further transition applies.
func (s AdoptionStatus) Terminal() bool {
	return s == AdoptionStatusApproved || s == AdoptionStatusRejected
}

// PetStatusOnResolve returns the pet status implied by resolving a pending
// request into s.
func (s AdoptionStatus) PetStatusOnResolve() PetStatus {
	if s == AdoptionStatusApproved {
		return PetStatusAdopted
	}
	return PetStatusAvailable
}

// Adoption links a user to a pet they asked to adopt.
type Adoption struct {
	ID        string
	UserID    string
	PetID     string
	Status    AdoptionStatus
	AdoptedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdoptionDetail is an adoption with its user and pet resolved for listings.
// Either reference may be nil when the row no longer resolves.
type AdoptionDetail struct {
	Adoption
	User *User
	Pet  *Pet
}
