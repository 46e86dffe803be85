package dto

import (
	"time"

	"github.com/spec-kit/adoption-service/internal/domain"
)

// AdoptRequest payload for POST /users/adopt.
type AdoptRequest struct {
	PetID string `json:"petId"`
}

// AdoptionCreated is the adoption view returned by a new request.
type AdoptionCreated struct {
	ID        string                `json:"_id"`
	Pet       *PetResponse          `json:"pet"`
	Status    domain.AdoptionStatus `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
}

// AdoptResponse wraps a new adoption with a status message.
type AdoptResponse struct {
	Message  string          `json:"message"`
	Adoption AdoptionCreated `json:"adoption"`
}

// UserAdoptionResponse is an adoption listed for its owner with the pet embedded.
type UserAdoptionResponse struct {
	ID        string                `json:"_id"`
	User      string                `json:"user"`
	Pet       *PetResponse          `json:"pet"`
	Status    domain.AdoptionStatus `json:"status"`
	AdoptedAt *time.Time            `json:"adoptedAt"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// UserSummary is the user view embedded in admin adoption listings.
type UserSummary struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// AdminAdoptionResponse is an adoption with user and pet summaries.
type AdminAdoptionResponse struct {
	ID        string                `json:"_id"`
	User      *UserSummary          `json:"user"`
	Pet       *PetSummary           `json:"pet"`
	Status    domain.AdoptionStatus `json:"status"`
	AdoptedAt *time.Time            `json:"adoptedAt"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// MessageResponse is a bare status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewAdoptResponse maps a freshly requested adoption.
func NewAdoptResponse(message string, d *domain.AdoptionDetail) AdoptResponse {
	created := AdoptionCreated{
		ID:        d.ID,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
	if d.Pet != nil {
		pet := NewPetResponse(d.Pet)
		created.Pet = &pet
	}
	return AdoptResponse{Message: message, Adoption: created}
}

// NewUserAdoptionList maps the caller's adoptions.
func NewUserAdoptionList(list []domain.AdoptionDetail) []UserAdoptionResponse {
	out := make([]UserAdoptionResponse, 0, len(list))
	for _, d := range list {
		item := UserAdoptionResponse{
			ID:        d.ID,
			User:      d.UserID,
			Status:    d.Status,
			AdoptedAt: d.AdoptedAt,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
		if d.Pet != nil {
			pet := NewPetResponse(d.Pet)
			item.Pet = &pet
		}
		out = append(out, item)
	}
	return out
}

// NewAdminAdoptionList maps every adoption for the admin view.
func NewAdminAdoptionList(list []domain.AdoptionDetail) []AdminAdoptionResponse {
	out := make([]AdminAdoptionResponse, 0, len(list))
	for _, d := range list {
		item := AdminAdoptionResponse{
			ID:        d.ID,
			Status:    d.Status,
			AdoptedAt: d.AdoptedAt,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
		if d.User != nil {
			item.User = &UserSummary{ID: d.User.ID, FullName: d.User.FullName, Email: d.User.Email, Phone: d.User.Phone}
		}
		if d.Pet != nil {
			item.Pet = &PetSummary{ID: d.Pet.ID, Name: d.Pet.Name, Breed: d.Pet.Breed, Image: d.Pet.ImageURL}
		}
		out = append(out, item)
	}
	return out
}
