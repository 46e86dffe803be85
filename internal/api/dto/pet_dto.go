package dto

import (
	"time"

	"github.com/spec-kit/adoption-service/internal/domain"
)

// PetForm carries admin pet fields from a multipart form or JSON body.
// Nil fields were not supplied.
type PetForm struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Breed       *string `json:"breed" validate:"omitempty,min=1,max=100"`
	Age         *int    `json:"age" validate:"omitempty,min=0,max=100"`
	Species     *string `json:"species" validate:"omitempty,oneof=Dog Cat Bird Rabbit Fish Other"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=Male Female"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,oneof=available pending adopted"`
}

// CreatePetForm requires the fields a new pet cannot be stored without.
type CreatePetForm struct {
	Name    *string `json:"name" validate:"required"`
	Breed   *string `json:"breed" validate:"required"`
	Age     *int    `json:"age" validate:"required"`
	Species *string `json:"species" validate:"required"`
	Gender  *string `json:"gender" validate:"required"`
}

// Required returns the presence view of the form.
func (f PetForm) Required() CreatePetForm {
	return CreatePetForm{Name: f.Name, Breed: f.Breed, Age: f.Age, Species: f.Species, Gender: f.Gender}
}

// PetResponse is the API view of a pet.
type PetResponse struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	Breed       string           `json:"breed"`
	Age         int              `json:"age"`
	Species     domain.Species   `json:"species"`
	Gender      domain.Gender    `json:"gender"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	ImageKey    string           `json:"imageKey"`
	Status      domain.PetStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// PetSummary is the pet view embedded in admin adoption listings.
type PetSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Breed string `json:"breed"`
	Image string `json:"image"`
}

// NewPetResponse maps a pet.
func NewPetResponse(p *domain.Pet) PetResponse {
	return PetResponse{
		ID:          p.ID,
		Name:        p.Name,
		Breed:       p.Breed,
		Age:         p.Age,
		Species:     p.Species,
		Gender:      p.Gender,
		Description: p.Description,
		Image:       p.ImageURL,
		ImageKey:    p.ImageKey,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewPetList maps pets, never returning nil.
func NewPetList(pets []domain.Pet) []PetResponse {
	out := make([]PetResponse, 0, len(pets))
	for i := range pets {
		out = append(out, NewPetResponse(&pets[i]))
	}
	return out
}

// PetMessageResponse wraps a pet with a status message.
type PetMessageResponse struct {
	Message string      `json:"message"`
	Pet     PetResponse `json:"pet"`
}
