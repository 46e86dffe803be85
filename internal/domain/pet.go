package domain

import "time"

// PetStatus tracks availability of a pet for adoption.
type PetStatus string

const (
	PetStatusAvailable PetStatus = "available"
	PetStatusPending   PetStatus = "pending"
	PetStatusAdopted   PetStatus = "adopted"
)

// Valid reports whether s is a known status.
func (s PetStatus) Valid() bool {
	switch s {
	case PetStatusAvailable, PetStatusPending, PetStatusAdopted:
		return true
	}
	return false
}

// Species enumerates supported animal kinds.
type Species string

const (
	SpeciesDog    Species = "Dog"
	SpeciesCat    Species = "Cat"
	SpeciesBird   Species = "Bird"
	SpeciesRabbit Species = "Rabbit"
	SpeciesFish   Species = "Fish"
	SpeciesOther  Species = "Other"
)

func (s Species) Valid() bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRabbit, SpeciesFish, SpeciesOther:
		return true
	}
	return false
}

// Gender of a pet.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Pet is an adoptable animal listing.
type Pet struct {
	ID          string
	Name        string
	Breed       string
	Age         int
	Species     Species
	Gender      Gender
	Description string
	ImageURL    string
	ImageKey    string
	Status      PetStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasImage reports whether a remote image is attached.
func (p *Pet) HasImage() bool {
	return p.ImageKey != ""
}
