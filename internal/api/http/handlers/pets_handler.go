package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/adoption-service/internal/api/dto"
	"github.com/spec-kit/adoption-service/internal/service"
	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

// PetsHandler serves the public catalog.
type PetsHandler struct {
	pets *service.PetService
}

// NewPetsHandler constructs handler.
func NewPetsHandler(pets *service.PetService) *PetsHandler {
	return &PetsHandler{pets: pets}
}

// List handles GET /pets?search=&species=&breed=&age=.
func (h *PetsHandler) List(c *fiber.Ctx) error {
	query := service.PetQuery{
		Search:  c.Query("search"),
		Species: c.Query("species"),
		Breed:   c.Query("breed"),
	}
	if raw := strings.TrimSpace(c.Query("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			return apperrors.NewValidationError("age must be a non-negative integer", map[string]any{"age": raw})
		}
		query.Age = &age
	}

	pets, err := h.pets.List(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPetList(pets))
}

// Breeds handles GET /pets/breeds.
func (h *PetsHandler) Breeds(c *fiber.Ctx) error {
	breeds, err := h.pets.Breeds(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(breeds)
}

// Get handles GET /pets/:id.
func (h *PetsHandler) Get(c *fiber.Ctx) error {
	pet, err := h.pets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPetResponse(pet))
}
