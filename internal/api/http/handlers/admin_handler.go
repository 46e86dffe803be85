package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/adoption-service/internal/api/dto"
	"github.com/spec-kit/adoption-service/internal/auth"
	"github.com/spec-kit/adoption-service/internal/service"
)

// AdminHandler exposes pet management and adoption review for admins.
type AdminHandler struct {
	pets      *service.PetService
	adoptions *service.AdoptionService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(pets *service.PetService, adoptions *service.AdoptionService) *AdminHandler {
	return &AdminHandler{pets: pets, adoptions: adoptions}
}

// CreatePet handles POST /admin/pets.
func (h *AdminHandler) CreatePet(c *fiber.Ctx) error {
	form, err := parsePetForm(c)
	if err != nil {
		return err
	}
	if err := dto.Validate(form.Required()); err != nil {
		return err
	}
	image, err := imageUpload(c)
	if err != nil {
		return err
	}

	pet, err := h.pets.Create(c.UserContext(), petInput(form), image)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PetMessageResponse{
		Message: "Pet added successfully",
		Pet:     dto.NewPetResponse(pet),
	})
}

// ListPets handles GET /admin/pets.
func (h *AdminHandler) ListPets(c *fiber.Ctx) error {
	pets, err := h.pets.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewPetList(pets))
}

// UpdatePet handles PUT /admin/pets/:id.
func (h *AdminHandler) UpdatePet(c *fiber.Ctx) error {
	form, err := parsePetForm(c)
	if err != nil {
		return err
	}
	image, err := imageUpload(c)
	if err != nil {
		return err
	}

	pet, err := h.pets.Update(c.UserContext(), c.Params("id"), petInput(form), image)
	if err != nil {
		return err
	}
	return c.JSON(dto.PetMessageResponse{
		Message: "Pet updated successfully",
		Pet:     dto.NewPetResponse(pet),
	})
}

// DeletePet handles DELETE /admin/pets/:id.
func (h *AdminHandler) DeletePet(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.pets.Delete(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Pet deleted successfully"})
}

// ListAdoptions handles GET /admin/adoptions.
func (h *AdminHandler) ListAdoptions(c *fiber.Ctx) error {
	list, err := h.adoptions.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAdminAdoptionList(list))
}

// ApproveAdoption handles PUT /admin/adoptions/:id/approve.
func (h *AdminHandler) ApproveAdoption(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if _, err := h.adoptions.Approve(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Adoption approved successfully"})
}

// RejectAdoption handles PUT /admin/adoptions/:id/reject.
func (h *AdminHandler) RejectAdoption(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if _, err := h.adoptions.Reject(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Adoption rejected successfully"})
}
