package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/adoption-service/internal/api/dto"
	"github.com/spec-kit/adoption-service/internal/auth"
	"github.com/spec-kit/adoption-service/internal/service"
)

// AdoptionsHandler serves adoption endpoints for signed-in users.
type AdoptionsHandler struct {
	adoptions *service.AdoptionService
}

// NewAdoptionsHandler constructs handler.
func NewAdoptionsHandler(adoptions *service.AdoptionService) *AdoptionsHandler {
	return &AdoptionsHandler{adoptions: adoptions}
}

// Adopt handles POST /users/adopt.
func (h *AdoptionsHandler) Adopt(c *fiber.Ctx) error {
	var req dto.AdoptRequest
	if err := dto.DecodeStrict(c.Body(), &req); err != nil {
		return err
	}
	principal, _ := auth.PrincipalFromContext(c)

	detail, err := h.adoptions.Request(c.UserContext(), principal.User, req.PetID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAdoptResponse("Adoption request submitted successfully", detail))
}

// List handles GET /users/adoptions.
func (h *AdoptionsHandler) List(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	list, err := h.adoptions.ListForUser(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdoptionList(list))
}

// Withdraw handles DELETE /users/adoptions/:id.
func (h *AdoptionsHandler) Withdraw(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.adoptions.Withdraw(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Adoption request withdrawn successfully"})
}
