package handlers

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/adoption-service/internal/api/dto"
	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/imagestore"
	"github.com/spec-kit/adoption-service/internal/service"
	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

const imageField = "image"

// parsePetForm reads pet fields from a JSON body or a (multipart) form.
// Empty form values count as not supplied.
func parsePetForm(c *fiber.Ctx) (dto.PetForm, error) {
	var form dto.PetForm
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := dto.DecodeStrict(c.Body(), &form); err != nil {
			return form, err
		}
		return form, dto.Validate(form)
	}

	form.Name = formString(c, "name")
	form.Breed = formString(c, "breed")
	form.Species = formString(c, "species")
	form.Gender = formString(c, "gender")
	form.Description = formString(c, "description")
	form.Status = formString(c, "status")
	if raw := formString(c, "age"); raw != nil {
		age, err := strconv.Atoi(*raw)
		if err != nil {
			return form, apperrors.NewValidationError("Validation failed", map[string]any{"age": "number"})
		}
		form.Age = &age
	}
	return form, dto.Validate(form)
}

func formString(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

func petInput(form dto.PetForm) service.PetInput {
	in := service.PetInput{
		Name:        form.Name,
		Breed:       form.Breed,
		Age:         form.Age,
		Description: form.Description,
	}
	if form.Species != nil {
		species := domain.Species(*form.Species)
		in.Species = &species
	}
	if form.Gender != nil {
		gender := domain.Gender(*form.Gender)
		in.Gender = &gender
	}
	if form.Status != nil {
		status := domain.PetStatus(*form.Status)
		in.Status = &status
	}
	return in
}

// imageUpload extracts the optional "image" file. The content type is taken
// from the file bytes, not from the client.
func imageUpload(c *fiber.Ctx) (*imagestore.Upload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid multipart form", nil)
	}
	files := form.File[imageField]
	if len(files) == 0 {
		return nil, nil
	}
	header := files[0]
	if header.Size > imagestore.MaxImageBytes {
		return nil, imageError(imagestore.ErrTooLarge)
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imagestore.MaxImageBytes+1))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	contentType, err := imagestore.Sniff(data, int64(len(data)))
	if err != nil {
		return nil, imageError(err)
	}
	return &imagestore.Upload{
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func imageError(err error) error {
	switch {
	case errors.Is(err, imagestore.ErrTooLarge):
		return apperrors.NewValidationError("Image must be 5MB or smaller", map[string]any{imageField: "max=5MB"})
	case errors.Is(err, imagestore.ErrUnsupportedType):
		return apperrors.NewValidationError("Only JPEG, PNG, and WebP images are allowed", map[string]any{imageField: "type"})
	default:
		return apperrors.NewInternalError(err)
	}
}
