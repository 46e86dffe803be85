package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/events"
	"github.com/spec-kit/adoption-service/internal/imagestore"
	"github.com/spec-kit/adoption-service/internal/repository"
	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

const (
	msgStatusLocked   = "Pet status is controlled by its active adoption requests"
	msgStatusWorkflow = "Pets become pending or adopted only through adoption requests"
)

// PetService manages the pet catalog.
type PetService struct {
	pets       repository.PetRepository
	adoptions  repository.AdoptionRepository
	images     imagestore.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// PetDependencies bundles collaborators for the pet service.
type PetDependencies struct {
	PetRepo      repository.PetRepository
	AdoptionRepo repository.AdoptionRepository
	Images       imagestore.Store
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// PetQuery holds public catalog filters. Empty strings are ignored.
type PetQuery struct {
	Search  string
	Species string
	Breed   string
	Age     *int
}

// PetInput carries pet fields. On update only non-nil fields are applied.
type PetInput struct {
	Name        *string
	Breed       *string
	Age         *int
	Species     *domain.Species
	Gender      *domain.Gender
	Description *string
	Status      *domain.PetStatus
}

// NewPetService constructs the service.
func NewPetService(deps PetDependencies) *PetService {
	return &PetService{
		pets:       deps.PetRepo,
		adoptions:  deps.AdoptionRepo,
		images:     deps.Images,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// List returns pets that are not adopted, newest first.
func (s *PetService) List(ctx context.Context, q PetQuery) ([]domain.Pet, error) {
	filter := repository.PetFilter{
		ExcludeStatuses: []domain.PetStatus{domain.PetStatusAdopted},
		Age:             q.Age,
	}
	if v := strings.TrimSpace(q.Species); v != "" {
		species := domain.Species(v)
		filter.Species = &species
	}
	if v := strings.TrimSpace(q.Breed); v != "" {
		filter.Breed = &v
	}
	if v := strings.TrimSpace(q.Search); v != "" {
		filter.SearchTerm = &v
	}

	pets, err := s.pets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return pets, nil
}

// ListAll returns every pet including adopted ones.
func (s *PetService) ListAll(ctx context.Context) ([]domain.Pet, error) {
	pets, err := s.pets.List(ctx, repository.PetFilter{})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return pets, nil
}

// Get returns a single pet.
func (s *PetService) Get(ctx context.Context, id string) (*domain.Pet, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("Pet", nil)
	}
	pet, err := s.pets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Pet")
	}
	return pet, nil
}

// Breeds returns the distinct breeds across all pets.
func (s *PetService) Breeds(ctx context.Context) ([]string, error) {
	breeds, err := s.pets.DistinctBreeds(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return breeds, nil
}

// Create stores a new available pet. When an image is supplied it is uploaded
// first and removed again if the pet cannot be persisted.
func (s *PetService) Create(ctx context.Context, in PetInput, image *imagestore.Upload) (*domain.Pet, error) {
	if in.Age == nil {
		return nil, apperrors.NewValidationError("Invalid pet data", map[string]any{"age": "required"})
	}
	pet := &domain.Pet{Status: domain.PetStatusAvailable}
	applyPetInput(pet, in)
	if err := validatePet(pet); err != nil {
		return nil, err
	}

	if image != nil {
		stored, err := s.images.Upload(ctx, *image)
		if err != nil {
			s.logger.Error("pet image upload failed", zap.Error(err))
			return nil, apperrors.NewInternalError(err)
		}
		pet.ImageURL, pet.ImageKey = stored.URL, stored.Key
	}

	if err := s.pets.Create(ctx, pet); err != nil {
		if pet.HasImage() {
			s.deleteImage(ctx, pet.ImageKey, "rollback")
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("pet created", zap.String("pet_id", pet.ID), zap.String("name", pet.Name))
	return pet, nil
}

// Update applies the supplied fields. A new image replaces the old one only
// after the pet has been persisted with the new reference. Fields and status
// are written together, so a failed update leaves the stored pet untouched.
func (s *PetService) Update(ctx context.Context, id string, in PetInput, image *imagestore.Upload) (*domain.Pet, error) {
	pet, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := pet.Status

	if in.Status != nil && *in.Status != pet.Status {
		if err := s.checkStatusEdit(ctx, pet, *in.Status); err != nil {
			return nil, err
		}
		pet.Status = *in.Status
	}

	applyPetInput(pet, in)
	if err := validatePet(pet); err != nil {
		return nil, err
	}

	oldKey := pet.ImageKey
	if image != nil {
		stored, err := s.images.Upload(ctx, *image)
		if err != nil {
			s.logger.Error("pet image upload failed", zap.String("pet_id", id), zap.Error(err))
			return nil, apperrors.NewInternalError(err)
		}
		pet.ImageURL, pet.ImageKey = stored.URL, stored.Key
	}

	if err := s.pets.Update(ctx, pet, expected); err != nil {
		if image != nil {
			s.deleteImage(ctx, pet.ImageKey, "rollback")
		}
		if errors.Is(err, repository.ErrStateChanged) {
			s.logger.Warn("pet update lost to an adoption transition", zap.String("pet_id", id))
			return nil, apperrors.NewConflict(msgStatusLocked, nil)
		}
		return nil, notFoundOr(err, "Pet")
	}

	if image != nil && oldKey != "" {
		s.deleteImage(ctx, oldKey, "replaced")
	}
	if pet.Status != expected {
		s.logger.Info("pet status changed by admin",
			zap.String("pet_id", id),
			zap.String("from", string(expected)),
			zap.String("to", string(pet.Status)),
		)
	}
	s.logger.Info("pet updated", zap.String("pet_id", id))
	return pet, nil
}

// Delete removes the pet, its image and every adoption referencing it.
// Image removal failures are logged and do not stop the cascade.
func (s *PetService) Delete(ctx context.Context, actor *domain.User, id string) error {
	pet, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if pet.HasImage() {
		s.deleteImage(ctx, pet.ImageKey, "pet deleted")
	}

	removed, err := s.pets.Delete(ctx, id)
	if err != nil {
		return notFoundOr(err, "Pet")
	}

	s.logger.Info("pet deleted", zap.String("pet_id", id), zap.Int64("adoptions_removed", removed))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:  events.EventPetDeleted,
		PetID: id,
		Actor: actorOf(actor),
		Payload: events.PetDeletedPayload{
			AdoptionsRemoved: removed,
			ImageKey:         pet.ImageKey,
		},
	})
	return nil
}

// checkStatusEdit vets an explicit admin status edit without writing it.
// Pending and adopted follow from adoption records, so the only status an
// admin may set is available, and only while no adoption is active.
func (s *PetService) checkStatusEdit(ctx context.Context, pet *domain.Pet, to domain.PetStatus) error {
	if !to.Valid() {
		return apperrors.NewValidationError("Invalid pet status", map[string]any{"status": to})
	}
	if to != domain.PetStatusAvailable {
		return apperrors.NewConflict(msgStatusWorkflow, map[string]any{"status": to})
	}
	active, err := s.adoptions.CountActiveForPet(ctx, pet.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if active > 0 {
		return apperrors.NewConflict(msgStatusLocked, map[string]any{"status": pet.Status})
	}
	return nil
}

func (s *PetService) deleteImage(ctx context.Context, key, reason string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("pet image delete failed",
			zap.String("key", key),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func applyPetInput(pet *domain.Pet, in PetInput) {
	if in.Name != nil {
		pet.Name = strings.TrimSpace(*in.Name)
	}
	if in.Breed != nil {
		pet.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Age != nil {
		pet.Age = *in.Age
	}
	if in.Species != nil {
		pet.Species = *in.Species
	}
	if in.Gender != nil {
		pet.Gender = *in.Gender
	}
	if in.Description != nil {
		pet.Description = strings.TrimSpace(*in.Description)
	}
}

func validatePet(pet *domain.Pet) error {
	details := map[string]any{}
	if pet.Name == "" {
		details["name"] = "required"
	}
	if pet.Breed == "" {
		details["breed"] = "required"
	}
	if pet.Age < 0 {
		details["age"] = "must be a non-negative integer"
	}
	if !pet.Species.Valid() {
		details["species"] = "must be one of Dog, Cat, Bird, Rabbit, Fish, Other"
	}
	if !pet.Gender.Valid() {
		details["gender"] = "must be Male or Female"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("Invalid pet data", details)
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.NewInternalError(err)
}
