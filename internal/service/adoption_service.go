package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/events"
	"github.com/spec-kit/adoption-service/internal/observability"
	"github.com/spec-kit/adoption-service/internal/repository"
	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

const (
	msgPetIDRequired     = "Pet ID is required"
	msgPetAdopted        = "This pet has already been adopted"
	msgDuplicateRequest  = "You have already adopted or requested this pet"
	msgPetPending        = "This pet already has a pending adoption request"
	msgApprovedWithdrawn = "Approved adoptions cannot be withdrawn. Please contact an admin."
	adoptionResource     = "Adoption request"
)

// AdoptionService runs the adoption workflow. Each transition is applied
// atomically by the repository; the service maps outcomes to API errors and
// emits events.
type AdoptionService struct {
	adoptions  repository.AdoptionRepository
	pets       repository.PetRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AdoptionDependencies bundles collaborators for the adoption service.
type AdoptionDependencies struct {
	AdoptionRepo repository.AdoptionRepository
	PetRepo      repository.PetRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewAdoptionService constructs the service.
func NewAdoptionService(deps AdoptionDependencies) *AdoptionService {
	return &AdoptionService{
		adoptions:  deps.AdoptionRepo,
		pets:       deps.PetRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Request files a pending adoption for user and moves the pet to pending.
func (s *AdoptionService) Request(ctx context.Context, user *domain.User, petID string) (*domain.AdoptionDetail, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, apperrors.NewValidationError(msgPetIDRequired, nil)
	}
	if !validID(petID) {
		return nil, apperrors.NewNotFound("Pet", nil)
	}

	pet, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return nil, notFoundOr(err, "Pet")
	}
	if pet.Status == domain.PetStatusAdopted {
		s.logger.Warn("adoption rejected: pet adopted", zap.String("pet_id", petID), zap.String("user_id", user.ID))
		return nil, apperrors.NewConflict(msgPetAdopted, nil)
	}
	if _, err := s.adoptions.FindActive(ctx, user.ID, petID); err == nil {
		s.logger.Warn("adoption rejected: duplicate", zap.String("pet_id", petID), zap.String("user_id", user.ID))
		return nil, apperrors.NewConflict(msgDuplicateRequest, nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	adoption := &domain.Adoption{UserID: user.ID, PetID: petID}
	if err := s.adoptions.CreateRequest(ctx, adoption); err != nil {
		return nil, s.requestError(ctx, err, petID, user.ID)
	}
	pet.Status = domain.PetStatusPending

	s.metrics.RecordAdoptionTransition(string(domain.AdoptionStatusPending))
	s.logger.Info("adoption requested",
		zap.String("adoption_id", adoption.ID),
		zap.String("pet_id", petID),
		zap.String("user_id", user.ID),
	)
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventAdoptionRequested,
		AdoptionID: adoption.ID,
		PetID:      petID,
		Actor:      actorOf(user),
		Payload:    events.AdoptionRequestedPayload{UserID: user.ID},
	})
	return &domain.AdoptionDetail{Adoption: *adoption, User: user, Pet: pet}, nil
}

// Approve resolves a pending adoption as approved and marks the pet adopted.
func (s *AdoptionService) Approve(ctx context.Context, admin *domain.User, id string) (*domain.Adoption, error) {
	return s.resolve(ctx, admin, id, domain.AdoptionStatusApproved)
}

// Reject resolves a pending adoption as rejected and releases the pet.
func (s *AdoptionService) Reject(ctx context.Context, admin *domain.User, id string) (*domain.Adoption, error) {
	return s.resolve(ctx, admin, id, domain.AdoptionStatusRejected)
}

func (s *AdoptionService) resolve(ctx context.Context, admin *domain.User, id string, to domain.AdoptionStatus) (*domain.Adoption, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound(adoptionResource, nil)
	}

	adoption, err := s.adoptions.Resolve(ctx, id, to, s.now())
	if err != nil {
		var changed *repository.StateChangedError
		if errors.As(err, &changed) {
			s.logger.Warn("resolve rejected: not pending",
				zap.String("adoption_id", id),
				zap.String("status", string(changed.Status)),
			)
			return nil, apperrors.NewConflict(fmt.Sprintf("Adoption already %s", changed.Status), nil)
		}
		return nil, notFoundOr(err, adoptionResource)
	}

	s.metrics.RecordAdoptionTransition(string(to))
	s.logger.Info("adoption resolved",
		zap.String("adoption_id", id),
		zap.String("status", string(to)),
		zap.String("pet_id", adoption.PetID),
	)
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventAdoptionResolved,
		AdoptionID: adoption.ID,
		PetID:      adoption.PetID,
		Actor:      actorOf(admin),
		Payload:    s.resolvedPayload(ctx, adoption),
	})
	return adoption, nil
}

// resolvedPayload gathers the recipient and pet name. Lookup failures leave
// fields empty; the notification is then skipped.
func (s *AdoptionService) resolvedPayload(ctx context.Context, adoption *domain.Adoption) events.AdoptionResolvedPayload {
	payload := events.AdoptionResolvedPayload{
		Status:      adoption.Status,
		RecipientID: adoption.UserID,
	}
	if user, err := s.users.GetByID(ctx, adoption.UserID); err == nil {
		payload.RecipientEmail = user.Email
		payload.RecipientName = user.FullName
	} else {
		s.logger.Warn("notification recipient lookup failed", zap.String("user_id", adoption.UserID), zap.Error(err))
	}
	if pet, err := s.pets.GetByID(ctx, adoption.PetID); err == nil {
		payload.PetName = pet.Name
	} else {
		s.logger.Warn("notification pet lookup failed", zap.String("pet_id", adoption.PetID), zap.Error(err))
	}
	return payload
}

// Withdraw deletes the caller's own adoption. Approved adoptions stay.
func (s *AdoptionService) Withdraw(ctx context.Context, user *domain.User, id string) error {
	if !validID(id) {
		return apperrors.NewNotFound(adoptionResource, nil)
	}

	adoption, err := s.adoptions.Withdraw(ctx, id, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			s.logger.Warn("withdraw rejected: approved", zap.String("adoption_id", id), zap.String("user_id", user.ID))
			return apperrors.NewConflict(msgApprovedWithdrawn, nil)
		}
		return notFoundOr(err, adoptionResource)
	}

	released := adoption.Status == domain.AdoptionStatusPending
	s.logger.Info("adoption withdrawn",
		zap.String("adoption_id", id),
		zap.String("user_id", user.ID),
		zap.Bool("pet_released", released),
	)
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:       events.EventAdoptionWithdrawn,
		AdoptionID: adoption.ID,
		PetID:      adoption.PetID,
		Actor:      actorOf(user),
		Payload: events.AdoptionWithdrawnPayload{
			PreviousStatus: adoption.Status,
			PetReleased:    released,
		},
	})
	return nil
}

// ListForUser returns the user's adoptions with pets embedded, newest first.
func (s *AdoptionService) ListForUser(ctx context.Context, userID string) ([]domain.AdoptionDetail, error) {
	list, err := s.adoptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return list, nil
}

// ListAll returns every adoption with user and pet embedded, newest first.
func (s *AdoptionService) ListAll(ctx context.Context) ([]domain.AdoptionDetail, error) {
	list, err := s.adoptions.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return list, nil
}

func (s *AdoptionService) requestError(ctx context.Context, err error, petID, userID string) error {
	var unavailable *repository.PetUnavailableError
	switch {
	case errors.As(err, &unavailable):
		s.logger.Warn("adoption rejected: pet unavailable",
			zap.String("pet_id", petID),
			zap.String("user_id", userID),
			zap.String("pet_status", string(unavailable.Status)),
		)
		if unavailable.Status == domain.PetStatusAdopted {
			return apperrors.NewConflict(msgPetAdopted, nil)
		}
		// A concurrent request by the same user may have taken the pet.
		if _, findErr := s.adoptions.FindActive(ctx, userID, petID); findErr == nil {
			return apperrors.NewConflict(msgDuplicateRequest, nil)
		}
		return apperrors.NewConflict(msgPetPending, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(msgDuplicateRequest, nil)
	default:
		return notFoundOr(err, "Pet")
	}
}
