package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/repository"
)

type adoptionRepo struct{ s *Store }

func (r *adoptionRepo) CreateRequest(_ context.Context, adoption *domain.Adoption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pet, ok := r.s.pets[adoption.PetID]
	if !ok {
		return repository.ErrNotFound
	}
	if pet.Status != domain.PetStatusAvailable {
		return &repository.PetUnavailableError{Status: pet.Status}
	}
	for _, existing := range r.s.adoptions {
		if existing.UserID == adoption.UserID && existing.PetID == adoption.PetID && existing.Status.Active() {
			return repository.ErrDuplicate
		}
	}

	now := r.s.stamp()
	pet.Status = domain.PetStatusPending
	pet.UpdatedAt = now
	r.s.pets[pet.ID] = pet

	adoption.ID = newID()
	adoption.Status = domain.AdoptionStatusPending
	adoption.CreatedAt = now
	adoption.UpdatedAt = now
	r.s.adoptions[adoption.ID] = *adoption
	return nil
}

func (r *adoptionRepo) GetByID(_ context.Context, id string) (*domain.Adoption, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	adoption, ok := r.s.adoptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &adoption, nil
}

func (r *adoptionRepo) FindActive(_ context.Context, userID, petID string) (*domain.Adoption, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, adoption := range r.s.adoptions {
		if adoption.UserID == userID && adoption.PetID == petID && adoption.Status.Active() {
			a := adoption
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *adoptionRepo) CountActiveForPet(_ context.Context, petID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, adoption := range r.s.adoptions {
		if adoption.PetID == petID && adoption.Status.Active() {
			count++
		}
	}
	return count, nil
}

func (r *adoptionRepo) Resolve(_ context.Context, id string, to domain.AdoptionStatus, at time.Time) (*domain.Adoption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	adoption, ok := r.s.adoptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if adoption.Status != domain.AdoptionStatusPending {
		return nil, &repository.StateChangedError{Status: adoption.Status}
	}

	now := r.s.stamp()
	adoption.Status = to
	adoption.UpdatedAt = now
	if to == domain.AdoptionStatusApproved {
		adoptedAt := at
		adoption.AdoptedAt = &adoptedAt
	}
	r.s.adoptions[id] = adoption

	if pet, ok := r.s.pets[adoption.PetID]; ok {
		pet.Status = to.PetStatusOnResolve()
		pet.UpdatedAt = now
		r.s.pets[pet.ID] = pet
	}
	return &adoption, nil
}

func (r *adoptionRepo) Withdraw(_ context.Context, id, userID string) (*domain.Adoption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	adoption, ok := r.s.adoptions[id]
	if !ok || adoption.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if adoption.Status == domain.AdoptionStatusApproved {
		return nil, &repository.StateChangedError{Status: adoption.Status}
	}

	delete(r.s.adoptions, id)
	if adoption.Status == domain.AdoptionStatusPending {
		if pet, ok := r.s.pets[adoption.PetID]; ok && pet.Status == domain.PetStatusPending {
			pet.Status = domain.PetStatusAvailable
			pet.UpdatedAt = r.s.stamp()
			r.s.pets[pet.ID] = pet
		}
	}
	return &adoption, nil
}

func (r *adoptionRepo) ListByUser(_ context.Context, userID string) ([]domain.AdoptionDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.details(func(a domain.Adoption) bool { return a.UserID == userID }), nil
}

func (r *adoptionRepo) ListAll(_ context.Context) ([]domain.AdoptionDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.details(func(domain.Adoption) bool { return true }), nil
}

// details must be called with the read lock held.
func (r *adoptionRepo) details(keep func(domain.Adoption) bool) []domain.AdoptionDetail {
	out := make([]domain.AdoptionDetail, 0)
	for _, adoption := range r.s.adoptions {
		if !keep(adoption) {
			continue
		}
		detail := domain.AdoptionDetail{Adoption: adoption}
		if user, ok := r.s.users[adoption.UserID]; ok {
			u := user
			detail.User = &u
		}
		if pet, ok := r.s.pets[adoption.PetID]; ok {
			p := pet
			detail.Pet = &p
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
