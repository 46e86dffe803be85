// Package memory provides in-process implementations of the repository
// interfaces. A single mutex guards all collections so that multi-record
// transitions are atomic, mirroring the transactional Postgres repositories.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/repository"
)

// Store holds users, pets and adoptions.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	pets      map[string]domain.Pet
	adoptions map[string]domain.Adoption
	now       func() time.Time
	seq       int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		pets:      make(map[string]domain.Pet),
		adoptions: make(map[string]domain.Adoption),
		now:       time.Now,
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

// Pets returns the pet repository view of the store.
func (s *Store) Pets() repository.PetRepository { return &petRepo{s: s} }

// Adoptions returns the adoption repository view of the store.
func (s *Store) Adoptions() repository.AdoptionRepository { return &adoptionRepo{s: s} }

// stamp returns a strictly increasing timestamp so newest-first ordering is
// stable even when records are created within the same clock tick.
// Callers must hold the write lock.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq))
}

func newID() string {
	return uuid.NewString()
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range r.s.users {
		if existing.Email == email {
			return repository.ErrDuplicate
		}
	}
	now := r.s.stamp()
	user.ID = newID()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.FullName = user.FullName
	existing.Phone = user.Phone
	existing.PasswordHash = user.PasswordHash
	existing.Role = user.Role
	existing.UpdatedAt = r.s.stamp()
	r.s.users[user.ID] = existing
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type petRepo struct{ s *Store }

func (r *petRepo) Create(_ context.Context, pet *domain.Pet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.stamp()
	pet.ID = newID()
	pet.CreatedAt = now
	pet.UpdatedAt = now
	r.s.pets[pet.ID] = *pet
	return nil
}

func (r *petRepo) Update(_ context.Context, pet *domain.Pet, expected domain.PetStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.pets[pet.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if existing.Status != expected {
		return repository.ErrStateChanged
	}
	updated := *pet
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.s.stamp()
	r.s.pets[pet.ID] = updated

	pet.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *petRepo) GetByID(_ context.Context, id string) (*domain.Pet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	pet, ok := r.s.pets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &pet, nil
}

func (r *petRepo) List(_ context.Context, filter repository.PetFilter) ([]domain.Pet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Pet, 0, len(r.s.pets))
	for _, pet := range r.s.pets {
		if matchesPet(pet, filter) {
			out = append(out, pet)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *petRepo) DistinctBreeds(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[string]struct{})
	breeds := make([]string, 0)
	for _, pet := range r.s.pets {
		if _, ok := seen[pet.Breed]; ok {
			continue
		}
		seen[pet.Breed] = struct{}{}
		breeds = append(breeds, pet.Breed)
	}
	sort.Strings(breeds)
	return breeds, nil
}

func (r *petRepo) Delete(_ context.Context, id string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.pets[id]; !ok {
		return 0, repository.ErrNotFound
	}
	var removed int64
	for adoptionID, adoption := range r.s.adoptions {
		if adoption.PetID == id {
			delete(r.s.adoptions, adoptionID)
			removed++
		}
	}
	delete(r.s.pets, id)
	return removed, nil
}

func matchesPet(pet domain.Pet, filter repository.PetFilter) bool {
	for _, status := range filter.ExcludeStatuses {
		if pet.Status == status {
			return false
		}
	}
	if filter.Species != nil && pet.Species != *filter.Species {
		return false
	}
	if filter.Age != nil && pet.Age != *filter.Age {
		return false
	}
	if filter.Breed != nil && !containsFold(pet.Breed, *filter.Breed) {
		return false
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		term := *filter.SearchTerm
		if !containsFold(pet.Name, term) && !containsFold(pet.Breed, term) && !containsFold(pet.Description, term) {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
