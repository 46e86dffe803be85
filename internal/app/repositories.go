// Package app assembles the service from configuration.
package app

import (
	"github.com/spec-kit/adoption-service/internal/persistence"
	"github.com/spec-kit/adoption-service/internal/repository"
	"github.com/spec-kit/adoption-service/internal/repository/memory"
)

// Repositories groups the storage ports used by the services.
type Repositories struct {
	Users     repository.UserRepository
	Pets      repository.PetRepository
	Adoptions repository.AdoptionRepository
}

// NewRepositories returns Postgres backed repositories when a pool is
// available and a process local store otherwise.
func NewRepositories(pg *persistence.Postgres) Repositories {
	if pool := pg.PoolHandle(); pool != nil {
		return Repositories{
			Users:     repository.NewUserRepository(pool),
			Pets:      repository.NewPetRepository(pool),
			Adoptions: repository.NewAdoptionRepository(pool),
		}
	}
	store := memory.NewStore()
	return Repositories{
		Users:     store.Users(),
		Pets:      store.Pets(),
		Adoptions: store.Adoptions(),
	}
}
