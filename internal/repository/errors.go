package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/adoption-service/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrPetUnavailable is returned when a pet cannot move from available to pending.
	ErrPetUnavailable = errors.New("pet not available")
	// ErrStateChanged is returned when a conditional transition finds another state.
	ErrStateChanged = errors.New("state changed")
)

// PetUnavailableError carries the status that blocked an adoption request.
type PetUnavailableError struct {
	Status domain.PetStatus
}

func (e *PetUnavailableError) Error() string {
	return fmt.Sprintf("pet is %s", e.Status)
}

func (e *PetUnavailableError) Is(target error) bool {
	return target == ErrPetUnavailable
}

// StateChangedError carries the adoption status found by a failed transition.
type StateChangedError struct {
	Status domain.AdoptionStatus
}

func (e *StateChangedError) Error() string {
	return fmt.Sprintf("adoption is %s", e.Status)
}

func (e *StateChangedError) Is(target error) bool {
	return target == ErrStateChanged
}

const uniqueViolation = "23505"

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
