package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/adoption-service/internal/domain"
)

// AdoptionRepository encapsulates adoption persistence. Every state
// transition runs as one atomic unit together with its pet status change.
type AdoptionRepository interface {
	// CreateRequest moves the pet from available to pending and inserts the
	// adoption. It fails with ErrNotFound when the pet is missing,
	// a *PetUnavailableError when the pet is not available, and ErrDuplicate
	// when the user already holds an active request for the pet.
	CreateRequest(ctx context.Context, adoption *domain.Adoption) error
	GetByID(ctx context.Context, id string) (*domain.Adoption, error)
	FindActive(ctx context.Context, userID, petID string) (*domain.Adoption, error)
	CountActiveForPet(ctx context.Context, petID string) (int, error)
	// Resolve moves a pending adoption into a terminal status and sets the
	// pet status accordingly. A non-pending adoption yields *StateChangedError.
	Resolve(ctx context.Context, id string, to domain.AdoptionStatus, at time.Time) (*domain.Adoption, error)
	// Withdraw deletes the caller's adoption, releasing the pet when the
	// adoption was pending. Approved adoptions yield *StateChangedError.
	Withdraw(ctx context.Context, id, userID string) (*domain.Adoption, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AdoptionDetail, error)
	ListAll(ctx context.Context) ([]domain.AdoptionDetail, error)
}

type adoptionRepository struct {
	pool *pgxpool.Pool
}

// NewAdoptionRepository instantiates repository.
func NewAdoptionRepository(pool *pgxpool.Pool) AdoptionRepository {
	return &adoptionRepository{pool: pool}
}

const adoptionColumns = `id, user_id, pet_id, status, adopted_at, created_at, updated_at`

func (r *adoptionRepository) CreateRequest(ctx context.Context, adoption *domain.Adoption) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status domain.PetStatus
		// Row lock serialises concurrent requests for the same pet.
		if err := tx.QueryRow(ctx,
			`SELECT status FROM pets WHERE id=$1 FOR UPDATE`, adoption.PetID,
		).Scan(&status); err != nil {
			return err
		}
		if status != domain.PetStatusAvailable {
			return &PetUnavailableError{Status: status}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE pets SET status=$1, updated_at=NOW() WHERE id=$2`,
			domain.PetStatusPending, adoption.PetID,
		); err != nil {
			return err
		}

		adoption.Status = domain.AdoptionStatusPending
		return tx.QueryRow(ctx, `
            INSERT INTO adoptions (user_id, pet_id, status)
            VALUES ($1, $2, $3)
            RETURNING id, created_at, updated_at`,
			adoption.UserID, adoption.PetID, adoption.Status,
		).Scan(&adoption.ID, &adoption.CreatedAt, &adoption.UpdatedAt)
	})
	return mapPgError(err)
}

func (r *adoptionRepository) GetByID(ctx context.Context, id string) (*domain.Adoption, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adoptionColumns+` FROM adoptions WHERE id=$1`, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	adoption, err := pgx.CollectExactlyOneRow(rows, scanAdoption)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &adoption, nil
}

func (r *adoptionRepository) FindActive(ctx context.Context, userID, petID string) (*domain.Adoption, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+adoptionColumns+` FROM adoptions
        WHERE user_id=$1 AND pet_id=$2 AND status IN ($3, $4)
        LIMIT 1`,
		userID, petID, domain.AdoptionStatusPending, domain.AdoptionStatusApproved)
	if err != nil {
		return nil, mapPgError(err)
	}
	adoption, err := pgx.CollectExactlyOneRow(rows, scanAdoption)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &adoption, nil
}

func (r *adoptionRepository) CountActiveForPet(ctx context.Context, petID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM adoptions WHERE pet_id=$1 AND status IN ($2, $3)`,
		petID, domain.AdoptionStatusPending, domain.AdoptionStatusApproved,
	).Scan(&count)
	return count, err
}

func (r *adoptionRepository) Resolve(ctx context.Context, id string, to domain.AdoptionStatus, at time.Time) (*domain.Adoption, error) {
	var adoption domain.Adoption
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var adoptedAt *time.Time
		if to == domain.AdoptionStatusApproved {
			adoptedAt = &at
		}

		rows, err := tx.Query(ctx, `
            UPDATE adoptions SET status=$1, adopted_at=$2, updated_at=NOW()
            WHERE id=$3 AND status=$4
            RETURNING `+adoptionColumns,
			to, adoptedAt, id, domain.AdoptionStatusPending)
		if err != nil {
			return err
		}
		adoption, err = pgx.CollectExactlyOneRow(rows, scanAdoption)
		if errors.Is(err, pgx.ErrNoRows) {
			return currentStateError(ctx, tx, id)
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE pets SET status=$1, updated_at=NOW() WHERE id=$2`,
			to.PetStatusOnResolve(), adoption.PetID)
		return err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return &adoption, nil
}

func (r *adoptionRepository) Withdraw(ctx context.Context, id, userID string) (*domain.Adoption, error) {
	var adoption domain.Adoption
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            DELETE FROM adoptions
            WHERE id=$1 AND user_id=$2 AND status<>$3
            RETURNING `+adoptionColumns,
			id, userID, domain.AdoptionStatusApproved)
		if err != nil {
			return err
		}
		adoption, err = pgx.CollectExactlyOneRow(rows, scanAdoption)
		if errors.Is(err, pgx.ErrNoRows) {
			var status domain.AdoptionStatus
			scanErr := tx.QueryRow(ctx,
				`SELECT status FROM adoptions WHERE id=$1 AND user_id=$2`, id, userID,
			).Scan(&status)
			if scanErr != nil {
				return scanErr
			}
			return &StateChangedError{Status: status}
		}
		if err != nil {
			return err
		}

		if adoption.Status == domain.AdoptionStatusPending {
			_, err = tx.Exec(ctx,
				`UPDATE pets SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
				domain.PetStatusAvailable, adoption.PetID, domain.PetStatusPending)
		}
		return err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return &adoption, nil
}

const adoptionDetailQuery = `
    SELECT a.id, a.user_id, a.pet_id, a.status, a.adopted_at, a.created_at, a.updated_at,
           u.id, u.full_name, u.email, u.phone,
           p.id, p.name, p.breed, p.age, p.species, p.gender, p.description,
           p.image_url, p.image_key, p.status, p.created_at, p.updated_at
    FROM adoptions a
    LEFT JOIN users u ON u.id = a.user_id
    LEFT JOIN pets p ON p.id = a.pet_id`

func (r *adoptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.AdoptionDetail, error) {
	rows, err := r.pool.Query(ctx, adoptionDetailQuery+` WHERE a.user_id=$1 ORDER BY a.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAdoptionDetail)
}

func (r *adoptionRepository) ListAll(ctx context.Context) ([]domain.AdoptionDetail, error) {
	rows, err := r.pool.Query(ctx, adoptionDetailQuery+` ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAdoptionDetail)
}

func currentStateError(ctx context.Context, tx pgx.Tx, id string) error {
	var status domain.AdoptionStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM adoptions WHERE id=$1`, id).Scan(&status); err != nil {
		return err
	}
	return &StateChangedError{Status: status}
}

func scanAdoption(row pgx.CollectableRow) (domain.Adoption, error) {
	var adoption domain.Adoption
	err := row.Scan(
		&adoption.ID,
		&adoption.UserID,
		&adoption.PetID,
		&adoption.Status,
		&adoption.AdoptedAt,
		&adoption.CreatedAt,
		&adoption.UpdatedAt,
	)
	return adoption, err
}

func scanAdoptionDetail(row pgx.CollectableRow) (domain.AdoptionDetail, error) {
	var (
		detail  domain.AdoptionDetail
		userID  *string
		user    domain.User
		petID   *string
		pet     domain.Pet
		name    *string
		breed   *string
		age     *int
		species *string
		gender  *string
		desc    *string
		imgURL  *string
		imgKey  *string
		status  *string
		created *time.Time
		updated *time.Time
		email   *string
		phone   *string
		full    *string
	)
	err := row.Scan(
		&detail.ID,
		&detail.UserID,
		&detail.PetID,
		&detail.Status,
		&detail.AdoptedAt,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&userID, &full, &email, &phone,
		&petID, &name, &breed, &age, &species, &gender, &desc,
		&imgURL, &imgKey, &status, &created, &updated,
	)
	if err != nil {
		return detail, err
	}

	if userID != nil {
		user.ID = *userID
		user.FullName = deref(full)
		user.Email = deref(email)
		user.Phone = deref(phone)
		detail.User = &user
	}
	if petID != nil {
		pet.ID = *petID
		pet.Name = deref(name)
		pet.Breed = deref(breed)
		if age != nil {
			pet.Age = *age
		}
		pet.Species = domain.Species(deref(species))
		pet.Gender = domain.Gender(deref(gender))
		pet.Description = deref(desc)
		pet.ImageURL = deref(imgURL)
		pet.ImageKey = deref(imgKey)
		pet.Status = domain.PetStatus(deref(status))
		if created != nil {
			pet.CreatedAt = *created
		}
		if updated != nil {
			pet.UpdatedAt = *updated
		}
		detail.Pet = &pet
	}
	return detail, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
