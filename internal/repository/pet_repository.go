package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/adoption-service/internal/domain"
)

// PetFilter captures catalog search parameters. Nil fields are ignored.
type PetFilter struct {
	Species         *domain.Species
	Breed           *string
	Age             *int
	SearchTerm      *string
	ExcludeStatuses []domain.PetStatus
}

// PetRepository encapsulates pet persistence.
type PetRepository interface {
	Create(ctx context.Context, pet *domain.Pet) error
	// Update writes every editable field and the status in one statement,
	// provided the stored status still equals expected. Otherwise it fails
	// with ErrStateChanged and nothing is written.
	Update(ctx context.Context, pet *domain.Pet, expected domain.PetStatus) error
	GetByID(ctx context.Context, id string) (*domain.Pet, error)
	List(ctx context.Context, filter PetFilter) ([]domain.Pet, error)
	DistinctBreeds(ctx context.Context) ([]string, error)
	// Delete removes the pet and every adoption referencing it, returning
	// the number of adoptions removed.
	Delete(ctx context.Context, id string) (int64, error)
}

type petRepository struct {
	pool *pgxpool.Pool
}

// NewPetRepository instantiates repository.
func NewPetRepository(pool *pgxpool.Pool) PetRepository {
	return &petRepository{pool: pool}
}

const petColumns = `id, name, breed, age, species, gender, description, image_url, image_key, status, created_at, updated_at`

func (r *petRepository) Create(ctx context.Context, pet *domain.Pet) error {
	const query = `
        INSERT INTO pets (name, breed, age, species, gender, description, image_url, image_key, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		pet.Name,
		pet.Breed,
		pet.Age,
		pet.Species,
		pet.Gender,
		pet.Description,
		pet.ImageURL,
		pet.ImageKey,
		pet.Status,
	).Scan(&pet.ID, &pet.CreatedAt, &pet.UpdatedAt)
	return mapPgError(err)
}

func (r *petRepository) Update(ctx context.Context, pet *domain.Pet, expected domain.PetStatus) error {
	const query = `
        UPDATE pets SET name=$1, breed=$2, age=$3, species=$4, gender=$5, description=$6,
            image_url=$7, image_key=$8, status=$9, updated_at=NOW()
        WHERE id=$10 AND status=$11
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		pet.Name,
		pet.Breed,
		pet.Age,
		pet.Species,
		pet.Gender,
		pet.Description,
		pet.ImageURL,
		pet.ImageKey,
		pet.Status,
		pet.ID,
		expected,
	).Scan(&pet.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return mapPgError(err)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pets WHERE id=$1)`, pet.ID).Scan(&exists); err != nil {
		return mapPgError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStateChanged
}

func (r *petRepository) GetByID(ctx context.Context, id string) (*domain.Pet, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+petColumns+` FROM pets WHERE id=$1`, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	pet, err := pgx.CollectExactlyOneRow(rows, scanPet)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &pet, nil
}

func (r *petRepository) List(ctx context.Context, filter PetFilter) ([]domain.Pet, error) {
	base := `SELECT ` + petColumns + ` FROM pets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatuses))
		for i, status := range filter.ExcludeStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Species != nil {
		args = append(args, *filter.Species)
		clauses = append(clauses, fmt.Sprintf("species=$%d", len(args)))
	}
	if filter.Age != nil {
		args = append(args, *filter.Age)
		clauses = append(clauses, fmt.Sprintf("age=$%d", len(args)))
	}
	if filter.Breed != nil && strings.TrimSpace(*filter.Breed) != "" {
		args = append(args, likePattern(*filter.Breed))
		clauses = append(clauses, fmt.Sprintf("breed ILIKE $%d ESCAPE '\\'", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, likePattern(*filter.SearchTerm))
		idx := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE $%[1]d ESCAPE '\\' OR breed ILIKE $%[1]d ESCAPE '\\' OR description ILIKE $%[1]d ESCAPE '\\')", idx))
	}

	query := base + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY created_at DESC"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	pets, err := pgx.CollectRows(rows, scanPet)
	if err != nil {
		return nil, err
	}
	return pets, nil
}

func (r *petRepository) DistinctBreeds(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT breed FROM pets ORDER BY breed`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *petRepository) Delete(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM adoptions WHERE pet_id=$1`, id)
		if err != nil {
			return err
		}
		removed = cmd.RowsAffected()

		cmd, err = tx.Exec(ctx, `DELETE FROM pets WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, mapPgError(err)
	}
	return removed, nil
}

func scanPet(row pgx.CollectableRow) (domain.Pet, error) {
	var pet domain.Pet
	err := row.Scan(
		&pet.ID,
		&pet.Name,
		&pet.Breed,
		&pet.Age,
		&pet.Species,
		&pet.Gender,
		&pet.Description,
		&pet.ImageURL,
		&pet.ImageKey,
		&pet.Status,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	return pet, err
}

// likePattern turns user input into a case-insensitive substring pattern,
// escaping LIKE metacharacters so they match literally.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}
