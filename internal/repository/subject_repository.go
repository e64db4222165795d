package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classhub/subject-service/internal/domain"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository interface {
	Create(ctx context.Context, subject *domain.Subject) error
	Update(ctx context.Context, subject *domain.Subject) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Subject, error)
	GetByCode(ctx context.Context, code string) (*domain.Subject, error)
	List(ctx context.Context, filter SubjectFilter) ([]domain.Subject, error)
}

// SubjectFilter defines query params for subject listing. Query matches
// against code and name, case-insensitively.
type SubjectFilter struct {
	Query  *string
	Limit  int
	Offset int
}

type subjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository returns a Postgres-backed implementation.
func NewSubjectRepository(pool *pgxpool.Pool) SubjectRepository {
	return &subjectRepository{pool: pool}
}

func (r *subjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	const query = `
        INSERT INTO subjects (code, name, description, credits)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		subject.Code,
		subject.Name,
		subject.Description,
		subject.Credits,
	).Scan(&subject.ID, &subject.CreatedAt, &subject.UpdatedAt)
}

func (r *subjectRepository) Update(ctx context.Context, subject *domain.Subject) error {
	const query = `
        UPDATE subjects SET code=$1, name=$2, description=$3, credits=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		subject.Code,
		subject.Name,
		subject.Description,
		subject.Credits,
		subject.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM subjects WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subjectRepository) GetByID(ctx context.Context, id string) (*domain.Subject, error) {
	const query = `
        SELECT id, code, name, description, credits, created_at, updated_at
        FROM subjects WHERE id=$1`

	var subject domain.Subject
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&subject.ID,
		&subject.Code,
		&subject.Name,
		&subject.Description,
		&subject.Credits,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepository) GetByCode(ctx context.Context, code string) (*domain.Subject, error) {
	const query = `
        SELECT id, code, name, description, credits, created_at, updated_at
        FROM subjects WHERE code=$1`

	var subject domain.Subject
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&subject.ID,
		&subject.Code,
		&subject.Name,
		&subject.Description,
		&subject.Credits,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepository) List(ctx context.Context, filter SubjectFilter) ([]domain.Subject, error) {
	query := `
        SELECT id, code, name, description, credits, created_at, updated_at
        FROM subjects`
	args := []any{}
	clauses := []string{}

	if filter.Query != nil && *filter.Query != "" {
		args = append(args, "%"+*filter.Query+"%")
		clauses = append(clauses, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY code ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Subject
	for rows.Next() {
		var subject domain.Subject
		if err := rows.Scan(
			&subject.ID,
			&subject.Code,
			&subject.Name,
			&subject.Description,
			&subject.Credits,
			&subject.CreatedAt,
			&subject.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, subject)
	}
	return result, rows.Err()
}
