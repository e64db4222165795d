package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/repository"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

// SubjectService coordinates the subject catalog. It trusts the route-level
// guard for authorization and concerns itself with catalog rules only.
type SubjectService struct {
	subjects repository.SubjectRepository
}

// SubjectInput describes subject create/update payloads.
type SubjectInput struct {
	Code        string
	Name        string
	Description string
	Credits     int
}

// SubjectListFilter describes listing parameters. Query matches code and
// name.
type SubjectListFilter struct {
	Query  *string
	Limit  int
	Offset int
}

// NewSubjectService constructs the service.
func NewSubjectService(subjects repository.SubjectRepository) *SubjectService {
	return &SubjectService{subjects: subjects}
}

// CreateSubject adds a subject to the catalog. Codes are stored uppercase
// and must be unique.
func (s *SubjectService) CreateSubject(ctx context.Context, input SubjectInput) (*domain.Subject, error) {
	input.Code = normalizeSubjectCode(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateSubjectInput(input); err != nil {
		return nil, err
	}

	if _, err := s.subjects.GetByCode(ctx, input.Code); err == nil {
		return nil, apperrors.NewConflict("subject code already exists", map[string]any{"code": input.Code})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	subject := &domain.Subject{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Credits:     input.Credits,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, apperrors.MapError(err)
	}
	return subject, nil
}

// GetSubject fetches one subject by id.
func (s *SubjectService) GetSubject(ctx context.Context, id string) (*domain.Subject, error) {
	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return subject, nil
}

// ListSubjects returns subjects matching the filter.
func (s *SubjectService) ListSubjects(ctx context.Context, filter SubjectListFilter) ([]domain.Subject, error) {
	subjects, err := s.subjects.List(ctx, repository.SubjectFilter{
		Query:  filter.Query,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return subjects, nil
}

// UpdateSubject replaces a subject's fields. A code change re-checks
// uniqueness against the rest of the catalog.
func (s *SubjectService) UpdateSubject(ctx context.Context, id string, input SubjectInput) (*domain.Subject, error) {
	input.Code = normalizeSubjectCode(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateSubjectInput(input); err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if input.Code != subject.Code {
		if existing, err := s.subjects.GetByCode(ctx, input.Code); err == nil && existing.ID != subject.ID {
			return nil, apperrors.NewConflict("subject code already exists", map[string]any{"code": input.Code})
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	subject.Code = input.Code
	subject.Name = input.Name
	subject.Description = input.Description
	subject.Credits = input.Credits
	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, apperrors.MapError(err)
	}
	return subject, nil
}

// DeleteSubject removes a subject from the catalog.
func (s *SubjectService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func normalizeSubjectCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateSubjectInput(input SubjectInput) error {
	if input.Code == "" || input.Name == "" {
		return apperrors.NewValidationError("code and name required", nil)
	}
	if input.Credits < 0 {
		return apperrors.NewValidationError("credits must not be negative", map[string]any{"credits": input.Credits})
	}
	return nil
}
