package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/classhub/subject-service/internal/auth"
	"github.com/classhub/subject-service/internal/config"
	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/repository"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 8
)

// AccountService manages the account lifecycle: self-service registration
// and the admin-gated management endpoints. Authorization happens at the
// route declaration; this service only attributes actions to the actor for
// the audit trail.
type AccountService struct {
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	bcryptCost int
	bootstrap  bootstrapAdmin
}

type bootstrapAdmin struct {
	username string
	password string
}

// AccountCreateInput describes a new account.
type AccountCreateInput struct {
	Username    string
	DisplayName string
	Password    string
	Role        domain.Role
}

// AccountListFilter defines listing parameters.
type AccountListFilter struct {
	Role   *domain.Role
	Status *domain.AccountStatus
	Limit  int
	Offset int
}

// NewAccountService constructs the service.
func NewAccountService(cfg config.Config, accounts repository.AccountRepository, dispatcher events.Dispatcher) *AccountService {
	return &AccountService{
		accounts:   accounts,
		dispatcher: dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		bootstrap: bootstrapAdmin{
			username: cfg.Auth.BootstrapAdminUsername,
			password: cfg.Auth.BootstrapAdminPassword,
		},
	}
}

// Register creates a self-service account. Signups always start as
// students; privileged roles are granted through CreateAccount or the
// bootstrap configuration.
func (s *AccountService) Register(ctx context.Context, username, displayName, password string) (*domain.Account, error) {
	return s.create(ctx, events.Actor{}, AccountCreateInput{
		Username:    username,
		DisplayName: displayName,
		Password:    password,
		Role:        domain.RoleStudent,
	})
}

// CreateAccount creates an account with any role on behalf of an admin.
func (s *AccountService) CreateAccount(ctx context.Context, actor *auth.Principal, input AccountCreateInput) (*domain.Account, error) {
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	return s.create(ctx, principalActor(actor), input)
}

func (s *AccountService) create(ctx context.Context, actor events.Actor, input AccountCreateInput) (*domain.Account, error) {
	username := normalizeUsername(input.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	account := &domain.Account{
		Username:     username,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hash,
		Role:         input.Role,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventAccountCreated,
		Username: account.Username,
		Actor:    actor,
		Payload:  events.AccountCreatedPayload{AccountID: account.ID, Role: account.Role},
	})
	return account, nil
}

// GetAccount fetches one account by id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// ListAccounts returns accounts matching the filter.
func (s *AccountService) ListAccounts(ctx context.Context, filter AccountListFilter) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, repository.AccountFilter{
		Role:   filter.Role,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return accounts, nil
}

// ChangeRole assigns a new role. Changing your own role is rejected so an
// admin cannot lock the last privileged account out by accident.
func (s *AccountService) ChangeRole(ctx context.Context, actor *auth.Principal, id string, role domain.Role) (*domain.Account, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if actor != nil && actor.AccountID == id {
		return nil, apperrors.NewValidationError("cannot change your own role", nil)
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	oldRole := account.Role
	if oldRole == role {
		return account, nil
	}

	account.Role = role
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventAccountRoleChanged,
		Username: account.Username,
		Actor:    principalActor(actor),
		Payload:  events.AccountRoleChangedPayload{AccountID: account.ID, OldRole: oldRole, NewRole: role},
	})
	return account, nil
}

// ChangeStatus activates or suspends an account. A suspended account keeps
// its row but can no longer log in; tokens it already holds age out.
func (s *AccountService) ChangeStatus(ctx context.Context, actor *auth.Principal, id string, status domain.AccountStatus) (*domain.Account, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	if actor != nil && actor.AccountID == id {
		return nil, apperrors.NewValidationError("cannot change your own status", nil)
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	oldStatus := account.Status
	if oldStatus == status {
		return account, nil
	}

	account.Status = status
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventAccountStatusChanged,
		Username: account.Username,
		Actor:    principalActor(actor),
		Payload:  events.AccountStatusChangedPayload{AccountID: account.ID, OldStatus: oldStatus, NewStatus: status},
	})
	return account, nil
}

// DeleteAccount removes an account. Self-deletion is rejected for the same
// lockout reason as ChangeRole.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *auth.Principal, id string) error {
	if actor != nil && actor.AccountID == id {
		return apperrors.NewValidationError("cannot delete your own account", nil)
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventAccountDeleted,
		Username: account.Username,
		Actor:    principalActor(actor),
		Payload:  events.AccountDeletedPayload{AccountID: account.ID},
	})
	return nil
}

// Bootstrap ensures the configured admin account exists. It runs once at
// startup and is idempotent: when the username is already taken nothing
// changes. Reports whether an account was created.
func (s *AccountService) Bootstrap(ctx context.Context) (bool, error) {
	username := normalizeUsername(s.bootstrap.username)
	if username == "" || s.bootstrap.password == "" {
		return false, nil
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, apperrors.MapError(err)
	}

	if _, err := s.create(ctx, events.Actor{}, AccountCreateInput{
		Username: username,
		Password: s.bootstrap.password,
		Role:     domain.RoleAdmin,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// normalizeUsername lowercases and trims a username so that lookups at
// login match what registration stored, regardless of how the caller typed
// it.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength), nil)
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return apperrors.NewValidationError("username may only contain letters, digits, '.', '_' and '-'", nil)
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}
	if len(password) > auth.MaxPasswordLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at most %d characters", auth.MaxPasswordLength), nil)
	}
	return nil
}
