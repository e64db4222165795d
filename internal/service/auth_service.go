package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classhub/subject-service/internal/auth"
	"github.com/classhub/subject-service/internal/config"
	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/repository"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

// Login failure reasons recorded on the audit trail. Externally every
// failed login is the same invalid-credentials response.
const (
	reasonUnknownUsername  = "unknown_username"
	reasonWrongPassword    = "wrong_password"
	reasonAccountSuspended = "account_suspended"
)

// Session describes an issued token together with the account it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// AuthService coordinates login, logout and token issuance.
type AuthService struct {
	accounts   repository.AccountRepository
	denylist   repository.TokenDenylist
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	dummyHash  string
}

// AuthDependencies encapsulates collaborator requirements for AuthService.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Denylist    repository.TokenDenylist
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service. It owns the token manager, so a
// missing signing secret fails construction at startup.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	if err != nil {
		return nil, err
	}
	dummyHash, err := auth.NewDummyHash(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		accounts:   deps.AccountRepo,
		denylist:   deps.Denylist,
		dispatcher: deps.Dispatcher,
		tokenMgr:   tokenMgr,
		bcryptCost: cfg.Auth.BcryptCost,
		dummyHash:  dummyHash,
	}, nil
}

// Login verifies credentials and issues a session token. Unknown username,
// wrong password and suspended account all return the same error; the
// concrete reason goes to the audit trail only. Unknown usernames still pay
// a full hash comparison so response timing does not reveal which accounts
// exist.
func (s *AuthService) Login(ctx context.Context, username, password, remoteIP string) (*Session, error) {
	account, err := s.accounts.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = auth.ComparePassword(s.dummyHash, password)
			s.publishLoginFailed(ctx, username, reasonUnknownUsername, remoteIP)
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.publishLoginFailed(ctx, username, reasonWrongPassword, remoteIP)
		return nil, apperrors.NewInvalidCredentials()
	}

	if account.Status != domain.AccountStatusActive {
		s.publishLoginFailed(ctx, username, reasonAccountSuspended, remoteIP)
		return nil, apperrors.NewInvalidCredentials()
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventLoginSucceeded,
		Username: account.Username,
		Actor:    accountActor(account),
		Payload: events.LoginSucceededPayload{
			AccountID:      account.ID,
			Role:           account.Role,
			TokenExpiresAt: expiresAt,
			RemoteIP:       remoteIP,
		},
	})
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// IssueSession builds a token for an account a trusted flow has already
// verified, such as a fresh registration. Credential checks stay in Login.
func (s *AuthService) IssueSession(account *domain.Account) (*Session, error) {
	token, expiresAt, err := s.tokenMgr.GenerateToken(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// Logout revokes the presented token until its natural expiry. Without a
// denylist the call still succeeds and the token simply ages out.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if principal == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if s.denylist != nil {
		if err := s.denylist.Revoke(ctx, principal.Token, time.Until(principal.ExpiresAt)); err != nil {
			return apperrors.MapError(err)
		}
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventLogout,
		Username: principal.Username,
		Actor:    principalActor(principal),
		Payload:  events.LogoutPayload{AccountID: principal.AccountID},
	})
	return nil
}

// CurrentAccount loads the live account behind a principal. Authorization
// runs on claims alone; the profile endpoint wants current data rather than
// the login-time projection.
func (s *AuthService) CurrentAccount(ctx context.Context, principal *auth.Principal) (*domain.Account, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	account, err := s.accounts.GetByID(ctx, principal.AccountID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, principal *auth.Principal, currentPassword, newPassword string) error {
	if principal == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, principal.AccountID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return apperrors.NewInvalidCredentials()
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventPasswordChanged,
		Username: account.Username,
		Actor:    accountActor(account),
		Payload:  events.PasswordChangedPayload{AccountID: account.ID},
	})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publishLoginFailed(ctx context.Context, username, reason, remoteIP string) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventLoginFailed,
		Username: username,
		Payload:  events.LoginFailedPayload{Reason: reason, RemoteIP: remoteIP},
	})
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func accountActor(account *domain.Account) events.Actor {
	return events.Actor{AccountID: account.ID, Username: account.Username, Role: account.Role}
}

func principalActor(principal *auth.Principal) events.Actor {
	if principal == nil {
		return events.Actor{}
	}
	return events.Actor{AccountID: principal.AccountID, Username: principal.Username, Role: principal.Role}
}
