package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/classhub/subject-service/internal/config"
	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             testSecret,
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

// fakeAccountRepo is an in-memory AccountRepository. It mirrors the pgx
// contract the services rely on: pgx.ErrNoRows for missing rows and a
// unique-violation PgError for duplicate usernames.
type fakeAccountRepo struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]domain.Account
	failWith error
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]domain.Account)}
}

func (f *fakeAccountRepo) seed(account domain.Account) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == "" {
		f.seq++
		account.ID = fmt.Sprintf("acc-%d", f.seq)
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
		account.UpdatedAt = now
	}
	f.accounts[account.ID] = account
	return account
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Username == account.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"}
		}
	}
	f.seq++
	account.ID = fmt.Sprintf("acc-%d", f.seq)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.accounts[account.ID] = *account
	return nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	account.UpdatedAt = time.Now()
	f.accounts[account.ID] = *account
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &account, nil
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Username == username {
			cp := account
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Account
	for _, account := range f.accounts {
		if filter.Role != nil && account.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && account.Status != *filter.Status {
			continue
		}
		result = append(result, account)
	}
	return result, nil
}

// fakeSubjectRepo is an in-memory SubjectRepository.
type fakeSubjectRepo struct {
	mu         sync.Mutex
	seq        int
	subjects   map[string]domain.Subject
	lastFilter repository.SubjectFilter
}

var _ repository.SubjectRepository = (*fakeSubjectRepo)(nil)

func newFakeSubjectRepo() *fakeSubjectRepo {
	return &fakeSubjectRepo{subjects: make(map[string]domain.Subject)}
}

func (f *fakeSubjectRepo) seed(subject domain.Subject) domain.Subject {
	f.mu.Lock()
	defer f.mu.Unlock()
	if subject.ID == "" {
		f.seq++
		subject.ID = fmt.Sprintf("sub-%d", f.seq)
	}
	f.subjects[subject.ID] = subject
	return subject
}

func (f *fakeSubjectRepo) Create(_ context.Context, subject *domain.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.subjects {
		if existing.Code == subject.Code {
			return &pgconn.PgError{Code: "23505", ConstraintName: "subjects_code_key"}
		}
	}
	f.seq++
	subject.ID = fmt.Sprintf("sub-%d", f.seq)
	subject.CreatedAt = time.Now()
	subject.UpdatedAt = subject.CreatedAt
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjectRepo) Update(_ context.Context, subject *domain.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subjects[subject.ID]; !ok {
		return pgx.ErrNoRows
	}
	subject.UpdatedAt = time.Now()
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjectRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subjects[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.subjects, id)
	return nil
}

func (f *fakeSubjectRepo) GetByID(_ context.Context, id string) (*domain.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subject, ok := f.subjects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &subject, nil
}

func (f *fakeSubjectRepo) GetByCode(_ context.Context, code string) (*domain.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, subject := range f.subjects {
		if subject.Code == code {
			cp := subject
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubjectRepo) List(_ context.Context, filter repository.SubjectFilter) ([]domain.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var result []domain.Subject
	for _, subject := range f.subjects {
		if filter.Query != nil && *filter.Query != "" {
			q := strings.ToLower(*filter.Query)
			if !strings.Contains(strings.ToLower(subject.Code), q) &&
				!strings.Contains(strings.ToLower(subject.Name), q) {
				continue
			}
		}
		result = append(result, subject)
	}
	return result, nil
}

// fakeDenylist records revocations in memory.
type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

var _ repository.TokenDenylist = (*fakeDenylist)(nil)

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{revoked: make(map[string]time.Duration)}
}

func (f *fakeDenylist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = ttl
	return nil
}

func (f *fakeDenylist) IsRevoked(_ context.Context, token string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[token]
	return ok, nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Dispatcher = (*recordingDispatcher)(nil)

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
