package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	CredRepo *mockCredentialRepo
	UserRepo *mockUserRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		CredRepo: &mockCredentialRepo{creds: map[string]models.Credential{}, codes: map[string]models.LoginCode{}},
		UserRepo: &mockUserRepo{byEmail: map[string]*models.User{}},
	}
}

var (
	_ repository.CredentialRepo = (*mockCredentialRepo)(nil)
	_ repository.UserRepo       = (*mockUserRepo)(nil)
)

type mockCredentialRepo struct {
	mu        sync.Mutex
	creds     map[string]models.Credential
	codes     map[string]models.LoginCode
	CreateErr error
}

func (m *mockCredentialRepo) CreateCredential(ctx context.Context, c *models.Credential) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return false, m.CreateErr
	}
	if _, ok := m.creds[c.Email]; ok {
		return false, nil
	}
	m.creds[c.Email] = *c
	return true, nil
}

func (m *mockCredentialRepo) GetCredential(ctx context.Context, email string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[email]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockCredentialRepo) CreateLoginCode(ctx context.Context, c *models.LoginCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.Code] = *c
	return nil
}

func (m *mockCredentialRepo) ConsumeLoginCode(ctx context.Context, code string, now int64) (*models.LoginCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[code]
	if !ok {
		return nil, nil
	}
	delete(m.codes, code)
	if c.Expires <= now {
		return nil, nil
	}
	return &c, nil
}

func (m *mockCredentialRepo) PurgeExpiredLoginCodes(ctx context.Context, now int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, c := range m.codes {
		if c.Expires <= now {
			delete(m.codes, k)
			n++
		}
	}
	return n, nil
}

// Codes returns the number of outstanding login codes.
func (m *mockCredentialRepo) Codes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

type mockUserRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	EnsureErr error
}

func (m *mockUserRepo) EnsureProfile(ctx context.Context, u *models.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnsureErr != nil {
		return false, m.EnsureErr
	}
	if got, ok := m.byEmail[u.Email]; ok {
		*u = *got
		return false, nil
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Role = models.RoleVisitor
	stored := *u
	m.byEmail[u.Email] = &stored
	return true, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserRole(ctx context.Context, email string) (models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u.Role, nil
	}
	return models.RoleVisitor, nil
}

func (m *mockUserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.byEmail))
	for _, u := range m.byEmail {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) SetUserRole(ctx context.Context, id string, role models.Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			u.Role = role
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) CountCompletedTasks(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}
