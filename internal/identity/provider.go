package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCode        = errors.New("invalid or expired login code")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// CodeTTL bounds how long a login code may wait for its exchange.
const CodeTTL = 5 * time.Minute

// Provider exchanges an authorization code for the authenticated email.
type Provider interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// LocalProvider authenticates email/password pairs stored in the club database
// and hands out one-time codes consumed by the callback.
type LocalProvider struct {
	repo repository.CredentialRepo
	cost int
	now  func() time.Time
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(repo repository.CredentialRepo) *LocalProvider {
	return &LocalProvider{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// NormalizeEmail lower-cases and validates an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (p *LocalProvider) Signup(ctx context.Context, email, password string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	created, err := p.repo.CreateCredential(ctx, &models.Credential{Email: email, PasswordHash: string(hash)})
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	if !created {
		return ErrEmailTaken
	}
	return nil
}

// Signin verifies the password and returns a one-time login code.
func (p *LocalProvider) Signin(ctx context.Context, email, password string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	cred, err := p.repo.GetCredential(ctx, email)
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	if cred == nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	code := &models.LoginCode{
		Code:    uuid.NewString(),
		Email:   email,
		Expires: p.now().Add(CodeTTL).UnixMilli(),
	}
	if err := p.repo.CreateLoginCode(ctx, code); err != nil {
		return "", fmt.Errorf("create login code: %w", err)
	}
	return code.Code, nil
}

func (p *LocalProvider) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrInvalidCode
	}
	c, err := p.repo.ConsumeLoginCode(ctx, code, p.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("consume login code: %w", err)
	}
	if c == nil {
		return "", ErrInvalidCode
	}
	return c.Email, nil
}
