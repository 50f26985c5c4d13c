package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository/mock"
)

func TestTokens_RoundTrip(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	u := &models.User{ID: "u1", Email: "ada@club.org", Role: models.RoleManager}

	s, err := tk.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c, err := tk.Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Subject != "u1" || c.Email != "ada@club.org" || c.Role != models.RoleManager {
		t.Fatalf("unexpected claims %+v", c)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	u := &models.User{ID: "u1", Email: "ada@club.org", Role: models.RoleMember}

	good, err := tk.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, _ := NewTokens("other", time.Hour).Issue(u)

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue(u)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "email": "x@y.z"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"wrong secret": other,
		"expired":      old,
		"alg none":     none,
		"garbage":      "not-a-token",
		"tampered":     good[:len(good)-2] + "xx",
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tk.Parse(s); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := tk.Issue(nil); err == nil {
		t.Fatalf("expected error issuing for nil user")
	}
}

func newProvider() (*LocalProvider, *mock.Mocks) {
	m := mock.NewMocks()
	p := NewLocalProvider(m.CredRepo)
	p.cost = bcrypt.MinCost
	return p, m
}

func TestLocalProvider_SignupSigninExchange(t *testing.T) {
	ctx := context.Background()
	p, m := newProvider()

	if err := p.Signup(ctx, " Ada@Club.org ", "correct horse"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := p.Signup(ctx, "ada@club.org", "another password"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := p.Signin(ctx, "ada@club.org", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.Signin(ctx, "nobody@club.org", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	code, err := p.Signin(ctx, "ADA@club.org", "correct horse")
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}
	if m.CredRepo.Codes() != 1 {
		t.Fatalf("expected one outstanding code")
	}

	email, err := p.Exchange(ctx, code)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if email != "ada@club.org" {
		t.Fatalf("unexpected email %q", email)
	}

	if _, err := p.Exchange(ctx, code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected code to be single use, got %v", err)
	}
	if _, err := p.Exchange(ctx, ""); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for empty code, got %v", err)
	}
}

func TestLocalProvider_ExpiredCode(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider()

	if err := p.Signup(ctx, "ada@club.org", "correct horse"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	code, err := p.Signin(ctx, "ada@club.org", "correct horse")
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}

	p.now = func() time.Time { return time.Now().Add(CodeTTL + time.Second) }
	if _, err := p.Exchange(ctx, code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected expired code to fail, got %v", err)
	}
}

func TestLocalProvider_SignupValidation(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider()

	if err := p.Signup(ctx, "not-an-email", "correct horse"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if err := p.Signup(ctx, "Ada <ada@club.org>", "correct horse"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected display-name address to be rejected, got %v", err)
	}
	if err := p.Signup(ctx, "ada@club.org", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestCookies(t *testing.T) {
	c := Cookies{Secure: true}

	rec := httptest.NewRecorder()
	c.SetIntent(rec, "evt-1", http.SameSiteStrictMode)
	res := rec.Result()
	cks := res.Cookies()
	if len(cks) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cks))
	}
	ck := cks[0]
	if ck.Name != IntentCookie || ck.Value != "evt-1" || ck.MaxAge != 300 || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected intent cookie %+v", ck)
	}

	rec = httptest.NewRecorder()
	c.ClearIntent(rec)
	if h := rec.Header().Get("Set-Cookie"); !strings.Contains(h, "Max-Age=0") {
		t.Fatalf("expected cookie deletion, got %q", h)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok"})
	if Value(req, SessionCookie) != "tok" || Value(req, IntentCookie) != "" {
		t.Fatalf("unexpected cookie values")
	}
}
