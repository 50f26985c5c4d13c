package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Aghostraa/abcr-deployment-v2/internal/identity"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

type AuthHandler struct {
	provider identity.Provider
	// local serves signup and signin; nil when codes come from an external provider
	local     *identity.LocalProvider
	users     repository.UserRepo
	tokens    *identity.Tokens
	cookies   identity.Cookies
	validator *validate.Validator
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(provider identity.Provider, users repository.UserRepo, tokens *identity.Tokens, cookies identity.Cookies, v *validate.Validator) *AuthHandler {
	local, _ := provider.(*identity.LocalProvider)
	return &AuthHandler{provider: provider, local: local, users: users, tokens: tokens, cookies: cookies, validator: v}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinResponse struct {
	Code     string `json:"code"`
	Redirect string `json:"redirect"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		writeError(w, http.StatusNotFound, "password signup is disabled")
		return
	}
	var req credentialsRequest
	if err := decodeBody(r, h.validator, validate.Signup, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.local.Signup(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, identity.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		logger.Error("signup failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "error creating user")
		return
	}

	writeJSON(w, http.StatusCreated, messageBody{Message: "signed up"})
}

// Signin checks the credentials and returns a one-time code for the callback.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		writeError(w, http.StatusNotFound, "password signin is disabled")
		return
	}
	var req credentialsRequest
	if err := decodeBody(r, h.validator, validate.Signin, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := h.local.Signin(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "credentials not found")
		return
	}
	if err != nil {
		logger.Error("signin failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "error signing in")
		return
	}

	writeJSON(w, http.StatusOK, signinResponse{
		Code:     code,
		Redirect: "/api/auth/callback?code=" + url.QueryEscape(code),
	})
}

// Callback exchanges the code, provisions the profile and starts the session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	ctx := r.Context()
	email, err := h.provider.Exchange(ctx, code)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCode) {
			logger.Error("code exchange failed", slog.Any("err", err))
		}
		http.Redirect(w, r, "/login?error=AuthFailed", http.StatusFound)
		return
	}

	u := &models.User{Email: email}
	created, err := h.users.EnsureProfile(ctx, u)
	if err != nil {
		logger.Error("provision profile failed", slog.Any("err", err), slog.String("email", email))
		http.Redirect(w, r, "/login?error=AuthFailed", http.StatusFound)
		return
	}
	if created {
		logger.Info("profile provisioned", slog.String("user_id", u.ID), slog.String("email", u.Email))
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		logger.Error("issue token failed", slog.Any("err", err))
		http.Redirect(w, r, "/login?error=AuthFailed", http.StatusFound)
		return
	}
	h.cookies.SetSession(w, token, h.tokens.Duration())

	target := "/dashboard"
	if eventID := identity.Value(r, identity.IntentCookie); eventID != "" {
		h.cookies.ClearIntent(w)
		target = "/attendance/" + url.PathEscape(eventID)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, messageBody{Message: "signed out"})
}

// Login remembers ?intended_event= in a strict cookie and sends the browser
// to the login page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if eventID := r.URL.Query().Get("intended_event"); eventID != "" {
		h.cookies.SetIntent(w, eventID, http.SameSiteStrictMode)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// SetIntendedEvent is the QR entry point for signed-out visitors.
func (h *AuthHandler) SetIntendedEvent(w http.ResponseWriter, r *http.Request) {
	if eventID := r.URL.Query().Get("eventId"); eventID != "" {
		h.cookies.SetIntent(w, eventID, http.SameSiteLaxMode)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GetIntendedEvent returns and forgets the remembered event.
func (h *AuthHandler) GetIntendedEvent(w http.ResponseWriter, r *http.Request) {
	var intended *string
	if eventID := identity.Value(r, identity.IntentCookie); eventID != "" {
		intended = &eventID
		h.cookies.ClearIntent(w)
	}
	writeJSON(w, http.StatusOK, map[string]*string{"intendedEvent": intended})
}
