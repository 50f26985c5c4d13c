package api

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/abcr-deployment-v2/internal/access"
	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/identity"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/repository"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id club.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFrom returns the caller attached by SessionMiddleware. The zero
// Identity is unauthenticated.
func IdentityFrom(ctx context.Context) club.Identity {
	id, _ := ctx.Value(ctxIdentity).(club.Identity)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// bearerToken reads the session token from the cookie, falling back to an
// Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if tok := identity.Value(r, identity.SessionCookie); tok != "" {
		return tok
	}
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}

// SessionMiddleware attaches the caller's Identity to the request context.
// The role is read from the store on every request; the token's role claim
// is ignored. Requests without a valid token pass through unauthenticated.
func SessionMiddleware(tokens *identity.Tokens, users repository.UserRepo) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(tok)
			if err != nil {
				logger.Debug("session: rejected token", slog.Any("err", err))
				next.ServeHTTP(w, r)
				return
			}

			role, err := users.GetUserRole(r.Context(), claims.Email)
			if err != nil {
				logger.Error("session: resolve role", slog.Any("err", err), slog.String("email", claims.Email))
				writeError(w, http.StatusInternalServerError, "failed to resolve role")
				return
			}

			id := club.Identity{UserID: claims.Subject, Email: claims.Email, Role: role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// RouteGuard enforces sign-in and the role rules of access.RequiredRoles.
// API callers get 401/403 JSON; page requests are redirected to /login or
// /unauthorized.
func RouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if r.Method == http.MethodOptions || access.IsPublic(path) {
			next.ServeHTTP(w, r)
			return
		}

		id := IdentityFrom(r.Context())
		if !id.Authenticated() {
			if isAPI(path) {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			http.Redirect(w, r, "/login?redirectedFrom="+url.QueryEscape(path), http.StatusFound)
			return
		}

		if !access.RouteAllowed(path, id.Role) {
			if isAPI(path) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			http.Redirect(w, r, "/unauthorized", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}
