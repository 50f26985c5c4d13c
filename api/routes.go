package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	System  *SystemHandler
	Auth    *AuthHandler
	Club    *ClubHandler
	Session mux.MiddlewareFunc
}

func SetupRoutes(h Handlers, version, buildTime string) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	if h.Session != nil {
		r.Use(h.Session)
	}
	r.Use(RouteGuard)

	// Open endpoints
	r.HandleFunc("/version", h.System.VersionHandler(version, buildTime)).Methods(http.MethodGet)
	r.HandleFunc("/health", h.System.HealthHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/signup", h.Auth.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/signin", h.Auth.Signin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/callback", h.Auth.Callback).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/signout", h.Auth.Signout).Methods(http.MethodPost)
	r.HandleFunc("/api/login", h.Auth.Login).Methods(http.MethodGet)
	r.HandleFunc("/api/set-intended-event", h.Auth.SetIntendedEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/get-intended-event", h.Auth.GetIntendedEvent).Methods(http.MethodGet)

	r.HandleFunc("/attendance/{eventId}", h.Club.AttendancePage).Methods(http.MethodGet)
	for _, p := range pagePaths {
		r.HandleFunc(p, PageHandler).Methods(http.MethodGet)
	}
	for _, p := range guardedPrefixes {
		r.PathPrefix(p + "/").HandlerFunc(PageHandler).Methods(http.MethodGet)
	}

	// Signed-in API; RouteGuard has already rejected anonymous callers.
	protected := r.PathPrefix("/api").Subrouter()

	protected.HandleFunc("/me", h.Club.Me).Methods(http.MethodGet)
	protected.HandleFunc("/me/transactions", h.Club.MyTransactions).Methods(http.MethodGet)

	protected.HandleFunc("/tasks", h.Club.ListTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", h.Club.CreateTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks", h.Club.UpdateTaskStatus).Methods(http.MethodPatch)
	protected.HandleFunc("/tasks/{id}", h.Club.GetTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}/amplifier", h.Club.SetAmplifier).Methods(http.MethodPatch)

	protected.HandleFunc("/projects", h.Club.ListProjects).Methods(http.MethodGet)
	protected.HandleFunc("/projects", h.Club.CreateProject).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{id}", h.Club.UpdateProject).Methods(http.MethodPatch)
	protected.HandleFunc("/projects/{id}", h.Club.DeleteProject).Methods(http.MethodDelete)
	protected.HandleFunc("/categories", h.Club.ListCategories).Methods(http.MethodGet)

	protected.HandleFunc("/events", h.Club.ListEvents).Methods(http.MethodGet)
	protected.HandleFunc("/events", h.Club.CreateEvent).Methods(http.MethodPost)
	protected.HandleFunc("/events/{id}", h.Club.GetEvent).Methods(http.MethodGet)
	protected.HandleFunc("/events/{id}", h.Club.DeleteEvent).Methods(http.MethodDelete)
	protected.HandleFunc("/events/{id}/attendances", h.Club.ListAttendances).Methods(http.MethodGet)
	protected.HandleFunc("/events/{id}/approve", h.Club.ApproveAttendances).Methods(http.MethodPost)
	protected.HandleFunc("/events/{id}/attend", h.Club.AttendanceStatus).Methods(http.MethodGet)
	protected.HandleFunc("/events/{id}/attend", h.Club.RegisterAttendance).Methods(http.MethodPost)
	protected.HandleFunc("/events/{id}/checkin", h.Club.CheckIn).Methods(http.MethodPost)

	protected.HandleFunc("/users", h.Club.ListUsers).Methods(http.MethodGet)
	protected.HandleFunc("/users", h.Club.SetRole).Methods(http.MethodPatch)
	protected.HandleFunc("/users/{id}", h.Club.GetUser).Methods(http.MethodGet)

	protected.HandleFunc("/recurring-tasks", h.Club.ListRecurring).Methods(http.MethodGet)
	protected.HandleFunc("/recurring-tasks", h.Club.CreateRecurring).Methods(http.MethodPost)
	protected.HandleFunc("/recurring-tasks/{id}", h.Club.CanCompleteRecurring).Methods(http.MethodGet)
	protected.HandleFunc("/recurring-tasks/{id}", h.Club.CompleteRecurring).Methods(http.MethodPost)

	protected.HandleFunc("/checkins/weekly", h.Club.WeeklyStatus).Methods(http.MethodGet)
	protected.HandleFunc("/checkins/weekly", h.Club.WeeklyCheckin).Methods(http.MethodPost)
	protected.HandleFunc("/leaderboard", h.Club.Leaderboard).Methods(http.MethodGet)

	// CORS preflight; CORSMiddleware answers it.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
