package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

type roleRequest struct {
	UserID  string `json:"userId"`
	NewRole string `json:"newRole"`
}

func (h *ClubHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Me(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ClubHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *ClubHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetUser(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ClubHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeBody(r, h.validator, validate.UserRole, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.svc.SetRole(r.Context(), IdentityFrom(r.Context()), req.UserID, req.NewRole)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
