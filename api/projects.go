package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

func (h *ClubHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	status := models.ProjectStatus(r.URL.Query().Get("status"))
	ps, err := h.svc.ListProjects(r.Context(), IdentityFrom(r.Context()), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ps == nil {
		ps = []models.Project{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ClubHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in club.ProjectInput
	if err := decodeBody(r, h.validator, validate.ProjectCreate, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.CreateProject(r.Context(), IdentityFrom(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ClubHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch club.ProjectPatch
	if err := decodeBody(r, h.validator, validate.ProjectUpdate, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.UpdateProject(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ClubHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClubHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}
