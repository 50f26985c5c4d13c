package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

type statusRequest struct {
	ID        string            `json:"id"`
	NewStatus models.TaskStatus `json:"newStatus"`
}

type amplifierRequest struct {
	PointAmplifier float64 `json:"point_amplifier"`
}

// taskListResponse carries the caller's standing alongside the tasks so the
// dashboard renders from one request.
type taskListResponse struct {
	Tasks          []models.Task `json:"tasks"`
	UserRole       models.Role   `json:"userRole"`
	UserPoints     int64         `json:"userPoints"`
	CompletedTasks int64         `json:"completedTasks"`
}

func (h *ClubHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.TaskFilter{
		ProjectID:      q.Get("project_id"),
		Status:         models.TaskStatus(q.Get("status")),
		AssignedUserID: q.Get("assigned_to"),
	}
	id := IdentityFrom(r.Context())
	tasks, err := h.svc.ListTasks(r.Context(), id, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	me, err := h.svc.Me(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, taskListResponse{
		Tasks:          tasks,
		UserRole:       id.Role,
		UserPoints:     me.Points,
		CompletedTasks: me.CompletedTasks,
	})
}

func (h *ClubHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in club.TaskInput
	if err := decodeBody(r, h.validator, validate.TaskCreate, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.CreateTask(r.Context(), IdentityFrom(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *ClubHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTask(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTaskStatus moves a task to the requested status.
func (h *ClubHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, h.validator, validate.TaskStatus, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.UpdateStatus(r.Context(), IdentityFrom(r.Context()), req.ID, req.NewStatus)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ClubHandler) SetAmplifier(w http.ResponseWriter, r *http.Request) {
	var req amplifierRequest
	if err := decodeBody(r, h.validator, validate.TaskAmplifier, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.SetAmplifier(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"], req.PointAmplifier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
