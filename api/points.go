package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

type canCompleteResponse struct {
	CanComplete bool `json:"canComplete"`
}

func (h *ClubHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRecurring(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.RecurringTask{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ClubHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var in club.RecurringInput
	if err := decodeBody(r, h.validator, validate.RecurringCreate, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.CreateRecurring(r.Context(), IdentityFrom(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *ClubHandler) CanCompleteRecurring(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.CanCompleteRecurring(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, canCompleteResponse{CanComplete: ok})
}

func (h *ClubHandler) CompleteRecurring(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.CompleteRecurring(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClubHandler) WeeklyStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.WeeklyStatus(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ClubHandler) WeeklyCheckin(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.WeeklyCheckin(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *ClubHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	board, err := h.svc.Leaderboard(r.Context(), IdentityFrom(r.Context()), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *ClubHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.svc.MyTransactions(r.Context(), IdentityFrom(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
