package api

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

type approveRequest struct {
	Attendees []string `json:"attendees"`
}

type approveResponse struct {
	Credited []string `json:"credited"`
}

type attendStatusResponse struct {
	Status models.AttendanceStatus `json:"status"`
}

func (h *ClubHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *ClubHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in club.EventInput
	if err := decodeBody(r, h.validator, validate.EventCreate, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.svc.CreateEvent(r.Context(), IdentityFrom(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *ClubHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEvent(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ClubHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClubHandler) ListAttendances(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAttendances(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Attendance{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ClubHandler) ApproveAttendances(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, h.validator, validate.AttendanceApprove, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	credited, err := h.svc.ApproveAttendances(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"], req.Attendees)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, approveResponse{Credited: credited})
}

func (h *ClubHandler) AttendanceStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.AttendanceStatus(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendStatusResponse{Status: st})
}

func (h *ClubHandler) RegisterAttendance(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.RegisterAttendance(r.Context(), IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// CheckIn is the QR self check-in. credited is false when the caller had
// already been credited for the event.
func (h *ClubHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	eventID := mux.Vars(r)["id"]
	res, err := h.svc.CheckIn(r.Context(), id, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AttendancePage is the QR landing page. Signed-out visitors are sent through
// the intent cookie flow so they come back here after login.
func (h *ClubHandler) AttendancePage(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]
	id := IdentityFrom(r.Context())
	if !id.Authenticated() {
		http.Redirect(w, r, "/api/set-intended-event?eventId="+url.QueryEscape(eventID), http.StatusFound)
		return
	}
	sum, err := h.svc.AttendanceSummary(r.Context(), id, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
