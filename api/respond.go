package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, club.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, club.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, club.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, club.ErrInvalid), errors.Is(err, validate.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, club.ErrConflict),
		errors.Is(err, club.ErrAlreadyCompletedToday),
		errors.Is(err, club.ErrAlreadyCheckedIn),
		errors.Is(err, club.ErrAlreadyRegistered),
		errors.Is(err, club.ErrProjectHasTasks):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError logs store failures and hides their detail from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// decodeBody validates the request body against schema and decodes it into dst.
func decodeBody(r *http.Request, v *validate.Validator, schema string, dst any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &validate.Error{Problems: []string{"unreadable body"}}
	}
	if err := v.Validate(r.Context(), schema, b); err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return &validate.Error{Problems: []string{err.Error()}}
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", club.ErrInvalid, name)
	}
	return n, nil
}
