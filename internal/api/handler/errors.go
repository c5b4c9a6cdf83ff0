package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"presence.service/internal/core"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Record  any    `json:"record,omitempty"`
}

func statusFor(err error) (int, string) {
	switch kind := core.KindOf(err); {
	case errors.Is(kind, core.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(kind, core.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(kind, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(kind, core.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a service error onto its status code. record, when not
// nil, is returned alongside the error.
func writeError(w http.ResponseWriter, r *http.Request, err error, record any) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: core.MessageOf(err), Record: record})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
