package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finbook/internal/core"
	"finbook/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses: validation failures
// are the caller's to fix, not-found is 404, invariant violations are bugs
// and always 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var iv *core.InvariantViolation
	switch {
	case errors.As(err, &iv):
		s.logger.ErrorContext(r.Context(), "Invariant violation",
			log.FieldError, err,
			"error_type", log.ErrorTypeInvariant,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal inconsistency detected"})
	case errors.Is(err, core.ErrDefaultCategory):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case core.IsValidation(err):
		// Checked before not-found: a dangling reference inside a mutation is
		// the caller's input problem, not a missing resource.
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			"error_type", log.ErrorTypeInternal,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeJSON reads a request body into v, refusing unknown fields so typos in
// client payloads fail loudly.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
