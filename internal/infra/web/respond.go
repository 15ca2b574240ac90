package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"saas-api-console/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the domain sentinels onto HTTP statuses. Anything
// unmapped is a 500 with a generic message; internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, domain.ErrKeyRevoked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable):
		// Retryable: the gateway could not be reached, nothing was decided.
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": "Unable to verify payment at this time. Please try again.",
		})
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("missing body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
