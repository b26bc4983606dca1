package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// maxBodyBytes bounds request bodies (candidate pools are a few MB at most)
const maxBodyBytes = 16 << 20

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a bounded JSON body and rejects unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	var ve *contracts.ValidationError
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case contracts.IsInfeasible(err), errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err with its mapped status; infeasibility details are exposed
func respondDomainError(w http.ResponseWriter, err error) {
	status := errorStatus(err)

	var ie *contracts.InfeasibilityError
	if errors.As(err, &ie) {
		respondJSON(w, status, map[string]interface{}{
			"error":      err.Error(),
			"stage":      ie.Stage,
			"constraint": ie.Constraint,
			"shortfall":  ie.Shortfall,
		})
		return
	}

	var ve *contracts.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, status, map[string]interface{}{
			"error":      err.Error(),
			"violations": ve.Violations,
		})
		return
	}

	respondError(w, status, err.Error())
}
