package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondErr maps a pricing error to its HTTP status
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, StatusFor(err), err.Error())
}

// domainErrors are caller mistakes about the contract or settings
var domainErrors = []error{
	contracts.ErrInvalidContract,
	contracts.ErrExpiredContract,
	contracts.ErrDegenerateInput,
	contracts.ErrInvalidLatticeParameters,
	contracts.ErrUnsupportedStyle,
	contracts.ErrGreeksUnsupported,
	contracts.ErrInvalidSettings,
}

// StatusFor returns the HTTP status of a pricing error
// ⭐ SSOT: 에러 → HTTP 상태 매핑은 여기서만
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrNumericalInstability):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a request body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}
