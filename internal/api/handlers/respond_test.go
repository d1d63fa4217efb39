package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{contracts.ErrUnknownMethod, http.StatusBadRequest},
		{contracts.ErrInvalidContract, http.StatusUnprocessableEntity},
		{contracts.ErrExpiredContract, http.StatusUnprocessableEntity},
		{contracts.ErrDegenerateInput, http.StatusUnprocessableEntity},
		{contracts.ErrInvalidLatticeParameters, http.StatusUnprocessableEntity},
		{contracts.ErrUnsupportedStyle, http.StatusUnprocessableEntity},
		{contracts.ErrGreeksUnsupported, http.StatusUnprocessableEntity},
		{contracts.ErrInvalidSettings, http.StatusUnprocessableEntity},
		{contracts.ErrNumericalInstability, http.StatusInternalServerError},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
		// wrapped errors keep their status
		{fmt.Errorf("Monte Carlo: %w", contracts.ErrNumericalInstability), http.StatusInternalServerError},
		{fmt.Errorf("steps 5: %w", contracts.ErrInvalidLatticeParameters), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
