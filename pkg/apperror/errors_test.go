package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("confirm 7: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"app error code", New(http.StatusConflict, "conflict", nil), http.StatusConflict},
		{"invalid helper", Invalid("since_id must be >= 0"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatus(tc.err))
		})
	}
}

func TestAppError_Message(t *testing.T) {
	err := Invalid("since_id must be >= 0")
	assert.Equal(t, "since_id must be >= 0", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, "resource not found", New(http.StatusNotFound, "", ErrNotFound).Error())
	assert.Equal(t, "Not Found", New(http.StatusNotFound, "", nil).Error())
}
