package response

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"AttendBot/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.RateLimited, http.StatusTooManyRequests},
		{errors.InvalidMonth, http.StatusBadRequest},
		{errors.Unauthorized, http.StatusUnauthorized},
		{errors.Holiday, http.StatusUnprocessableEntity},
		{errors.TooLate, http.StatusUnprocessableEntity},
		{errors.AlreadyCheckedOut, http.StatusConflict},
		{errors.NoCheckInToday, http.StatusConflict},
		{errors.RecordNotFound, http.StatusNotFound},
		{errors.StorageBusy, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", errors.TooLate), http.StatusUnprocessableEntity},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
}

func TestDescribeHidesInternalErrors(t *testing.T) {
	code, msg := describe(fmt.Errorf("pq: connection refused"))
	assert.Equal(t, "INTERNAL_ERROR", code)
	assert.Equal(t, "Internal server error", msg)

	code, _ = describe(errors.Holiday)
	assert.Equal(t, "HOLIDAY", code)
}
