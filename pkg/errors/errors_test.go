package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	assert.Equal(t, TooLate, Get("TOO_LATE"))

	unknown := Get("SOMETHING_ELSE")
	assert.Equal(t, "SOMETHING_ELSE", unknown.Code)
	assert.Equal(t, "Unexpected error", unknown.Message)
}

func TestLookupCodesMatchKeys(t *testing.T) {
	for code, def := range Lookup {
		assert.Equal(t, code, def.Code)
	}
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip(&SkipMessageError{Reason: "duplicate"}))
	assert.True(t, IsSkip(fmt.Errorf("wrapped: %w", &SkipMessageError{Reason: "duplicate"})))
	assert.False(t, IsSkip(fmt.Errorf("plain")))
	assert.False(t, IsSkip(nil))
}
