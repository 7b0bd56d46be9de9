package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NewDomainError("NOT_FOUND", "print job 7 not found"))

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, NewDomainError("INVALID_STATE", "")))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError(
		ValidationDetail{Field: "printer_id", Message: "is required"},
		ValidationDetail{Field: "copies", Message: "must be at least 1"},
	)

	assert.Equal(t, "VALIDATION_ERROR", err.Code)
	assert.Len(t, err.Details, 2)
	assert.Contains(t, err.Error(), "printer_id: is required")
}
