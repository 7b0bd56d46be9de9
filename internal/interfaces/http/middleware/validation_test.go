package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING COMPLETED"`
	Page     int    `form:"page" binding:"min=1"`
	PageSize int    `form:"page_size" binding:"max=100"`
	Printer  string `json:"printer" binding:"required"`
	Title    string `json:"title" binding:"max=4"`
	JobID    string `uri:"id" binding:"omitempty,uuid"`
	Other    string `binding:"omitempty,email"`
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	q := listQuery{
		Status:   "LOST",
		Page:     0,
		PageSize: 500,
		Title:    "too long",
		JobID:    "nope",
		Other:    "nope",
	}
	err := binding.Validator.ValidateStruct(&q)
	require.Error(t, err)

	details := ValidationDetails(err)

	assert.ElementsMatch(t, []dto.ValidationDetail{
		{Field: "status", Message: "must be one of: PENDING PROCESSING COMPLETED"},
		{Field: "page", Message: "must be at least 1"},
		{Field: "page_size", Message: "must be at most 100"},
		{Field: "printer", Message: "is required"},
		{Field: "title", Message: "must be at most 4 characters"},
		{Field: "id", Message: "must be a UUID"},
		{Field: "Other", Message: "is invalid"},
	}, details)
}

func TestValidationDetails_NotValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(errors.New("EOF")))
	assert.Nil(t, ValidationDetails(nil))
}
