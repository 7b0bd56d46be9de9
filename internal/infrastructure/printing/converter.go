package printing

import (
	"context"
	"fmt"

	"github.com/printdesk/backend/internal/domain/printing"
)

// DocumentConverter turns an uploaded source document into PDF bytes.
// Implementations fail loudly: a conversion that yields no pages is an error.
type DocumentConverter interface {
	// Convert returns the PDF rendition of data
	Convert(ctx context.Context, data []byte, format printing.SourceFormat) ([]byte, error)
	// Supports reports whether the converter handles format
	Supports(format printing.SourceFormat) bool
	// Close releases any resources held by the converter
	Close() error
}

// ConvertError represents a failed conversion
type ConvertError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ConvertError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConvertError) Unwrap() error {
	return e.Cause
}

// Conversion and storage error codes
const (
	ErrCodeConversionTimeout = "CONVERSION_TIMEOUT"
	ErrCodeConversionFailed  = "CONVERSION_FAILED"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeBinaryNotFound    = "BINARY_NOT_FOUND"
	ErrCodeEmptyOutput       = "EMPTY_OUTPUT"
	ErrCodeInvalidPDF        = "INVALID_PDF"
	ErrCodeStorageFailed     = "STORAGE_FAILED"
)

// NewConvertError creates a new ConvertError
func NewConvertError(code, message string, cause error) *ConvertError {
	return &ConvertError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
