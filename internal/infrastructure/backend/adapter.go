// Package backend submits documents to print backends and reads job state back.
package backend

import (
	"context"
	"fmt"

	"github.com/printdesk/backend/internal/domain/printing"
)

// SubmitRequest is one document to send to a device
type SubmitRequest struct {
	PrinterID string
	// JobName is shown in the device queue
	JobName  string
	Document []byte
	Options  printing.JobOptions
}

// Status is a backend job state mapped onto the canonical vocabulary
type Status struct {
	State printing.JobStatus
	// NativeState is the backend's own state string, kept for logs
	NativeState string
	Reason      string
	// PagesCompleted is the backend's primary page counter
	PagesCompleted int
	// SheetsCompleted is the backend's media-sheet counter
	SheetsCompleted int
}

// HistoryCount is a page total recovered from backend job history
type HistoryCount struct {
	Sheets int
}

// Adapter is the capability set every backend variant provides
type Adapter interface {
	// Name identifies the variant in logs
	Name() string
	// Submit sends the document and returns the backend job handle
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	// QueryStatus reports the current state of a submitted job
	QueryStatus(ctx context.Context, handle string) (Status, error)
	// IsDeviceReady reports whether the device is up and accepting jobs
	IsDeviceReady(ctx context.Context, printerID string) (bool, error)
}

// HistoryQuerier is implemented by backends that can recover page totals
// for jobs that already left the queue
type HistoryQuerier interface {
	QueryPageHistory(ctx context.Context, handle string) (HistoryCount, error)
}

// DeviceLister is implemented by backends that can enumerate their devices
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]string, error)
}

// DocumentLayouter performs the page layout a backend cannot do natively
type DocumentLayouter interface {
	NUp(ctx context.Context, data []byte, perSheet int, paper printing.PaperSize) ([]byte, error)
	SelectPages(ctx context.Context, data []byte, sel printing.PageSelection) ([]byte, error)
}

// BackendError is returned for failed backend operations. Submission
// failures are not retried.
type BackendError struct {
	Op      string
	Code    string
	Message string
	Cause   error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Code, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Backend error codes
const (
	ErrCodeProcessFailed     = "PROCESS_FAILED"
	ErrCodeMalformedResponse = "MALFORMED_RESPONSE"
	ErrCodeInvalidHandle     = "INVALID_HANDLE"
	ErrCodeUnsupported       = "UNSUPPORTED"
)

// Backend operations, used in BackendError.Op
const (
	OpSubmit    = "submit"
	OpQuery     = "query"
	OpReadiness = "readiness"
	OpHistory   = "history"
	OpList      = "list"
)

func newBackendError(op, code, message string, cause error) *BackendError {
	return &BackendError{Op: op, Code: code, Message: message, Cause: cause}
}
