package printing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/shared"
)

// PrintJobRepository is the durable job record store
type PrintJobRepository interface {
	// Create inserts a new job record
	Create(ctx context.Context, job *PrintJob) error

	// UpdateFields applies a partial update to one job record. A record
	// already in a terminal status is left untouched and ErrJobFinished is returned.
	UpdateFields(ctx context.Context, id uuid.UUID, fields JobFieldsUpdate) error

	// FindByID finds a job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PrintJob, error)

	// FindByRequester lists the jobs submitted by one requester
	FindByRequester(ctx context.Context, requesterID string, filter PrintJobFilter) ([]PrintJob, int64, error)

	// FindAll lists all jobs
	FindAll(ctx context.Context, filter PrintJobFilter) ([]PrintJob, int64, error)

	// FindActive returns non-terminal jobs that already carry a backend handle
	FindActive(ctx context.Context) ([]PrintJob, error)
}

// ErrJobFinished is returned when an update targets a job whose stored status is terminal
var ErrJobFinished = shared.NewDomainError("JOB_FINISHED", "Print job has already finished")

// JobFieldsUpdate is a partial update of a job's mutable attributes.
// Nil pointers leave the column untouched.
type JobFieldsUpdate struct {
	Status        *JobStatus
	BackendHandle *string
	StartedAt     *time.Time
	EndedAt       *time.Time
	ErrorMessage  *string
	PagesPrinted  *int
	DocumentPath  *string
	UpdatedBy     *string
	UpdatedAt     time.Time
	Version       *int
}

// PrintJobFilter extends the standard filter with print job specific criteria
type PrintJobFilter struct {
	shared.Filter
	Status    *JobStatus
	PrinterID string
}

// DefaultPrintJobFilter returns a filter sorted newest first
func DefaultPrintJobFilter() PrintJobFilter {
	return PrintJobFilter{Filter: shared.DefaultFilter()}
}
