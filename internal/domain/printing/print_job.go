package printing

import (
	"fmt"
	"strings"
	"time"

	"github.com/printdesk/backend/internal/domain/shared"
)

// MaxCopies bounds the copy count of a single job
const MaxCopies = 999

// SystemActor is recorded as updater for changes made by background processing
const SystemActor = "system"

// PrintJob is one document submitted for physical printing.
// Submission attributes are fixed at creation; status attributes are
// only changed through ApplyStatus, MarkSubmitted and Abort.
type PrintJob struct {
	shared.BaseAggregateRoot

	// Submission attributes
	RequesterID       string
	RequesterName     string
	FileName          string
	SourceFormat      SourceFormat
	PrinterID         string
	PaperSize         PaperSize
	Copies            int
	ColorMode         ColorMode
	DuplexMode        DuplexMode
	Orientation       Orientation
	PageLayout        PageLayout
	MarginProfile     MarginProfile
	PageSelection     string
	SheetsFrom        *int
	SheetsTo          *int
	OriginalPageCount int

	// Status attributes
	Status        JobStatus
	BackendHandle string
	StartedAt     *time.Time
	EndedAt       *time.Time
	ErrorMessage  string
	PagesPrinted  *int
	DocumentPath  string

	// Audit attributes
	CreatedBy string
	UpdatedBy string
}

// JobSpec carries the validated submission attributes of a new job
type JobSpec struct {
	RequesterID       string
	RequesterName     string
	FileName          string
	SourceFormat      SourceFormat
	PrinterID         string
	Options           JobOptions
	Sheets            *SheetRange
	OriginalPageCount int
}

// NewPrintJob creates a job in PENDING status
func NewPrintJob(spec JobSpec) (*PrintJob, error) {
	if strings.TrimSpace(spec.RequesterID) == "" {
		return nil, shared.NewDomainError("INVALID_REQUESTER", "Requester ID cannot be empty")
	}
	if strings.TrimSpace(spec.PrinterID) == "" {
		return nil, shared.NewDomainError("INVALID_PRINTER", "Printer ID cannot be empty")
	}
	if err := validateOptions(spec.Options); err != nil {
		return nil, err
	}
	if spec.OriginalPageCount < 1 {
		return nil, shared.NewDomainError("EMPTY_DOCUMENT", "Document must have at least one page")
	}

	opts := spec.Options
	if opts.IsBooklet() {
		opts.Orientation = OrientationSideways
	}

	job := &PrintJob{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RequesterID:       spec.RequesterID,
		RequesterName:     spec.RequesterName,
		FileName:          spec.FileName,
		SourceFormat:      spec.SourceFormat,
		PrinterID:         spec.PrinterID,
		PaperSize:         opts.PaperSize,
		Copies:            opts.Copies,
		ColorMode:         opts.ColorMode,
		DuplexMode:        opts.DuplexMode,
		Orientation:       opts.Orientation,
		PageLayout:        opts.PageLayout,
		MarginProfile:     opts.MarginProfile,
		PageSelection:     opts.PageSelection.String(),
		OriginalPageCount: spec.OriginalPageCount,
		Status:            JobStatusPending,
		CreatedBy:         spec.RequesterID,
		UpdatedBy:         spec.RequesterID,
	}
	if spec.Sheets != nil && opts.IsBooklet() {
		from, to := spec.Sheets.From, spec.Sheets.To
		job.SheetsFrom = &from
		job.SheetsTo = &to
	}

	job.AddDomainEvent(NewPrintJobCreatedEvent(job))
	return job, nil
}

func validateOptions(o JobOptions) error {
	if o.Copies < 1 {
		return shared.NewDomainError("INVALID_COPIES", "Number of copies must be at least 1")
	}
	if o.Copies > MaxCopies {
		return shared.NewDomainError("INVALID_COPIES", fmt.Sprintf("Number of copies cannot exceed %d", MaxCopies))
	}
	if !o.PaperSize.IsValid() {
		return shared.NewDomainError("INVALID_PAPER_SIZE", "Unsupported paper size: "+o.PaperSize.String())
	}
	if !o.ColorMode.IsValid() {
		return shared.NewDomainError("INVALID_COLOR_MODE", "Unsupported color mode: "+o.ColorMode.String())
	}
	if !o.DuplexMode.IsValid() {
		return shared.NewDomainError("INVALID_DUPLEX_MODE", "Unsupported duplex mode: "+o.DuplexMode.String())
	}
	if !o.Orientation.IsValid() {
		return shared.NewDomainError("INVALID_ORIENTATION", "Unsupported orientation: "+o.Orientation.String())
	}
	if !o.PageLayout.IsValid() {
		return shared.NewDomainError("INVALID_PAGE_LAYOUT", "Unsupported page layout: "+o.PageLayout.String())
	}
	if !o.MarginProfile.IsValid() {
		return shared.NewDomainError("INVALID_MARGIN_PROFILE", "Unsupported margin profile: "+o.MarginProfile.String())
	}
	return nil
}

// Options rebuilds the canonical option set from the stored attributes
func (j *PrintJob) Options() JobOptions {
	sel, _ := ParsePageSelection(j.PageSelection)
	return JobOptions{
		PaperSize:     j.PaperSize,
		Copies:        j.Copies,
		ColorMode:     j.ColorMode,
		DuplexMode:    j.DuplexMode,
		Orientation:   j.Orientation,
		MarginProfile: j.MarginProfile,
		PageSelection: sel,
		PageLayout:    j.PageLayout,
		SourceFormat:  j.SourceFormat,
	}
}

// AttachDocument records where the printable document was stored
func (j *PrintJob) AttachDocument(path string) error {
	if path == "" {
		return shared.NewDomainError("INVALID_DOCUMENT_PATH", "Document path cannot be empty")
	}
	j.DocumentPath = path
	j.Touch()
	return nil
}

// MarkSubmitted records the handle the backend assigned on submission
func (j *PrintJob) MarkSubmitted(handle string) error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot submit a job in terminal status: "+j.Status.String())
	}
	if strings.TrimSpace(handle) == "" {
		return shared.NewDomainError("INVALID_BACKEND_HANDLE", "Backend job handle cannot be empty")
	}
	j.BackendHandle = handle
	j.UpdatedBy = SystemActor
	j.Touch()
	j.IncrementVersion()
	j.AddDomainEvent(NewPrintJobUpdatedEvent(j))
	return nil
}

// StatusUpdate is one observation of the job's backend state in canonical terms
type StatusUpdate struct {
	Status       JobStatus
	PagesPrinted int
	ErrorMessage string
	ObservedAt   time.Time
}

// ApplyStatus folds an observed status into the job and reports whether anything changed.
// An observed PENDING never moves a job backwards.
func (j *PrintJob) ApplyStatus(u StatusUpdate) (bool, error) {
	if j.Status.IsTerminal() {
		return false, shared.NewDomainError("INVALID_STATE",
			"Job already finished with status: "+j.Status.String())
	}
	if !u.Status.IsValid() {
		return false, shared.NewDomainError("INVALID_STATUS", "Unknown job status: "+u.Status.String())
	}
	if u.Status == j.Status || u.Status == JobStatusPending {
		return false, nil
	}
	if !j.Status.CanTransitionTo(u.Status) {
		return false, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move job from %s to %s", j.Status, u.Status))
	}

	at := u.ObservedAt
	if at.IsZero() {
		at = time.Now()
	}

	j.Status = u.Status
	if j.StartedAt == nil && (u.Status == JobStatusProcessing || u.Status.IsTerminal()) {
		started := at
		j.StartedAt = &started
	}
	if u.Status.IsTerminal() {
		ended := at
		j.EndedAt = &ended
	}
	switch u.Status {
	case JobStatusCompleted:
		pages := u.PagesPrinted
		if pages < 0 {
			pages = 0
		}
		j.PagesPrinted = &pages
	case JobStatusAborted, JobStatusCanceled:
		j.ErrorMessage = u.ErrorMessage
		if j.ErrorMessage == "" {
			j.ErrorMessage = "job " + strings.ToLower(u.Status.String()) + " by backend"
		}
	}

	j.UpdatedBy = SystemActor
	j.UpdatedAt = at
	j.IncrementVersion()
	j.AddDomainEvent(NewPrintJobUpdatedEvent(j))
	return true, nil
}

// Abort moves a non-terminal job to ABORTED with the given reason
func (j *PrintJob) Abort(reason string) error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot abort a job that is already in terminal status: "+j.Status.String())
	}
	_, err := j.ApplyStatus(StatusUpdate{Status: JobStatusAborted, ErrorMessage: reason})
	return err
}

// Cancel moves a non-terminal job to CANCELED with the given reason
func (j *PrintJob) Cancel(reason string) error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot cancel a job that is already in terminal status: "+j.Status.String())
	}
	_, err := j.ApplyStatus(StatusUpdate{Status: JobStatusCanceled, ErrorMessage: reason})
	return err
}

// IsTerminal returns true if the job is in a terminal state
func (j *PrintJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsBooklet returns true if the job was imposed as a booklet
func (j *PrintJob) IsBooklet() bool {
	return j.PageLayout == PageLayoutBooklet
}

// StatusFields returns the mutable status attributes as a partial update
func (j *PrintJob) StatusFields() JobFieldsUpdate {
	status := j.Status
	handle := j.BackendHandle
	errMsg := j.ErrorMessage
	path := j.DocumentPath
	updatedBy := j.UpdatedBy
	version := j.Version
	return JobFieldsUpdate{
		Status:        &status,
		BackendHandle: &handle,
		StartedAt:     j.StartedAt,
		EndedAt:       j.EndedAt,
		ErrorMessage:  &errMsg,
		PagesPrinted:  j.PagesPrinted,
		DocumentPath:  &path,
		UpdatedBy:     &updatedBy,
		UpdatedAt:     j.UpdatedAt,
		Version:       &version,
	}
}
