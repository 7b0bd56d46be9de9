package printing

import (
	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypePrintJob = "PrintJob"
	AggregateTypePrinter  = "Printer"
)

// Event type constants
const (
	EventTypePrintJobCreated    = "PrintJobCreated"
	EventTypePrintJobUpdated    = "PrintJobUpdated"
	EventTypePrinterListUpdated = "PrinterListUpdated"
)

// PrintJobCreatedEvent is published once a job record exists
type PrintJobCreatedEvent struct {
	shared.BaseDomainEvent
	Job PrintJob `json:"job"`
}

// NewPrintJobCreatedEvent creates a new PrintJobCreatedEvent
func NewPrintJobCreatedEvent(job *PrintJob) *PrintJobCreatedEvent {
	return &PrintJobCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePrintJobCreated,
			AggregateTypePrintJob,
			job.ID,
		),
		Job: snapshot(job),
	}
}

// PrintJobUpdatedEvent is published whenever the job's status attributes change
type PrintJobUpdatedEvent struct {
	shared.BaseDomainEvent
	Job PrintJob `json:"job"`
}

// NewPrintJobUpdatedEvent creates a new PrintJobUpdatedEvent
func NewPrintJobUpdatedEvent(job *PrintJob) *PrintJobUpdatedEvent {
	return &PrintJobUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePrintJobUpdated,
			AggregateTypePrintJob,
			job.ID,
		),
		Job: snapshot(job),
	}
}

// PrinterListUpdatedEvent announces the set of printers currently available
type PrinterListUpdatedEvent struct {
	shared.BaseDomainEvent
	Printers []string `json:"printers"`
}

// NewPrinterListUpdatedEvent creates a new PrinterListUpdatedEvent
func NewPrinterListUpdatedEvent(printers []string) *PrinterListUpdatedEvent {
	ids := make([]string, len(printers))
	copy(ids, printers)
	return &PrinterListUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePrinterListUpdated,
			AggregateTypePrinter,
			uuid.Nil,
		),
		Printers: ids,
	}
}

// snapshot copies the job without its pending events so it can cross goroutines
func snapshot(job *PrintJob) PrintJob {
	cp := *job
	cp.ClearDomainEvents()
	if job.StartedAt != nil {
		t := *job.StartedAt
		cp.StartedAt = &t
	}
	if job.EndedAt != nil {
		t := *job.EndedAt
		cp.EndedAt = &t
	}
	if job.PagesPrinted != nil {
		p := *job.PagesPrinted
		cp.PagesPrinted = &p
	}
	return cp
}
