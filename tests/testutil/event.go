package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

// RecordingHandler is a shared.EventHandler that keeps every event it receives.
type RecordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingHandler creates a handler for eventTypes; none means all events.
func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *RecordingHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error.
func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the recorded events.
func (h *RecordingHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// HandledCount returns the number of recorded events.
func (h *RecordingHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError sets the error returned from Handle.
func (h *RecordingHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// JobUpdates returns the job snapshots of the recorded PrintJobUpdated events, in order.
func (h *RecordingHandler) JobUpdates() []printing.PrintJob {
	var jobs []printing.PrintJob
	for _, evt := range h.Handled() {
		if e, ok := evt.(*printing.PrintJobUpdatedEvent); ok {
			jobs = append(jobs, e.Job)
		}
	}
	return jobs
}

// WaitForEventCount waits until the handler has recorded at least count events.
func WaitForEventCount(t *testing.T, h *RecordingHandler, count int, timeout time.Duration) {
	t.Helper()
	RequireEventually(t, func() bool { return h.HandledCount() >= count }, timeout, 10*time.Millisecond,
		"expected at least %d events", count)
}

// NewTestJob builds a PENDING job with default options on printer for requester.
func NewTestJob(t *testing.T, requester, printer string, pages int) *printing.PrintJob {
	t.Helper()
	job, err := printing.NewPrintJob(printing.JobSpec{
		RequesterID:  requester,
		FileName:     "handout.pdf",
		SourceFormat: printing.SourceFormatPDF,
		PrinterID:    printer,
		Options: printing.JobOptions{
			PaperSize:     printing.PaperSizeA4,
			Copies:        1,
			ColorMode:     printing.ColorModeGrayscale,
			DuplexMode:    printing.DuplexModeSingle,
			Orientation:   printing.OrientationUpright,
			MarginProfile: printing.MarginProfileNormal,
			PageLayout:    printing.PageLayoutStandard,
			SourceFormat:  printing.SourceFormatPDF,
		},
		OriginalPageCount: pages,
	})
	require.NoError(t, err)
	return job
}
