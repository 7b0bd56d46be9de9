// Package printing coordinates print submissions and follows each job
// until its backend reports a final state.
package printing

import (
	"context"

	"github.com/printdesk/backend/internal/domain/printing"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
)

// Notifier broadcasts job and device changes. Calls are best effort.
type Notifier interface {
	BroadcastJobCreated(ctx context.Context, job *printing.PrintJob)
	BroadcastJobUpdated(ctx context.Context, job *printing.PrintJob)
	BroadcastDeviceList(ctx context.Context, printers []string)
}

// DocumentConverter normalizes uploaded sources into PDF
type DocumentConverter interface {
	Convert(ctx context.Context, data []byte, format printing.SourceFormat) ([]byte, error)
	Supports(format printing.SourceFormat) bool
}

// DocumentProcessor performs page-level PDF operations
type DocumentProcessor interface {
	PageCount(ctx context.Context, data []byte) (int, error)
	ImposeBooklet(ctx context.Context, data []byte, sheets *printing.SheetRange) (*infra.ImposeResult, error)
}

type nopNotifier struct{}

func (nopNotifier) BroadcastJobCreated(context.Context, *printing.PrintJob) {}
func (nopNotifier) BroadcastJobUpdated(context.Context, *printing.PrintJob) {}
func (nopNotifier) BroadcastDeviceList(context.Context, []string)           {}
