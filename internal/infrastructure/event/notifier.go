package event

import (
	"context"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventNotifier turns job lifecycle changes into events on a publisher.
// Broadcasts are best effort and never fail the caller.
type EventNotifier struct {
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewEventNotifier creates a notifier publishing to publisher
func NewEventNotifier(publisher shared.EventPublisher, logger *zap.Logger) *EventNotifier {
	return &EventNotifier{publisher: publisher, logger: logger}
}

// BroadcastJobCreated announces a new job record
func (n *EventNotifier) BroadcastJobCreated(ctx context.Context, job *printing.PrintJob) {
	n.publish(ctx, printing.NewPrintJobCreatedEvent(job))
}

// BroadcastJobUpdated announces a change to a job's status attributes
func (n *EventNotifier) BroadcastJobUpdated(ctx context.Context, job *printing.PrintJob) {
	n.publish(ctx, printing.NewPrintJobUpdatedEvent(job))
}

// BroadcastDeviceList announces the devices that are ready to print
func (n *EventNotifier) BroadcastDeviceList(ctx context.Context, printers []string) {
	n.publish(ctx, printing.NewPrinterListUpdatedEvent(printers))
}

func (n *EventNotifier) publish(ctx context.Context, evt shared.DomainEvent) {
	if err := n.publisher.Publish(ctx, evt); err != nil {
		n.logger.Warn("Failed to broadcast event",
			zap.String("event_type", evt.EventType()),
			zap.String("aggregate_id", evt.AggregateID().String()),
			zap.Error(err))
	}
}
