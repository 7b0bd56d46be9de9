package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	printapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// SSE event names
const (
	StreamEventConnected  = "connected"
	StreamEventHeartbeat  = "heartbeat"
	StreamEventJobCreated = "job_created"
	StreamEventJobUpdated = "job_updated"
	StreamEventPrinters   = "printers"
)

// StreamSource hands out event subscriptions
type StreamSource interface {
	Join() (<-chan shared.DomainEvent, func())
	Clients() int
}

// StreamHandler pushes job and printer events to browsers over SSE
type StreamHandler struct {
	BaseHandler
	source     StreamSource
	heartbeat  time.Duration
	maxClients int
}

// StreamOption configures a StreamHandler
type StreamOption func(*StreamHandler)

// WithHeartbeat sets the heartbeat interval
func WithHeartbeat(d time.Duration) StreamOption {
	return func(h *StreamHandler) { h.heartbeat = d }
}

// WithMaxClients caps concurrent stream clients; 0 means unlimited
func WithMaxClients(n int) StreamOption {
	return func(h *StreamHandler) { h.maxClients = n }
}

// NewStreamHandler creates a stream handler reading from source
func NewStreamHandler(source StreamSource, opts ...StreamOption) *StreamHandler {
	h := &StreamHandler{source: source, heartbeat: 30 * time.Second, maxClients: 1000}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type sseMessage struct {
	Event string
	ID    string
	Data  any
}

// Stream serves text/event-stream until the client goes away
//
//	@ID				streamPrintEvents
//
//	@Summary		Job and device event stream
//	@Description	Server-sent events: connected, job_created, job_updated, printers and heartbeat. Answers 503 when the client cap is reached.
//	@Tags			print-stream
//	@Produce		text/event-stream
//	@Success		200	{string}	string	"event stream"
//	@Failure		401	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/print/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.source.Clients() >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Maximum number of stream connections reached")
		return
	}

	events, leave := h.source.Join()
	defer leave()

	log := logger.GetGinLogger(c)
	requester := middleware.GetRequesterID(c)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log.Info("Stream client connected", zap.String("requester_id", requester))
	defer log.Info("Stream client disconnected", zap.String("requester_id", requester))

	h.send(c, sseMessage{Event: StreamEventConnected, Data: gin.H{"timestamp": time.Now().Unix()}})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.send(c, sseMessage{Event: StreamEventHeartbeat, Data: gin.H{"timestamp": time.Now().Unix()}})
		case evt, ok := <-events:
			if !ok {
				return
			}
			if msg, ok := toSSE(evt); ok {
				h.send(c, msg)
			}
		}
	}
}

func (h *StreamHandler) send(c *gin.Context, msg sseMessage) {
	if err := writeSSE(c.Writer, msg); err != nil {
		logger.GetGinLogger(c).Debug("Failed to write stream event",
			zap.String("event", msg.Event),
			zap.Error(err))
		return
	}
	c.Writer.Flush()
}

func writeSSE(w io.Writer, msg sseMessage) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", msg.Event, err)
	}
	if msg.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", msg.Event); err != nil {
			return err
		}
	}
	if msg.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", msg.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func toSSE(evt shared.DomainEvent) (sseMessage, bool) {
	id := evt.EventID().String()
	switch e := evt.(type) {
	case *printing.PrintJobCreatedEvent:
		return sseMessage{Event: StreamEventJobCreated, ID: id, Data: printapp.ToPrintJobResponse(&e.Job)}, true
	case *printing.PrintJobUpdatedEvent:
		return sseMessage{Event: StreamEventJobUpdated, ID: id, Data: printapp.ToPrintJobResponse(&e.Job)}, true
	case *printing.PrinterListUpdatedEvent:
		return sseMessage{Event: StreamEventPrinters, ID: id, Data: gin.H{
			"printers":  e.Printers,
			"timestamp": strconv.FormatInt(e.OccurredAt().Unix(), 10),
		}}, true
	}
	return sseMessage{}, false
}
