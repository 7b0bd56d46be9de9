package printing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSubmitTimeout bounds the asynchronous hand-off to the backend
const DefaultSubmitTimeout = 2 * time.Minute

// Retry settings for recording the backend handle after a successful submission
const (
	DefaultHandleRecordAttempts = 5
	DefaultHandleRecordBackoff  = 200 * time.Millisecond
)

// Error codes returned by the dispatch service
const (
	ErrCodeConversionFailed = "CONVERSION_FAILED"
	ErrCodeInvalidDocument  = "INVALID_DOCUMENT"
)

// PrintService accepts print submissions and hands them to the backend
type PrintService struct {
	repo       printing.PrintJobRepository
	catalog    printing.DeviceCatalog
	converter  DocumentConverter
	processor  DocumentProcessor
	store      infra.DocumentStore
	backend    backend.Adapter
	reconciler *Reconciler
	notifier   Notifier
	metrics    *telemetry.PrintMetrics
	logger     *zap.Logger

	submitTimeout time.Duration
	recordTries   uint
	recordBackoff time.Duration
	inflight      sync.WaitGroup
}

// PrintServiceDeps groups the collaborators of PrintService
type PrintServiceDeps struct {
	Repo       printing.PrintJobRepository
	Catalog    printing.DeviceCatalog
	Converter  DocumentConverter
	Processor  DocumentProcessor
	Store      infra.DocumentStore
	Backend    backend.Adapter
	Reconciler *Reconciler
	Notifier   Notifier
	Logger     *zap.Logger
}

// NewPrintService creates a new PrintService
func NewPrintService(deps PrintServiceDeps) *PrintService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	return &PrintService{
		repo:          deps.Repo,
		catalog:       deps.Catalog,
		converter:     deps.Converter,
		processor:     deps.Processor,
		store:         deps.Store,
		backend:       deps.Backend,
		reconciler:    deps.Reconciler,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		submitTimeout: DefaultSubmitTimeout,
		recordTries:   DefaultHandleRecordAttempts,
		recordBackoff: DefaultHandleRecordBackoff,
	}
}

// SetMetrics enables print pipeline metrics
func (s *PrintService) SetMetrics(m *telemetry.PrintMetrics) {
	s.metrics = m
}

// SetSubmitTimeout overrides DefaultSubmitTimeout
func (s *PrintService) SetSubmitTimeout(d time.Duration) {
	if d > 0 {
		s.submitTimeout = d
	}
}

// SetHandleRecordRetry overrides how often and how quickly a failed
// handle write is retried
func (s *PrintService) SetHandleRecordRetry(attempts uint, initial time.Duration) {
	if attempts > 0 {
		s.recordTries = attempts
	}
	if initial > 0 {
		s.recordBackoff = initial
	}
}

// SubmitJob validates and normalizes the document, records a PENDING job
// and starts backend submission in the background. Errors after the job
// record exists are recorded on the job, not returned.
func (s *PrintService) SubmitJob(ctx context.Context, req SubmitJobRequest, file []byte) (*PrintJobResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "print.submit",
		telemetry.WithAttribute("printer", req.PrinterID),
		telemetry.WithAttribute("file_name", req.FileName))
	defer span.End()
	log := logger.For(ctx, s.logger)

	devices, err := s.catalog.Devices(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	sub, err := validateSubmission(req, devices, s.converter)
	if err != nil {
		return nil, err
	}
	if len(file) == 0 {
		return nil, invalidField("file", "is empty")
	}

	doc := file
	if !sub.format.IsPaged() {
		if doc, err = s.converter.Convert(ctx, file, sub.format); err != nil {
			log.Warn("Document conversion failed",
				zap.String("file_name", sub.fileName),
				zap.String("source_format", sub.format.String()),
				zap.Error(err))
			telemetry.RecordError(span, err)
			return nil, shared.NewDomainError(ErrCodeConversionFailed,
				"document could not be converted to PDF: "+conversionReason(err))
		}
	}

	pageCount, err := s.processor.PageCount(ctx, doc)
	if err != nil {
		return nil, shared.NewDomainError(ErrCodeInvalidDocument, "document is not a readable PDF")
	}

	var sheets *printing.SheetRange
	if sub.options.IsBooklet() {
		padded := pageCount + printing.BookletPadding(pageCount)
		sheets = sub.sheetRange(printing.TotalSheets(padded))
		imposed, err := s.processor.ImposeBooklet(ctx, doc, sheets)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, de
			}
			return nil, shared.NewDomainError(ErrCodeInvalidDocument, "document could not be imposed as a booklet")
		}
		doc = imposed.Data
	}

	job, err := printing.NewPrintJob(printing.JobSpec{
		RequesterID:       sub.requesterID,
		RequesterName:     sub.requesterName,
		FileName:          sub.fileName,
		SourceFormat:      sub.format,
		PrinterID:         sub.printerID,
		Options:           sub.options,
		Sheets:            sheets,
		OriginalPageCount: pageCount,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, job); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create print job: %w", err)
	}
	job.ClearDomainEvents()

	ctx = logger.WithJobID(ctx, job.ID.String())
	log = logger.For(ctx, s.logger)
	telemetry.SetAttributes(span, "job_id", job.ID.String(), "pages", pageCount)

	path, err := s.store.Save(ctx, infra.DocumentKey{
		RequesterID: job.RequesterID,
		JobID:       job.ID,
		SubmittedAt: job.CreatedAt,
		Extension:   printing.SourceFormatPDF.Extension(),
	}, doc)
	if err == nil {
		if err = job.AttachDocument(path); err == nil {
			err = s.repo.UpdateFields(ctx, job.ID, printing.JobFieldsUpdate{DocumentPath: &path, UpdatedAt: job.UpdatedAt})
		}
	}
	if err != nil {
		log.Error("Failed to store document", zap.Error(err))
		if path != "" {
			if derr := s.store.Delete(context.WithoutCancel(ctx), path); derr != nil {
				log.Warn("Failed to remove orphaned document", zap.String("path", path), zap.Error(derr))
			}
		}
		s.notifier.BroadcastJobCreated(ctx, job)
		s.abort(ctx, job, "failed to store document: "+err.Error())
		return ToPrintJobResponse(job), nil
	}

	s.notifier.BroadcastJobCreated(ctx, job)
	if s.metrics != nil {
		s.metrics.RecordJobSubmitted(ctx, job.PrinterID, job.SourceFormat.String(), job.PageLayout.String())
	}
	log.Info("Print job accepted",
		zap.String("printer", job.PrinterID),
		zap.Int("pages", pageCount),
		zap.String("layout", job.PageLayout.String()),
		zap.Int("copies", job.Copies))

	response := ToPrintJobResponse(job)
	s.inflight.Add(1)
	go s.dispatch(context.WithoutCancel(ctx), job, doc)
	return response, nil
}

// dispatch runs the readiness check and submission for a stored job
func (s *PrintService) dispatch(ctx context.Context, job *printing.PrintJob, doc []byte) {
	defer s.inflight.Done()
	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "print.dispatch",
		telemetry.WithAttribute("backend", s.backend.Name()),
		telemetry.WithAttribute("printer", job.PrinterID))
	defer span.End()
	log := logger.For(ctx, s.logger)

	ready, err := s.backend.IsDeviceReady(ctx, job.PrinterID)
	if err != nil || !ready {
		reason := "printer " + job.PrinterID + " is not ready"
		if err != nil {
			reason += ": " + err.Error()
		}
		log.Warn("Device not ready, aborting job", zap.String("printer", job.PrinterID), zap.Error(err))
		s.abort(ctx, job, reason)
		return
	}

	handle, err := s.backend.Submit(ctx, backend.SubmitRequest{
		PrinterID: job.PrinterID,
		JobName:   job.FileName,
		Document:  doc,
		Options:   job.Options(),
	})
	if err != nil {
		log.Error("Backend submission failed", zap.Error(err))
		telemetry.RecordError(span, err)
		s.abort(ctx, job, err.Error())
		return
	}

	if err := job.MarkSubmitted(handle); err != nil {
		s.abort(ctx, job, err.Error())
		return
	}
	switch err := s.recordSubmission(ctx, job); {
	case errors.Is(err, printing.ErrJobFinished), errors.Is(err, shared.ErrNotFound):
		log.Warn("Print job finished while it was being submitted, not polling it",
			zap.String("handle", handle), zap.Error(err))
		return
	case err != nil:
		// The backend owns the job now. Polling carries the handle and
		// writes it with the first status it records.
		log.Error("Failed to record backend handle, polling with the submitted handle",
			zap.String("handle", handle), zap.Error(err))
		telemetry.RecordError(span, err)
	default:
		log.Info("Print job submitted", zap.String("handle", handle), zap.String("backend", s.backend.Name()))
	}

	if s.reconciler != nil {
		s.reconciler.Track(job)
	}
}

// abort records a terminal failure that happened after the job was created
func (s *PrintService) abort(ctx context.Context, job *printing.PrintJob, reason string) {
	if err := job.Abort(reason); err != nil {
		return
	}
	if err := s.persist(ctx, job); err != nil {
		if errors.Is(err, printing.ErrJobFinished) {
			logger.For(ctx, s.logger).Info("Print job already finished, abort not recorded", zap.String("reason", reason))
			return
		}
		logger.For(ctx, s.logger).Error("Failed to record aborted job", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordJobFinished(ctx, job.PrinterID, job.Status.String(), 0)
	}
}

// recordSubmission writes the backend handle, retrying transient failures
// with exponential backoff. A missing or finished record is not retried.
func (s *PrintService) recordSubmission(ctx context.Context, job *printing.PrintJob) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.recordBackoff
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.repo.UpdateFields(ctx, job.ID, job.StatusFields())
		if errors.Is(err, printing.ErrJobFinished) || errors.Is(err, shared.ErrNotFound) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.recordTries))
	if err != nil {
		return err
	}
	job.ClearDomainEvents()
	s.notifier.BroadcastJobUpdated(ctx, job)
	return nil
}

func (s *PrintService) persist(ctx context.Context, job *printing.PrintJob) error {
	if err := s.repo.UpdateFields(ctx, job.ID, job.StatusFields()); err != nil {
		return err
	}
	job.ClearDomainEvents()
	s.notifier.BroadcastJobUpdated(ctx, job)
	return nil
}

// Wait blocks until background submissions finish or ctx ends
func (s *PrintService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetJob returns one job
func (s *PrintService) GetJob(ctx context.Context, id uuid.UUID) (*PrintJobResponse, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Print job not found")
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}
	return ToPrintJobResponse(job), nil
}

// ListJobsByRequester returns one page of a requester's jobs
func (s *PrintService) ListJobsByRequester(ctx context.Context, requesterID string, req ListJobsRequest) (*ListJobsResponse, error) {
	if requesterID == "" {
		return nil, invalidField("requester_id", "is required")
	}
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	jobs, total, err := s.repo.FindByRequester(ctx, requesterID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list print jobs: %w", err)
	}
	page := shared.NewPaginated(ToPrintJobResponses(jobs), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListAllJobs returns one page of all jobs
func (s *PrintService) ListAllJobs(ctx context.Context, req ListJobsRequest) (*ListJobsResponse, error) {
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	jobs, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list print jobs: %w", err)
	}
	page := shared.NewPaginated(ToPrintJobResponses(jobs), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListDevices returns the configured devices
func (s *PrintService) ListDevices(ctx context.Context) ([]DeviceResponse, error) {
	devices, err := s.catalog.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	return ToDeviceResponses(devices), nil
}

// CancelPolling stops following a job and marks it CANCELED
func (s *PrintService) CancelPolling(ctx context.Context, id uuid.UUID, actor string) (*PrintJobResponse, error) {
	if s.reconciler != nil {
		s.reconciler.Cancel(id)
	}
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Print job not found")
		}
		return nil, fmt.Errorf("failed to get print job: %w", err)
	}
	if err := job.Cancel("status polling canceled by " + actor); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to cancel print job: %w", err)
	}
	if s.reconciler != nil {
		// a submission finishing in between may have started a loop
		s.reconciler.Cancel(id)
	}
	if s.metrics != nil {
		s.metrics.RecordJobFinished(ctx, job.PrinterID, job.Status.String(), job.EndedAt.Sub(job.CreatedAt))
	}
	logger.For(ctx, s.logger).Info("Print job polling canceled",
		zap.String("job_id", job.ID.String()),
		zap.String("actor", actor))
	return ToPrintJobResponse(job), nil
}

func conversionReason(err error) string {
	var ce *infra.ConvertError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
