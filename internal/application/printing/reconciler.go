package printing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Polling defaults
const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollDuration = 24 * time.Hour
)

// PollTimeoutReason is recorded on jobs that exceed the maximum poll duration
const PollTimeoutReason = "status polling timed out"

// Sources of a reconciled page count, reported to metrics
const (
	PageSourceCounter = "counter"
	PageSourceSheets  = "sheets"
	PageSourceHistory = "history"
	PageSourceNone    = "none"
)

// ReconcilerConfig holds polling settings
type ReconcilerConfig struct {
	PollInterval    time.Duration
	MaxPollDuration time.Duration
}

// Reconciler follows submitted jobs until the backend reports a final state.
// Each job is polled by its own goroutine on a timer re-armed after every poll.
type Reconciler struct {
	repo     printing.PrintJobRepository
	backend  backend.Adapter
	notifier Notifier
	metrics  *telemetry.PrintMetrics
	logger   *zap.Logger
	config   ReconcilerConfig
	now      func() time.Time

	mu      sync.Mutex
	loops   map[uuid.UUID]*pollLoop
	stopped bool
	wg      sync.WaitGroup
}

type pollLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a reconciler; zero config values use the defaults
func NewReconciler(repo printing.PrintJobRepository, adapter backend.Adapter, notifier Notifier, cfg ReconcilerConfig, log *zap.Logger) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollDuration <= 0 {
		cfg.MaxPollDuration = DefaultMaxPollDuration
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		repo:     repo,
		backend:  adapter,
		notifier: notifier,
		logger:   log,
		config:   cfg,
		now:      time.Now,
		loops:    make(map[uuid.UUID]*pollLoop),
	}
}

// SetMetrics enables poll and page count metrics
func (r *Reconciler) SetMetrics(m *telemetry.PrintMetrics) {
	r.metrics = m
}

// Track starts polling a submitted job. Terminal jobs and jobs already
// being polled are ignored.
func (r *Reconciler) Track(job *printing.PrintJob) {
	if job.IsTerminal() || job.BackendHandle == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if _, ok := r.loops[job.ID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithJobID(ctx, job.ID.String())
	l := &pollLoop{cancel: cancel, done: make(chan struct{})}
	r.loops[job.ID] = l
	r.wg.Add(1)

	started := job.CreatedAt
	if started.IsZero() {
		started = r.now()
	}
	deadline := started.Add(r.config.MaxPollDuration)
	go r.run(ctx, l, job.ID, job.PrinterID, job.BackendHandle, deadline)
}

func (r *Reconciler) run(ctx context.Context, l *pollLoop, id uuid.UUID, printer, handle string, deadline time.Time) {
	defer r.wg.Done()
	defer close(l.done)
	defer r.forget(id, l)

	if r.metrics != nil {
		r.metrics.PollStarted(ctx, r.backend.Name())
		defer r.metrics.PollStopped(context.WithoutCancel(ctx), r.backend.Name())
	}

	timer := time.NewTimer(r.config.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if r.now().After(deadline) {
			r.expire(ctx, id)
			return
		}

		var (
			terminal bool
			err      error
		)
		telemetry.WithJobLabels(ctx, r.backend.Name(), printer, func(ctx context.Context) {
			terminal, err = r.pollOnce(ctx, id, handle)
		})
		if terminal {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.For(ctx, r.logger).Warn("Status poll failed, will retry", zap.Error(err))
		}
		timer.Reset(r.config.PollInterval)
	}
}

func (r *Reconciler) forget(id uuid.UUID, l *pollLoop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loops[id] == l {
		delete(r.loops, id)
	}
}

// PollOnce queries the backend once and records the result.
// It reports whether the job is now terminal; a terminal job is left untouched.
func (r *Reconciler) PollOnce(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.pollOnce(ctx, id, "")
}

// pollOnce polls with a handle known from submission, used when the
// stored record does not carry it yet
func (r *Reconciler) pollOnce(ctx context.Context, id uuid.UUID, handle string) (bool, error) {
	job, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load print job: %w", err)
	}
	if job.IsTerminal() {
		return true, nil
	}
	if job.BackendHandle == "" {
		job.BackendHandle = handle
	}
	if job.BackendHandle == "" {
		return false, fmt.Errorf("print job %s has no backend handle", id)
	}
	log := logger.For(ctx, r.logger).With(zap.String("handle", job.BackendHandle))

	st, err := r.backend.QueryStatus(ctx, job.BackendHandle)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		log.Error("Status query failed, aborting job", zap.Error(err))
		if abortErr := job.Abort(err.Error()); abortErr != nil {
			return false, abortErr
		}
		if err := r.record(ctx, job); err != nil && !errors.Is(err, printing.ErrJobFinished) {
			return true, err
		}
		return true, nil
	}

	update := printing.StatusUpdate{
		Status:       st.State,
		ErrorMessage: st.Reason,
		ObservedAt:   r.now(),
	}
	if st.State == printing.JobStatusCompleted {
		pages, source := r.reconcilePages(ctx, job, st)
		update.PagesPrinted = pages
		if r.metrics != nil {
			r.metrics.RecordPagesPrinted(ctx, job.PrinterID, source, pages)
		}
	}

	changed, err := job.ApplyStatus(update)
	if err != nil {
		log.Warn("Ignoring backend status",
			zap.String("native_state", st.NativeState),
			zap.String("status", st.State.String()),
			zap.Error(err))
		return false, nil
	}
	if changed {
		log.Info("Print job status changed",
			zap.String("status", job.Status.String()),
			zap.String("native_state", st.NativeState))
	}
	if err := r.record(ctx, job); err != nil {
		if errors.Is(err, printing.ErrJobFinished) {
			log.Info("Print job finished elsewhere, stopping poll")
			return true, nil
		}
		return job.IsTerminal(), err
	}
	return job.IsTerminal(), nil
}

// record persists the job's status attributes and broadcasts them
func (r *Reconciler) record(ctx context.Context, job *printing.PrintJob) error {
	if err := r.repo.UpdateFields(ctx, job.ID, job.StatusFields()); err != nil {
		return fmt.Errorf("failed to update print job: %w", err)
	}
	job.ClearDomainEvents()
	r.notifier.BroadcastJobUpdated(ctx, job)
	if job.IsTerminal() && r.metrics != nil {
		var elapsed time.Duration
		if job.EndedAt != nil {
			elapsed = job.EndedAt.Sub(job.CreatedAt)
		}
		r.metrics.RecordJobFinished(ctx, job.PrinterID, job.Status.String(), elapsed)
	}
	return nil
}

// reconcilePages picks the first positive page count from the backend's
// page counter, its sheet counter and its job history, in that order
func (r *Reconciler) reconcilePages(ctx context.Context, job *printing.PrintJob, st backend.Status) (int, string) {
	opts := job.Options()
	copies := max(job.Copies, 1)

	if pages := PagesFromCounter(st.PagesCompleted, opts.IsBooklet(), copies); pages > 0 {
		return pages, PageSourceCounter
	}
	if pages := PagesFromSheets(st.SheetsCompleted, opts.PagesPerSheet(), copies); pages > 0 {
		return pages, PageSourceSheets
	}
	log := logger.For(ctx, r.logger)
	if hq, ok := r.backend.(backend.HistoryQuerier); ok {
		h, err := hq.QueryPageHistory(ctx, job.BackendHandle)
		if err != nil {
			log.Warn("Page history query failed", zap.Error(err))
		} else if pages := PagesFromSheets(h.Sheets, opts.PagesPerSheet(), copies); pages > 0 {
			return pages, PageSourceHistory
		}
	}
	log.Warn("No reliable page count for completed job, recording 0",
		zap.String("printer", job.PrinterID),
		zap.String("handle", job.BackendHandle))
	return 0, PageSourceNone
}

// PagesFromCounter converts a backend page counter into pages printed.
// Booklet counters report imposed pages, four per sheet.
func PagesFromCounter(counter int, booklet bool, copies int) int {
	if counter <= 0 {
		return 0
	}
	if booklet {
		counter = (counter + printing.PagesPerSignature - 1) / printing.PagesPerSignature
	}
	return counter * copies
}

// PagesFromSheets converts a sheet count into pages printed
func PagesFromSheets(sheets, perSheet, copies int) int {
	if sheets <= 0 {
		return 0
	}
	return sheets * perSheet * copies
}

// expire aborts a job that has been polled for longer than MaxPollDuration
func (r *Reconciler) expire(ctx context.Context, id uuid.UUID) {
	log := logger.For(ctx, r.logger)
	job, err := r.repo.FindByID(ctx, id)
	if err != nil {
		log.Error("Failed to load timed out job", zap.Error(err))
		return
	}
	if job.IsTerminal() {
		return
	}
	log.Warn("Status polling timed out", zap.Duration("max_poll_duration", r.config.MaxPollDuration))
	if err := job.Abort(PollTimeoutReason); err != nil {
		return
	}
	if err := r.record(ctx, job); err != nil {
		log.Error("Failed to record timed out job", zap.Error(err))
	}
}

// Cancel stops polling a job and waits for its loop to exit.
// It reports whether a loop was running.
func (r *Reconciler) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	l, ok := r.loops[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	l.cancel()
	<-l.done
	return true
}

// Active returns the number of jobs being polled
func (r *Reconciler) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}

// Resume starts polling every non-terminal job that already has a backend handle
func (r *Reconciler) Resume(ctx context.Context) (int, error) {
	jobs, err := r.repo.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active print jobs: %w", err)
	}
	for i := range jobs {
		r.Track(&jobs[i])
	}
	if len(jobs) > 0 {
		r.logger.Info("Resumed status polling", zap.Int("jobs", len(jobs)))
	}
	return len(jobs), nil
}

// Stop cancels every poll loop and waits for them to exit or for ctx
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	for _, l := range r.loops {
		l.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("status polling did not stop in time"), ctx.Err())
	}
}
