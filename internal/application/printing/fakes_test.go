package printing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/stretchr/testify/mock"
)

// memoryRepo keeps job records by value so callers never share pointers with it
type memoryRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]printing.PrintJob
	updates int
	failOn  error
	// failIf fails matching updates, used to target one write
	failIf func(printing.JobFieldsUpdate) error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{jobs: make(map[uuid.UUID]printing.PrintJob)}
}

func (r *memoryRepo) Create(_ context.Context, job *printing.PrintJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	cp.ClearDomainEvents()
	r.jobs[job.ID] = cp
	return nil
}

func (r *memoryRepo) UpdateFields(_ context.Context, id uuid.UUID, f printing.JobFieldsUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != nil {
		return r.failOn
	}
	if r.failIf != nil {
		if err := r.failIf(f); err != nil {
			return err
		}
	}
	job, ok := r.jobs[id]
	if !ok {
		return shared.ErrNotFound
	}
	if job.IsTerminal() {
		return printing.ErrJobFinished
	}
	r.updates++
	if f.Status != nil {
		job.Status = *f.Status
	}
	if f.BackendHandle != nil {
		job.BackendHandle = *f.BackendHandle
	}
	if f.StartedAt != nil {
		t := *f.StartedAt
		job.StartedAt = &t
	}
	if f.EndedAt != nil {
		t := *f.EndedAt
		job.EndedAt = &t
	}
	if f.ErrorMessage != nil {
		job.ErrorMessage = *f.ErrorMessage
	}
	if f.PagesPrinted != nil {
		p := *f.PagesPrinted
		job.PagesPrinted = &p
	}
	if f.DocumentPath != nil {
		job.DocumentPath = *f.DocumentPath
	}
	if f.Version != nil {
		job.Version = *f.Version
	}
	r.jobs[id] = job
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*printing.PrintJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &job, nil
}

func (r *memoryRepo) FindByRequester(ctx context.Context, requesterID string, f printing.PrintJobFilter) ([]printing.PrintJob, int64, error) {
	all, _, _ := r.FindAll(ctx, f)
	var out []printing.PrintJob
	for _, j := range all {
		if j.RequesterID == requesterID {
			out = append(out, j)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FindAll(_ context.Context, f printing.PrintJobFilter) ([]printing.PrintJob, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]printing.PrintJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		if f.Status != nil && j.Status != *f.Status {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FindActive(_ context.Context) ([]printing.PrintJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []printing.PrintJob
	for _, j := range r.jobs {
		if !j.IsTerminal() && j.BackendHandle != "" {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *memoryRepo) setFailIf(fn func(printing.JobFieldsUpdate) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failIf = fn
}

func (r *memoryRepo) get(id uuid.UUID) printing.PrintJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// fakeAdapter scripts backend answers; statuses are returned in order and
// the last one repeats
type fakeAdapter struct {
	mu        sync.Mutex
	ready     bool
	readyErr  error
	readySeq  []bool
	submitErr error
	handle    string
	submitted []backend.SubmitRequest
	statuses  []backend.Status
	queryErr  error
	queries   int
	// gate holds Submit until it is closed
	gate chan struct{}
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Submit(ctx context.Context, req backend.SubmitRequest) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return f.handle, nil
}

func (f *fakeAdapter) QueryStatus(_ context.Context, _ string) (backend.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return backend.Status{}, f.queryErr
	}
	if len(f.statuses) == 0 {
		return backend.Status{State: printing.JobStatusPending}, nil
	}
	st := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return st, nil
}

func (f *fakeAdapter) IsDeviceReady(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readySeq) > 0 {
		ok := f.readySeq[0]
		f.readySeq = f.readySeq[1:]
		return ok, nil
	}
	return f.ready, f.readyErr
}

func (f *fakeAdapter) submissions() []backend.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.SubmitRequest(nil), f.submitted...)
}

func (f *fakeAdapter) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

// historyAdapter adds a job history page total
type historyAdapter struct {
	*fakeAdapter
	history backend.HistoryCount
	err     error
}

func (h *historyAdapter) QueryPageHistory(context.Context, string) (backend.HistoryCount, error) {
	return h.history, h.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []printing.PrintJob
	updated []printing.PrintJob
	devices [][]string
}

func (n *recordingNotifier) BroadcastJobCreated(_ context.Context, job *printing.PrintJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, *job)
}

func (n *recordingNotifier) BroadcastJobUpdated(_ context.Context, job *printing.PrintJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, *job)
}

func (n *recordingNotifier) BroadcastDeviceList(_ context.Context, printers []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.devices = append(n.devices, printers)
}

func (n *recordingNotifier) updates() []printing.PrintJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]printing.PrintJob(nil), n.updated...)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, data []byte, format printing.SourceFormat) ([]byte, error) {
	args := m.Called(ctx, data, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockConverter) Supports(format printing.SourceFormat) bool {
	return m.Called(format).Bool(0)
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) PageCount(ctx context.Context, data []byte) (int, error) {
	args := m.Called(ctx, data)
	return args.Int(0), args.Error(1)
}

func (m *MockProcessor) ImposeBooklet(ctx context.Context, data []byte, sheets *printing.SheetRange) (*infra.ImposeResult, error) {
	args := m.Called(ctx, data, sheets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.ImposeResult), args.Error(1)
}

func testDevices() printing.DeviceCatalog {
	return infra.NewStaticCatalog([]string{"Office-Laser", "Hall-Printer"})
}

func newJobWithHandle(repo *memoryRepo, opts printing.JobOptions, handle string) *printing.PrintJob {
	job, err := printing.NewPrintJob(printing.JobSpec{
		RequesterID:       "u-1",
		FileName:          "notes.pdf",
		SourceFormat:      printing.SourceFormatPDF,
		PrinterID:         "Office-Laser",
		Options:           opts,
		OriginalPageCount: 8,
	})
	if err != nil {
		panic(err)
	}
	job.BackendHandle = handle
	job.ClearDomainEvents()
	_ = repo.Create(context.Background(), job)
	return job
}

func standardOptions() printing.JobOptions {
	return printing.JobOptions{
		PaperSize:     printing.PaperSizeA4,
		Copies:        1,
		ColorMode:     printing.ColorModeGrayscale,
		DuplexMode:    printing.DuplexModeSingle,
		Orientation:   printing.OrientationUpright,
		MarginProfile: printing.MarginProfileNormal,
		PageLayout:    printing.PageLayoutStandard,
		SourceFormat:  printing.SourceFormatPDF,
	}
}

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
