package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	printapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	"github.com/printdesk/backend/internal/infrastructure/event"
	"github.com/printdesk/backend/internal/infrastructure/persistence"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/printdesk/backend/internal/infrastructure/storage"
	"github.com/printdesk/backend/internal/interfaces/http/handler"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
	"github.com/printdesk/backend/internal/interfaces/http/router"
	"github.com/printdesk/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedBackend accepts every submission and reports the queued states in
// order, repeating the last one
type scriptedBackend struct {
	mu       sync.Mutex
	ready    bool
	states   []backend.Status
	queries  int
	submits  []backend.SubmitRequest
	handleID int
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Submit(_ context.Context, req backend.SubmitRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits = append(b.submits, req)
	b.handleID++
	return req.PrinterID + "-" + strconv.Itoa(b.handleID), nil
}

func (b *scriptedBackend) QueryStatus(_ context.Context, _ string) (backend.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := min(b.queries, len(b.states)-1)
	b.queries++
	return b.states[i], nil
}

func (b *scriptedBackend) IsDeviceReady(_ context.Context, _ string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready, nil
}

func (b *scriptedBackend) submissions() []backend.SubmitRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.SubmitRequest, len(b.submits))
	copy(out, b.submits)
	return out
}

type pipeline struct {
	engine     *gin.Engine
	repo       *persistence.GormPrintJobRepository
	reconciler *printapp.Reconciler
	service    *printapp.PrintService
	events     *testutil.RecordingHandler
}

func newPipeline(t *testing.T, testDB *TestDB, adapter backend.Adapter) *pipeline {
	t.Helper()
	log := zaptest.NewLogger(t)

	bus := event.NewInMemoryEventBus(log)
	events := testutil.NewRecordingHandler()
	bus.Subscribe(events)
	require.NoError(t, bus.Start(context.Background()))
	notifier := event.NewEventNotifier(bus, log)

	repo := persistence.NewGormPrintJobRepository(testDB.DB)
	reconciler := printapp.NewReconciler(repo, adapter, notifier, printapp.ReconcilerConfig{
		PollInterval:    20 * time.Millisecond,
		MaxPollDuration: time.Minute,
	}, log)
	service := printapp.NewPrintService(printapp.PrintServiceDeps{
		Repo:       repo,
		Catalog:    infra.NewStaticCatalog([]string{"Office-Laser", "Hall-Color"}),
		Converter:  infra.NewRoutingConverter(nil),
		Processor:  infra.NewPDFProcessor(log),
		Store:      storage.NewMemoryDocumentStore(),
		Backend:    adapter,
		Reconciler: reconciler,
		Notifier:   notifier,
		Logger:     log,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.Wait(ctx)
		_ = reconciler.Stop(ctx)
	})

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine).
		Use(middleware.Identity(middleware.IdentityConfig{})).
		Register(handler.PrintRoutes(handler.NewPrintHandler(service, 10<<20), nil)).
		Setup()

	return &pipeline{engine: engine, repo: repo, reconciler: reconciler, service: service, events: events}
}

func (p *pipeline) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set(middleware.IdentityUserHeader, "u-42")
	req.Header.Set(middleware.IdentityNameHeader, "Grace")
	w := httptest.NewRecorder()
	p.engine.ServeHTTP(w, req)
	return w
}

func (p *pipeline) getJob(t *testing.T, id string) printapp.PrintJobResponse {
	t.Helper()
	w := p.do(httptest.NewRequest(http.MethodGet, "/api/v1/print/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return testutil.DecodeData[printapp.PrintJobResponse](t, w)
}

func TestPrintPipeline_SubmitToCompletion(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	adapter := &scriptedBackend{
		ready: true,
		states: []backend.Status{
			{State: printing.JobStatusPending, NativeState: "pending"},
			{State: printing.JobStatusProcessing, NativeState: "processing"},
			{State: printing.JobStatusCompleted, NativeState: "completed", PagesCompleted: 3},
		},
	}
	p := newPipeline(t, NewTestDB(t), adapter)

	w := p.do(testutil.MultipartUpload(t, "/api/v1/print/jobs", "minutes.pdf", testutil.BuildPDF(3),
		map[string]string{"printer_id": "Office-Laser", "copies": "1"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := testutil.DecodeData[printapp.PrintJobResponse](t, w)
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, "u-42", created.RequesterID)
	assert.Equal(t, "Grace", created.RequesterName)
	assert.Equal(t, 3, created.OriginalPageCount)
	assert.Equal(t, "A4", created.PaperSize)
	assert.Equal(t, "GRAYSCALE", created.ColorMode)

	testutil.RequireEventually(t, func() bool {
		return p.getJob(t, created.ID).Status == "COMPLETED"
	}, 5*time.Second, 25*time.Millisecond, "job never completed")

	done := p.getJob(t, created.ID)
	assert.Equal(t, "Office-Laser-1", done.BackendHandle)
	require.NotNil(t, done.PagesPrinted)
	assert.Equal(t, 3, *done.PagesPrinted)
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.EndedAt)
	assert.False(t, done.EndedAt.Before(*done.StartedAt))

	subs := adapter.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "Office-Laser", subs[0].PrinterID)
	assert.Equal(t, "minutes.pdf", subs[0].JobName)

	statuses := make([]printing.JobStatus, 0)
	for _, job := range p.events.JobUpdates() {
		statuses = append(statuses, job.Status)
	}
	assert.Contains(t, statuses, printing.JobStatusProcessing)
	assert.Equal(t, printing.JobStatusCompleted, statuses[len(statuses)-1])

	w = p.do(httptest.NewRequest(http.MethodGet, "/api/v1/print/me/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env := testutil.DecodeEnvelope(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)
}

func TestPrintPipeline_DeviceNotReady(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	adapter := &scriptedBackend{ready: false}
	p := newPipeline(t, NewTestDB(t), adapter)

	w := p.do(testutil.MultipartUpload(t, "/api/v1/print/jobs", "flyer.pdf", testutil.BuildPDF(1),
		map[string]string{"printer_id": "Hall-Color"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := testutil.DecodeData[printapp.PrintJobResponse](t, w)

	testutil.RequireEventually(t, func() bool {
		return p.getJob(t, created.ID).Status == "ABORTED"
	}, 5*time.Second, 25*time.Millisecond, "job was not aborted")

	aborted := p.getJob(t, created.ID)
	assert.Contains(t, aborted.ErrorMessage, "Hall-Color is not ready")
	assert.Empty(t, aborted.BackendHandle)
	assert.Empty(t, adapter.submissions())
}

func TestPrintPipeline_Rejections(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	p := newPipeline(t, NewTestDB(t), &scriptedBackend{ready: true})

	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
		status int
		code   string
	}{
		{
			name:   "unknown printer",
			file:   testutil.BuildPDF(1),
			fields: map[string]string{"printer_id": "Basement"},
			status: http.StatusBadRequest,
			code:   "ERR_VALIDATION",
		},
		{
			name:   "unreadable pdf",
			file:   []byte("%PDF-1.4 truncated"),
			fields: map[string]string{"printer_id": "Office-Laser"},
			status: http.StatusUnprocessableEntity,
			code:   "ERR_INVALID_DOCUMENT",
		},
		{
			name:   "missing file",
			fields: map[string]string{"printer_id": "Office-Laser"},
			status: http.StatusBadRequest,
			code:   "ERR_VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := p.do(testutil.MultipartUpload(t, "/api/v1/print/jobs", "doc.pdf", tt.file, tt.fields))
			testutil.AssertErrorCode(t, w, tt.status, tt.code)
		})
	}

	_, total, err := p.repo.FindAll(context.Background(), printing.DefaultPrintJobFilter())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPrintPipeline_ResumeAfterRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormPrintJobRepository(testDB.DB)
	ctx := context.Background()

	job := testutil.NewTestJob(t, "u-7", "Office-Laser", 5)
	require.NoError(t, job.MarkSubmitted("Office-Laser-99"))
	require.NoError(t, repo.Create(ctx, job))

	adapter := &scriptedBackend{
		ready: true,
		states: []backend.Status{
			{State: printing.JobStatusCompleted, NativeState: "completed", SheetsCompleted: 5},
		},
	}
	p := newPipeline(t, testDB, adapter)

	n, err := p.reconciler.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	testutil.RequireEventually(t, func() bool {
		found, err := repo.FindByID(ctx, job.ID)
		return err == nil && found.Status == printing.JobStatusCompleted
	}, 5*time.Second, 25*time.Millisecond, "resumed job never completed")

	found, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, found.PagesPrinted)
	assert.Equal(t, 5, *found.PagesPrinted)
}
