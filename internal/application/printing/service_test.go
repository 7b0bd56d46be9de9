package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	infra "github.com/printdesk/backend/internal/infrastructure/printing"
	"github.com/printdesk/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pdfBytes = []byte("%PDF-1.7 test")

type failingStore struct {
	*storage.MemoryDocumentStore
}

func (failingStore) Save(context.Context, infra.DocumentKey, []byte) (string, error) {
	return "", errors.New("disk full")
}

type serviceFixture struct {
	svc       *PrintService
	repo      *memoryRepo
	adapter   *fakeAdapter
	notifier  *recordingNotifier
	converter *MockConverter
	processor *MockProcessor
	store     *storage.MemoryDocumentStore
	recon     *Reconciler
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      newMemoryRepo(),
		adapter:   &fakeAdapter{ready: true, handle: "Office-Laser-42", statuses: []backend.Status{{State: printing.JobStatusProcessing}}},
		notifier:  &recordingNotifier{},
		converter: new(MockConverter),
		processor: new(MockProcessor),
		store:     storage.NewMemoryDocumentStore(),
	}
	f.recon = NewReconciler(f.repo, f.adapter, f.notifier, ReconcilerConfig{PollInterval: time.Hour}, zap.NewNop())
	f.svc = NewPrintService(PrintServiceDeps{
		Repo:       f.repo,
		Catalog:    testDevices(),
		Converter:  f.converter,
		Processor:  f.processor,
		Store:      f.store,
		Backend:    f.adapter,
		Reconciler: f.recon,
		Notifier:   f.notifier,
		Logger:     zap.NewNop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.recon.Stop(ctx)
	})
	return f
}

func (f *serviceFixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Wait(ctx))
}

func validRequest() SubmitJobRequest {
	return SubmitJobRequest{
		PrinterID:   "Office-Laser",
		RequesterID: "u-1",
		FileName:    "notes.pdf",
	}
}

func requireValidationFields(t *testing.T, err error, fields ...string) {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_ERROR", de.Code)
	got := make([]string, 0, len(de.Details))
	for _, d := range de.Details {
		got = append(got, d.Field)
	}
	assert.ElementsMatch(t, fields, got)
}

func TestPrintService_SubmitJob_Success(t *testing.T) {
	f := newServiceFixture(t)
	f.processor.On("PageCount", mock.Anything, pdfBytes).Return(3, nil)

	resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "A4", resp.PaperSize)
	assert.Equal(t, "GRAYSCALE", resp.ColorMode)
	assert.Equal(t, 1, resp.Copies)
	assert.Equal(t, 3, resp.OriginalPageCount)

	id := uuid.MustParse(resp.ID)
	stored := f.repo.get(id)
	assert.Equal(t, printing.JobStatusPending, stored.Status)
	assert.Equal(t, "Office-Laser-42", stored.BackendHandle)
	assert.NotEmpty(t, stored.DocumentPath)

	subs := f.adapter.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "Office-Laser", subs[0].PrinterID)
	assert.Equal(t, "notes.pdf", subs[0].JobName)
	assert.Equal(t, pdfBytes, subs[0].Document)

	assert.Equal(t, 1, f.recon.Active())
	assert.Len(t, f.notifier.created, 1)
	f.converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything, mock.Anything)
	f.processor.AssertExpectations(t)
}

func TestPrintService_SubmitJob_ConvertsOfficeDocuments(t *testing.T) {
	f := newServiceFixture(t)
	docx := []byte("PK docx")
	f.converter.On("Supports", printing.SourceFormatDOCX).Return(true)
	f.converter.On("Convert", mock.Anything, docx, printing.SourceFormatDOCX).Return(pdfBytes, nil)
	f.processor.On("PageCount", mock.Anything, pdfBytes).Return(2, nil)

	req := validRequest()
	req.FileName = "report.docx"
	resp, err := f.svc.SubmitJob(context.Background(), req, docx)
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, "docx", resp.SourceFormat)
	require.Len(t, f.adapter.submissions(), 1)
	assert.Equal(t, pdfBytes, f.adapter.submissions()[0].Document)
	f.converter.AssertExpectations(t)
}

func TestPrintService_SubmitJob_ConversionFailureCreatesNoJob(t *testing.T) {
	f := newServiceFixture(t)
	f.converter.On("Supports", printing.SourceFormatDOCX).Return(true)
	f.converter.On("Convert", mock.Anything, mock.Anything, printing.SourceFormatDOCX).
		Return(nil, infra.NewConvertError(infra.ErrCodeConversionTimeout, "conversion timed out", nil))

	req := validRequest()
	req.FileName = "report.docx"
	_, err := f.svc.SubmitJob(context.Background(), req, []byte("PK"))

	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeConversionFailed, de.Code)
	assert.Contains(t, de.Message, "conversion timed out")
	assert.Zero(t, f.repo.count())
	assert.Empty(t, f.adapter.submissions())
}

func TestPrintService_SubmitJob_ValidationErrors(t *testing.T) {
	three := 3
	zero := 0
	tooMany := 1000

	tests := []struct {
		name   string
		mutate func(*SubmitJobRequest)
		fields []string
	}{
		{"unknown printer", func(r *SubmitJobRequest) { r.PrinterID = "Basement" }, []string{"printer_id"}},
		{"missing requester", func(r *SubmitJobRequest) { r.RequesterID = " " }, []string{"requester_id"}},
		{"unsupported file", func(r *SubmitJobRequest) { r.FileName = "song.mp3" }, []string{"file"}},
		{"no converter", func(r *SubmitJobRequest) { r.FileName = "sheet.xlsx" }, []string{"file"}},
		{"bad selection", func(r *SubmitJobRequest) { r.PageSelection = "5-2" }, []string{"page_selection"}},
		{"zero copies", func(r *SubmitJobRequest) { r.Copies = &zero }, []string{"copies"}},
		{"too many copies", func(r *SubmitJobRequest) { r.Copies = &tooMany }, []string{"copies"}},
		{"bad enums", func(r *SubmitJobRequest) {
			r.PaperSize = "B5"
			r.ColorMode = "sepia"
			r.DuplexMode = "triple"
			r.Orientation = "diagonal"
			r.PageLayout = "poster"
			r.MarginProfile = "wide"
		}, []string{"paper_size", "color_mode", "duplex_mode", "orientation", "page_layout", "margin_profile"}},
		{"booklet sheet below one", func(r *SubmitJobRequest) {
			r.PageLayout = "BOOKLET"
			r.SheetsFrom = &zero
			r.SheetsTo = &three
		}, []string{"sheets_from"}},
		{"everything at once", func(r *SubmitJobRequest) {
			r.PrinterID = ""
			r.Copies = &zero
		}, []string{"printer_id", "copies"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			f.converter.On("Supports", mock.Anything).Return(false)
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.SubmitJob(context.Background(), req, pdfBytes)

			requireValidationFields(t, err, tt.fields...)
			assert.Zero(t, f.repo.count())
			f.processor.AssertNotCalled(t, "PageCount", mock.Anything, mock.Anything)
		})
	}
}

func TestPrintService_SubmitJob_EmptyFile(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.SubmitJob(context.Background(), validRequest(), nil)

	requireValidationFields(t, err, "file")
	assert.Zero(t, f.repo.count())
}

func TestPrintService_SubmitJob_UnreadablePDF(t *testing.T) {
	f := newServiceFixture(t)
	f.processor.On("PageCount", mock.Anything, mock.Anything).Return(0, errors.New("xref table not found"))

	_, err := f.svc.SubmitJob(context.Background(), validRequest(), []byte("not a pdf"))

	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrCodeInvalidDocument, de.Code)
	assert.Zero(t, f.repo.count())
}

func TestPrintService_SubmitJob_Booklet(t *testing.T) {
	f := newServiceFixture(t)
	imposed := []byte("%PDF imposed")
	from := 2
	f.processor.On("PageCount", mock.Anything, pdfBytes).Return(6, nil)
	f.processor.On("ImposeBooklet", mock.Anything, pdfBytes, &printing.SheetRange{From: 2, To: 2}).
		Return(&infra.ImposeResult{Data: imposed, OriginalPageCount: 6, PaddedPageCount: 8}, nil)

	req := validRequest()
	req.PageLayout = "booklet"
	req.Orientation = "UPRIGHT"
	req.DuplexMode = "DOUBLE"
	req.SheetsFrom = &from
	resp, err := f.svc.SubmitJob(context.Background(), req, pdfBytes)
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, "BOOKLET", resp.PageLayout)
	assert.Equal(t, "SIDEWAYS", resp.Orientation)
	stored := f.repo.get(uuid.MustParse(resp.ID))
	assert.Equal(t, printing.OrientationSideways, stored.Orientation)
	require.NotNil(t, stored.SheetsFrom)
	assert.Equal(t, 2, *stored.SheetsFrom)
	assert.Equal(t, 2, *stored.SheetsTo)

	subs := f.adapter.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, imposed, subs[0].Document)
	assert.Equal(t, printing.OrientationSideways, subs[0].Options.Orientation)
	f.processor.AssertExpectations(t)
}

func TestPrintService_SubmitJob_SheetsIgnoredForStandardLayout(t *testing.T) {
	f := newServiceFixture(t)
	from := 9
	f.processor.On("PageCount", mock.Anything, pdfBytes).Return(2, nil)

	req := validRequest()
	req.SheetsFrom = &from
	resp, err := f.svc.SubmitJob(context.Background(), req, pdfBytes)
	require.NoError(t, err)
	f.wait(t)

	assert.Nil(t, resp.SheetsFrom)
	f.processor.AssertNotCalled(t, "ImposeBooklet", mock.Anything, mock.Anything, mock.Anything)
}

func TestPrintService_SubmitJob_DispatchFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fakeAdapter)
		reason string
	}{
		{
			name:   "device not ready",
			setup:  func(a *fakeAdapter) { a.ready = false },
			reason: "printer Office-Laser is not ready",
		},
		{
			name:   "readiness check fails",
			setup:  func(a *fakeAdapter) { a.ready, a.readyErr = false, errors.New("lpstat: not found") },
			reason: "printer Office-Laser is not ready: lpstat: not found",
		},
		{
			name:   "submission rejected",
			setup:  func(a *fakeAdapter) { a.submitErr = errors.New("lp: destination unavailable") },
			reason: "lp: destination unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			tt.setup(f.adapter)
			f.processor.On("PageCount", mock.Anything, mock.Anything).Return(1, nil)

			resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
			require.NoError(t, err)
			f.wait(t)

			stored := f.repo.get(uuid.MustParse(resp.ID))
			assert.Equal(t, printing.JobStatusAborted, stored.Status)
			assert.Equal(t, tt.reason, stored.ErrorMessage)
			assert.NotNil(t, stored.EndedAt)
			assert.Empty(t, stored.BackendHandle)
			assert.Zero(t, f.recon.Active())
			require.NotEmpty(t, f.notifier.updates())
			assert.Equal(t, printing.JobStatusAborted, f.notifier.updates()[0].Status)
		})
	}
}

func TestPrintService_SubmitJob_StorageFailureAbortsJob(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.store = failingStore{storage.NewMemoryDocumentStore()}
	f.processor.On("PageCount", mock.Anything, mock.Anything).Return(1, nil)

	resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, "ABORTED", resp.Status)
	assert.Contains(t, resp.ErrorMessage, "failed to store document")
	assert.Empty(t, f.adapter.submissions())
}

func TestPrintService_SubmitJob_RecordFailureRemovesDocument(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.failOn = errors.New("connection reset")
	f.processor.On("PageCount", mock.Anything, mock.Anything).Return(1, nil)

	resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
	require.NoError(t, err)
	f.wait(t)

	assert.Equal(t, "ABORTED", resp.Status)
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.adapter.submissions())
}

func TestPrintService_CancelPolling_DuringSubmissionStaysCanceled(t *testing.T) {
	f := newServiceFixture(t)
	f.adapter.gate = make(chan struct{})
	f.processor.On("PageCount", mock.Anything, mock.Anything).Return(1, nil)

	resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	canceled, err := f.svc.CancelPolling(context.Background(), id, "admin")
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", canceled.Status)

	close(f.adapter.gate)
	f.wait(t)

	stored := f.repo.get(id)
	assert.Equal(t, printing.JobStatusCanceled, stored.Status)
	assert.Empty(t, stored.BackendHandle)
	assert.Equal(t, "status polling canceled by admin", stored.ErrorMessage)
	assert.NotNil(t, stored.EndedAt)
	assert.Len(t, f.adapter.submissions(), 1)
	assert.Zero(t, f.recon.Active())
}

func TestPrintService_SubmitJob_RetriesHandleRecord(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.SetHandleRecordRetry(5, time.Millisecond)
	f.processor.On("PageCount", mock.Anything, mock.Anything).Return(1, nil)
	failures := 0
	f.repo.setFailIf(func(u printing.JobFieldsUpdate) error {
		if u.BackendHandle != nil && *u.BackendHandle != "" && failures < 2 {
			failures++
			return errors.New("connection reset")
		}
		return nil
	})

	resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
	require.NoError(t, err)
	f.wait(t)

	stored := f.repo.get(uuid.MustParse(resp.ID))
	assert.Equal(t, 2, failures)
	assert.Equal(t, "Office-Laser-42", stored.BackendHandle)
	assert.Equal(t, 1, f.recon.Active())
}

func TestPrintService_SubmitJob_UnrecordedHandleStillPolled(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.SetHandleRecordRetry(3, time.Millisecond)
	f.processor.On("PageCount", mock.Anything, mock.Anything).Return(1, nil)
	f.repo.setFailIf(func(u printing.JobFieldsUpdate) error {
		if u.BackendHandle != nil && *u.BackendHandle != "" {
			return errors.New("connection reset")
		}
		return nil
	})

	resp, err := f.svc.SubmitJob(context.Background(), validRequest(), pdfBytes)
	require.NoError(t, err)
	f.wait(t)
	id := uuid.MustParse(resp.ID)

	stored := f.repo.get(id)
	assert.Equal(t, printing.JobStatusPending, stored.Status)
	assert.Empty(t, stored.BackendHandle)
	require.Equal(t, 1, f.recon.Active())

	f.repo.setFailIf(nil)
	terminal, err := f.recon.pollOnce(context.Background(), id, "Office-Laser-42")
	require.NoError(t, err)
	assert.False(t, terminal)

	stored = f.repo.get(id)
	assert.Equal(t, "Office-Laser-42", stored.BackendHandle)
	assert.Equal(t, printing.JobStatusProcessing, stored.Status)
}

func TestPrintService_GetJob(t *testing.T) {
	f := newServiceFixture(t)
	job := newJobWithHandle(f.repo, standardOptions(), "h-1")

	resp, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID.String(), resp.ID)

	_, err = f.svc.GetJob(context.Background(), uuid.New())
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NOT_FOUND", de.Code)
}

func TestPrintService_ListJobs(t *testing.T) {
	f := newServiceFixture(t)
	newJobWithHandle(f.repo, standardOptions(), "h-1")
	aborted := newJobWithHandle(f.repo, standardOptions(), "h-2")
	require.NoError(t, aborted.Abort("jam"))
	require.NoError(t, f.repo.UpdateFields(context.Background(), aborted.ID, aborted.StatusFields()))

	all, err := f.svc.ListAllJobs(context.Background(), ListJobsRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	mine, err := f.svc.ListJobsByRequester(context.Background(), "u-1", ListJobsRequest{Status: "ABORTED"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, aborted.ID.String(), mine.Items[0].ID)

	_, err = f.svc.ListJobsByRequester(context.Background(), "", ListJobsRequest{})
	requireValidationFields(t, err, "requester_id")

	_, err = f.svc.ListAllJobs(context.Background(), ListJobsRequest{Status: "LOST"})
	requireValidationFields(t, err, "status")
}

func TestPrintService_ListDevices(t *testing.T) {
	f := newServiceFixture(t)

	devices, err := f.svc.ListDevices(context.Background())

	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Office-Laser", devices[0].Name)
}

func TestPrintService_CancelPolling(t *testing.T) {
	f := newServiceFixture(t)
	job := newJobWithHandle(f.repo, standardOptions(), "h-1")
	f.recon.Track(job)
	require.Equal(t, 1, f.recon.Active())

	resp, err := f.svc.CancelPolling(context.Background(), job.ID, "admin")

	require.NoError(t, err)
	assert.Equal(t, "CANCELED", resp.Status)
	assert.Equal(t, "status polling canceled by admin", resp.ErrorMessage)
	assert.Zero(t, f.recon.Active())
	assert.Equal(t, printing.JobStatusCanceled, f.repo.get(job.ID).Status)

	_, err = f.svc.CancelPolling(context.Background(), job.ID, "admin")
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_STATE", de.Code)
}
