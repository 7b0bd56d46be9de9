package backend

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/phin1x/go-ipp"
	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const (
	attrJobState               = "job-state"
	attrJobStateReasons        = "job-state-reasons"
	attrJobImpressionsComplete = "job-impressions-completed"
	attrJobSheetsCompleted     = "job-media-sheets-completed"
	attrPrinterState           = "printer-state"
	attrPrinterAccepting       = "printer-is-accepting-jobs"
	attrPrinterName            = "printer-name"

	ippPrinterStateStopped = 5
	mimeTypePDF            = "application/pdf"
)

// job template attributes sent by the ipp variant and their value tags
var ippJobAttributeTags = map[string]int8{
	"media":                 ipp.TagKeyword,
	"sides":                 ipp.TagKeyword,
	"orientation-requested": ipp.TagEnum,
	"print-color-mode":      ipp.TagKeyword,
	"print-scaling":         ipp.TagKeyword,
	"number-up":             ipp.TagInteger,
	"number-up-layout":      ipp.TagKeyword,
	"media-top-margin":      ipp.TagInteger,
	"media-bottom-margin":   ipp.TagInteger,
	"media-left-margin":     ipp.TagInteger,
	"media-right-margin":    ipp.TagInteger,
}

var registerIPPAttributes sync.Once

// MapIPPState maps an IPP job-state enum; unknown values stay pending
func MapIPPState(state int) printing.JobStatus {
	return MapCUPSState(strconv.Itoa(state))
}

// ippClient is the subset of go-ipp the adapter uses
type ippClient interface {
	PrintJob(doc ipp.Document, printer string, jobAttributes map[string]interface{}) (int, error)
	GetJobAttributes(jobID int, attributes []string) (ipp.Attributes, error)
	GetPrinterAttributes(printer string, attributes []string) (ipp.Attributes, error)
	GetPrinters(attributes []string) (map[string]ipp.Attributes, error)
}

// IPPConfig configures the native IPP variant
type IPPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// IPPAdapter talks IPP directly to a CUPS scheduler
type IPPAdapter struct {
	client   ippClient
	layouter DocumentLayouter
	logger   *zap.Logger
}

// NewIPPAdapter creates the IPP variant. The layouter applies page selection
// to the document before it is sent.
func NewIPPAdapter(config IPPConfig, layouter DocumentLayouter, logger *zap.Logger) *IPPAdapter {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 631
	}
	client := ipp.NewCUPSClient(config.Host, config.Port, config.Username, config.Password, config.UseTLS)
	return newIPPAdapter(client, layouter, logger)
}

func newIPPAdapter(client ippClient, layouter DocumentLayouter, logger *zap.Logger) *IPPAdapter {
	registerIPPAttributes.Do(func() {
		for name, tag := range ippJobAttributeTags {
			if _, ok := ipp.AttributeTagMapping[name]; !ok {
				ipp.AttributeTagMapping[name] = tag
			}
		}
	})
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPPAdapter{
		client:   client,
		layouter: layouter,
		logger:   logger.With(zap.String("backend", "ipp")),
	}
}

// Name returns the variant name
func (a *IPPAdapter) Name() string {
	return "ipp"
}

// call runs a blocking client call and gives up when ctx ends
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit sends a Print-Job request. The handle is the numeric job id.
func (a *IPPAdapter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	doc := req.Document
	if !req.Options.PageSelection.IsAll() && a.layouter != nil {
		selected, err := a.layouter.SelectPages(ctx, doc, req.Options.PageSelection)
		if err != nil {
			return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "failed to apply page selection", err)
		}
		doc = selected
	}

	attrs := ippJobAttributes(req.Options)
	jobID, err := call(ctx, func() (int, error) {
		return a.client.PrintJob(ipp.Document{
			Document: bytes.NewReader(doc),
			Size:     len(doc),
			Name:     req.JobName,
			MimeType: mimeTypePDF,
		}, req.PrinterID, attrs)
	})
	if err != nil {
		return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "Print-Job failed", err)
	}
	if jobID <= 0 {
		return "", newBackendError(OpSubmit, ErrCodeInvalidHandle, fmt.Sprintf("server returned job id %d", jobID), nil)
	}

	handle := strconv.Itoa(jobID)
	a.logger.Info("job submitted",
		zap.String("printer", req.PrinterID),
		zap.String("handle", handle))
	return handle, nil
}

// ippJobAttributes builds the job template attributes for Print-Job
func ippJobAttributes(o printing.JobOptions) map[string]interface{} {
	copies := o.Copies
	if copies < 1 {
		copies = 1
	}
	margin := marginHundredths(o)
	attrs := map[string]interface{}{
		"copies":                copies,
		"media":                 mediaName(o.PaperSize),
		"sides":                 sidesKeyword(o),
		"orientation-requested": orientationEnum(o),
		"print-color-mode":      colorKeyword(o),
		"media-top-margin":      margin,
		"media-bottom-margin":   margin,
		"media-left-margin":     margin,
		"media-right-margin":    margin,
	}
	if o.FitToPage() {
		attrs["print-scaling"] = "fit"
	}
	if o.IsBooklet() {
		attrs["number-up"] = 2
		attrs["number-up-layout"] = "lrtb"
	}
	return attrs
}

// QueryStatus sends Get-Job-Attributes
func (a *IPPAdapter) QueryStatus(ctx context.Context, handle string) (Status, error) {
	jobID, err := strconv.Atoi(handle)
	if err != nil || jobID <= 0 {
		return Status{}, newBackendError(OpQuery, ErrCodeInvalidHandle, "unparsable job handle: "+handle, err)
	}

	attrs, err := call(ctx, func() (ipp.Attributes, error) {
		return a.client.GetJobAttributes(jobID, []string{
			attrJobState, attrJobStateReasons, attrJobImpressionsComplete, attrJobSheetsCompleted,
		})
	})
	if err != nil {
		return Status{}, newBackendError(OpQuery, ErrCodeProcessFailed, "Get-Job-Attributes failed", err)
	}

	state, ok := intAttr(attrs, attrJobState)
	if !ok {
		return Status{}, newBackendError(OpQuery, ErrCodeMalformedResponse, "job-state missing from response", nil)
	}
	pages, _ := intAttr(attrs, attrJobImpressionsComplete)
	sheets, _ := intAttr(attrs, attrJobSheetsCompleted)
	return Status{
		State:           MapIPPState(state),
		NativeState:     strconv.Itoa(state),
		Reason:          stringAttr(attrs, attrJobStateReasons),
		PagesCompleted:  pages,
		SheetsCompleted: sheets,
	}, nil
}

// IsDeviceReady requires a printer that is not stopped and accepts jobs
func (a *IPPAdapter) IsDeviceReady(ctx context.Context, printerID string) (bool, error) {
	attrs, err := call(ctx, func() (ipp.Attributes, error) {
		return a.client.GetPrinterAttributes(printerID, []string{attrPrinterState, attrPrinterAccepting})
	})
	if err != nil {
		return false, newBackendError(OpReadiness, ErrCodeProcessFailed, "Get-Printer-Attributes failed", err)
	}
	state, okState := intAttr(attrs, attrPrinterState)
	accepting, okAccepting := boolAttr(attrs, attrPrinterAccepting)
	if !okState || !okAccepting {
		return false, newBackendError(OpReadiness, ErrCodeMalformedResponse, "printer state attributes missing", nil)
	}
	return state != ippPrinterStateStopped && accepting, nil
}

// ListDevices sends CUPS-Get-Printers
func (a *IPPAdapter) ListDevices(ctx context.Context) ([]string, error) {
	printers, err := call(ctx, func() (map[string]ipp.Attributes, error) {
		return a.client.GetPrinters([]string{attrPrinterName})
	})
	if err != nil {
		return nil, newBackendError(OpList, ErrCodeProcessFailed, "CUPS-Get-Printers failed", err)
	}
	names := make([]string, 0, len(printers))
	for name := range printers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func intAttr(attrs ipp.Attributes, name string) (int, bool) {
	vals := attrs[name]
	if len(vals) == 0 {
		return 0, false
	}
	switch v := vals[0].Value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func boolAttr(attrs ipp.Attributes, name string) (bool, bool) {
	vals := attrs[name]
	if len(vals) == 0 {
		return false, false
	}
	b, ok := vals[0].Value.(bool)
	return b, ok
}

func stringAttr(attrs ipp.Attributes, name string) string {
	var out string
	for i, v := range attrs[name] {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprint(v.Value)
	}
	return out
}

var (
	_ Adapter      = (*IPPAdapter)(nil)
	_ DeviceLister = (*IPPAdapter)(nil)
)
