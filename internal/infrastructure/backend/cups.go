package backend

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/process"
	"go.uber.org/zap"
)

//go:embed ipptool/get-job-attributes.test
var getJobAttributesTest []byte

var lpRequestID = regexp.MustCompile(`request id is (\S+)`)

// cupsStates maps ipptool job-state keywords and enum values
var cupsStates = map[string]printing.JobStatus{
	"pending":            printing.JobStatusPending,
	"pending-held":       printing.JobStatusHeld,
	"processing":         printing.JobStatusProcessing,
	"processing-stopped": printing.JobStatusHeld,
	"canceled":           printing.JobStatusCanceled,
	"aborted":            printing.JobStatusAborted,
	"completed":          printing.JobStatusCompleted,
	"3":                  printing.JobStatusPending,
	"4":                  printing.JobStatusHeld,
	"5":                  printing.JobStatusProcessing,
	"6":                  printing.JobStatusHeld,
	"7":                  printing.JobStatusCanceled,
	"8":                  printing.JobStatusAborted,
	"9":                  printing.JobStatusCompleted,
}

// MapCUPSState maps a CUPS job state; unknown states stay pending
func MapCUPSState(state string) printing.JobStatus {
	if s, ok := cupsStates[strings.ToLower(strings.TrimSpace(state))]; ok {
		return s
	}
	return printing.JobStatusPending
}

// CUPSConfig configures the CUPS command line variant
type CUPSConfig struct {
	LpPath      string
	LpstatPath  string
	IpptoolPath string
	// ServerURI is the scheduler base, e.g. ipp://localhost:631
	ServerURI string
	// User is sent as requesting-user-name
	User        string
	PageLogPath string
	// CommandTimeout bounds each invocation
	CommandTimeout time.Duration
}

func (c *CUPSConfig) applyDefaults() {
	if c.LpPath == "" {
		c.LpPath = "lp"
	}
	if c.LpstatPath == "" {
		c.LpstatPath = "lpstat"
	}
	if c.IpptoolPath == "" {
		c.IpptoolPath = "ipptool"
	}
	if c.ServerURI == "" {
		c.ServerURI = "ipp://localhost:631"
	}
	if c.User == "" {
		c.User = "printdesk"
	}
	if c.PageLogPath == "" {
		c.PageLogPath = "/var/log/cups/page_log"
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
}

// CUPSAdapter drives CUPS through lp, lpstat and ipptool
type CUPSAdapter struct {
	config   CUPSConfig
	runner   process.Runner
	logger   *zap.Logger
	readFile func(string) ([]byte, error)

	testFileOnce sync.Once
	testFile     string
	testFileErr  error
}

// NewCUPSAdapter creates the CUPS variant
func NewCUPSAdapter(config CUPSConfig, runner process.Runner, logger *zap.Logger) *CUPSAdapter {
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CUPSAdapter{
		config:   config,
		runner:   runner,
		logger:   logger.With(zap.String("backend", "cups")),
		readFile: os.ReadFile,
	}
}

// Name returns the variant name
func (a *CUPSAdapter) Name() string {
	return "cups"
}

// Submit pipes the document into lp and returns the CUPS request id
func (a *CUPSAdapter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	args := append([]string{"-d", req.PrinterID, "-t", req.JobName}, lpOptions(req.Options)...)

	res, err := a.runner.Run(ctx, process.Command{
		Name:    a.config.LpPath,
		Args:    args,
		Stdin:   req.Document,
		Timeout: a.config.CommandTimeout,
	})
	if err != nil {
		return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "lp failed", err)
	}

	m := lpRequestID.FindSubmatch(res.Stdout)
	if m == nil {
		return "", newBackendError(OpSubmit, ErrCodeMalformedResponse,
			fmt.Sprintf("unexpected lp output: %q", strings.TrimSpace(string(res.Stdout))), nil)
	}
	handle := string(m[1])
	if _, _, err := splitCUPSHandle(handle); err != nil {
		return "", err
	}

	a.logger.Info("job submitted",
		zap.String("printer", req.PrinterID),
		zap.String("handle", handle))
	return handle, nil
}

// lpOptions builds lp arguments from the canonical options
func lpOptions(o printing.JobOptions) []string {
	copies := o.Copies
	if copies < 1 {
		copies = 1
	}
	margin := strconv.Itoa(marginHundredths(o))
	args := []string{
		"-n", strconv.Itoa(copies),
		"-o", "media=" + mediaName(o.PaperSize),
		"-o", "sides=" + sidesKeyword(o),
		"-o", "orientation-requested=" + strconv.Itoa(orientationEnum(o)),
		"-o", "print-color-mode=" + colorKeyword(o),
		"-o", "media-top-margin=" + margin,
		"-o", "media-bottom-margin=" + margin,
		"-o", "media-left-margin=" + margin,
		"-o", "media-right-margin=" + margin,
	}
	if o.FitToPage() {
		args = append(args, "-o", "fit-to-page")
	}
	if r := pageRanges(o.PageSelection); r != "" {
		args = append(args, "-P", r)
	}
	if o.IsBooklet() {
		args = append(args, "-o", "number-up=2", "-o", "number-up-layout=lrtb")
	}
	return args
}

// splitCUPSHandle splits "printer-42" into its queue and numeric job id
func splitCUPSHandle(handle string) (string, int, error) {
	i := strings.LastIndex(handle, "-")
	if i <= 0 || i == len(handle)-1 {
		return "", 0, newBackendError(OpSubmit, ErrCodeInvalidHandle, "unparsable job handle: "+handle, nil)
	}
	id, err := strconv.Atoi(handle[i+1:])
	if err != nil || id <= 0 {
		return "", 0, newBackendError(OpSubmit, ErrCodeInvalidHandle, "unparsable job handle: "+handle, err)
	}
	return handle[:i], id, nil
}

func (a *CUPSAdapter) ensureTestFile() (string, error) {
	a.testFileOnce.Do(func() {
		f, err := os.CreateTemp("", "get-job-attributes-*.test")
		if err != nil {
			a.testFileErr = err
			return
		}
		defer f.Close()
		if _, err := f.Write(getJobAttributesTest); err != nil {
			a.testFileErr = err
			return
		}
		a.testFile = f.Name()
	})
	return a.testFile, a.testFileErr
}

// QueryStatus runs the embedded get-job-attributes test through ipptool
func (a *CUPSAdapter) QueryStatus(ctx context.Context, handle string) (Status, error) {
	printer, jobID, err := splitCUPSHandle(handle)
	if err != nil {
		return Status{}, err
	}
	testFile, err := a.ensureTestFile()
	if err != nil {
		return Status{}, newBackendError(OpQuery, ErrCodeProcessFailed, "failed to write ipptool test", err)
	}

	res, err := a.runner.Run(ctx, process.Command{
		Name: a.config.IpptoolPath,
		Args: []string{
			"-c",
			"-d", "job-id=" + strconv.Itoa(jobID),
			"-d", "user=" + a.config.User,
			strings.TrimRight(a.config.ServerURI, "/") + "/printers/" + printer,
			testFile,
		},
		Timeout: a.config.CommandTimeout,
	})
	if err != nil {
		return Status{}, newBackendError(OpQuery, ErrCodeProcessFailed, "ipptool failed", err)
	}
	return parseIpptoolCSV(res.Stdout)
}

// parseIpptoolCSV reads the header and value rows that ipptool -c prints
func parseIpptoolCSV(out []byte) (Status, error) {
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		return Status{}, newBackendError(OpQuery, ErrCodeMalformedResponse, "unreadable ipptool output", err)
	}
	if len(records) < 2 {
		return Status{}, newBackendError(OpQuery, ErrCodeMalformedResponse,
			fmt.Sprintf("ipptool returned no job attributes: %q", strings.TrimSpace(string(out))), nil)
	}

	values := make(map[string]string, len(records[0]))
	for i, name := range records[0] {
		if i < len(records[1]) {
			values[strings.TrimSpace(name)] = strings.TrimSpace(records[1][i])
		}
	}

	native, ok := values["job-state"]
	if !ok || native == "" {
		return Status{}, newBackendError(OpQuery, ErrCodeMalformedResponse, "job-state missing from ipptool output", nil)
	}
	return Status{
		State:           MapCUPSState(native),
		NativeState:     native,
		Reason:          values["job-state-reasons"],
		PagesCompleted:  atoiOrZero(values["job-impressions-completed"]),
		SheetsCompleted: atoiOrZero(values["job-media-sheets-completed"]),
	}, nil
}

// IsDeviceReady requires lpstat to report the queue enabled and accepting
func (a *CUPSAdapter) IsDeviceReady(ctx context.Context, printerID string) (bool, error) {
	state, err := a.runner.Run(ctx, process.Command{
		Name:    a.config.LpstatPath,
		Args:    []string{"-p", printerID},
		Timeout: a.config.CommandTimeout,
	})
	if err != nil {
		return false, newBackendError(OpReadiness, ErrCodeProcessFailed, "lpstat -p failed", err)
	}
	accepting, err := a.runner.Run(ctx, process.Command{
		Name:    a.config.LpstatPath,
		Args:    []string{"-a", printerID},
		Timeout: a.config.CommandTimeout,
	})
	if err != nil {
		return false, newBackendError(OpReadiness, ErrCodeProcessFailed, "lpstat -a failed", err)
	}

	enabled := lpstatEnabled(string(state.Stdout))
	accepts := lpstatAccepting(string(accepting.Stdout))
	if !enabled || !accepts {
		a.logger.Info("device not ready",
			zap.String("printer", printerID),
			zap.Bool("enabled", enabled),
			zap.Bool("accepting", accepts))
	}
	return enabled && accepts, nil
}

func lpstatEnabled(out string) bool {
	out = strings.ToLower(out)
	if strings.Contains(out, "disabled") {
		return false
	}
	return strings.Contains(out, "is idle") || strings.Contains(out, "now printing")
}

func lpstatAccepting(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "accepting requests") && !strings.Contains(out, "not accepting")
}

// QueryPageHistory totals the page_log entries of a finished job
func (a *CUPSAdapter) QueryPageHistory(_ context.Context, handle string) (HistoryCount, error) {
	printer, jobID, err := splitCUPSHandle(handle)
	if err != nil {
		return HistoryCount{}, err
	}
	raw, err := a.readFile(a.config.PageLogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return HistoryCount{}, nil
		}
		return HistoryCount{}, newBackendError(OpHistory, ErrCodeProcessFailed, "failed to read page_log", err)
	}
	return HistoryCount{Sheets: countPageLog(raw, printer, jobID)}, nil
}

// countPageLog reads lines of the form
// "printer user job-id [date] page-or-total count ...". A "total" line
// carries the job's impression count; otherwise each page line counts once.
func countPageLog(raw []byte, printer string, jobID int) int {
	id := strconv.Itoa(jobID)
	pages := 0
	total := -1
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != printer || fields[2] != id {
			continue
		}
		end := strings.Index(line, "]")
		if end < 0 {
			continue
		}
		rest := strings.Fields(line[end+1:])
		if len(rest) < 2 {
			continue
		}
		if rest[0] == "total" {
			if n, err := strconv.Atoi(rest[1]); err == nil && n > total {
				total = n
			}
			continue
		}
		pages++
	}
	if total >= 0 {
		return total
	}
	return pages
}

// ListDevices returns the destinations reported by lpstat -e
func (a *CUPSAdapter) ListDevices(ctx context.Context) ([]string, error) {
	res, err := a.runner.Run(ctx, process.Command{
		Name:    a.config.LpstatPath,
		Args:    []string{"-e"},
		Timeout: a.config.CommandTimeout,
	})
	if err != nil {
		return nil, newBackendError(OpList, ErrCodeProcessFailed, "lpstat -e failed", err)
	}
	var names []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close removes the ipptool test file
func (a *CUPSAdapter) Close() error {
	if a.testFile != "" {
		return os.Remove(a.testFile)
	}
	return nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

var (
	_ Adapter        = (*CUPSAdapter)(nil)
	_ HistoryQuerier = (*CUPSAdapter)(nil)
	_ DeviceLister   = (*CUPSAdapter)(nil)
)
