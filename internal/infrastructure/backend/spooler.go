package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/process"
	"go.uber.org/zap"
)

// spoolerFlagStates is checked in order; Windows reports a comma-separated
// flag set and the first matching flag decides the state
var spoolerFlagStates = []struct {
	flag  string
	state printing.JobStatus
}{
	{"deleted", printing.JobStatusCanceled},
	{"deleting", printing.JobStatusCanceled},
	{"error", printing.JobStatusAborted},
	{"printed", printing.JobStatusCompleted},
	{"completed", printing.JobStatusCompleted},
	{"retained", printing.JobStatusCompleted},
	{"paused", printing.JobStatusHeld},
	{"offline", printing.JobStatusHeld},
	{"paperout", printing.JobStatusHeld},
	{"userintervention", printing.JobStatusHeld},
	{"blocked", printing.JobStatusHeld},
	{"printing", printing.JobStatusProcessing},
	{"spooling", printing.JobStatusProcessing},
	{"restart", printing.JobStatusProcessing},
}

// MapSpoolerState maps a Windows JobStatus flag string; unknown or empty
// states stay pending
func MapSpoolerState(state string) printing.JobStatus {
	flags := strings.Split(strings.ToLower(state), ",")
	for i := range flags {
		flags[i] = strings.TrimSpace(flags[i])
	}
	for _, fs := range spoolerFlagStates {
		for _, f := range flags {
			if f == fs.flag {
				return fs.state
			}
		}
	}
	return printing.JobStatusPending
}

// spoolerReadyStates are PrinterStatus values that accept work
var spoolerReadyStates = map[string]bool{
	"normal":     true,
	"idle":       true,
	"printing":   true,
	"warmingup":  true,
	"processing": true,
}

// SpoolerConfig configures the Windows spooler variant
type SpoolerConfig struct {
	PowerShellPath string
	SumatraPath    string
	// TempDir holds documents while they are handed to SumatraPDF
	TempDir        string
	CommandTimeout time.Duration
}

func (c *SpoolerConfig) applyDefaults() {
	if c.PowerShellPath == "" {
		c.PowerShellPath = "powershell.exe"
	}
	if c.SumatraPath == "" {
		c.SumatraPath = "SumatraPDF.exe"
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 60 * time.Second
	}
}

// SpoolerAdapter drives the Windows print spooler through PowerShell
type SpoolerAdapter struct {
	config   SpoolerConfig
	runner   process.Runner
	layouter DocumentLayouter
	logger   *zap.Logger
}

// NewSpoolerAdapter creates the spooler variant. The layouter performs
// number-up for booklets, which SumatraPDF cannot do.
func NewSpoolerAdapter(config SpoolerConfig, runner process.Runner, layouter DocumentLayouter, logger *zap.Logger) *SpoolerAdapter {
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpoolerAdapter{
		config:   config,
		runner:   runner,
		layouter: layouter,
		logger:   logger.With(zap.String("backend", "spooler")),
	}
}

// Name returns the variant name
func (a *SpoolerAdapter) Name() string {
	return "spooler"
}

func (a *SpoolerAdapter) powershell(ctx context.Context, script string) (*process.Result, error) {
	return a.runner.Run(ctx, process.Command{
		Name:    a.config.PowerShellPath,
		Args:    []string{"-NoProfile", "-NonInteractive", "-Command", script},
		Timeout: a.config.CommandTimeout,
	})
}

// Submit prints through SumatraPDF and resolves the spooler job id.
// The handle has the form "<id>@<printer>".
func (a *SpoolerAdapter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	doc := req.Document
	if req.Options.IsBooklet() && a.layouter != nil {
		laid, err := a.layouter.NUp(ctx, doc, 2, req.Options.PaperSize)
		if err != nil {
			return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "failed to lay out booklet", err)
		}
		doc = laid
	}

	dir, err := os.MkdirTemp(a.config.TempDir, "spool-*")
	if err != nil {
		return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "failed to create spool directory", err)
	}
	defer os.RemoveAll(dir)

	docName := req.JobName + ".pdf"
	docPath := filepath.Join(dir, docName)
	if err := os.WriteFile(docPath, doc, 0600); err != nil {
		return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "failed to write spool file", err)
	}

	script := fmt.Sprintf(
		"& %s -print-to %s -print-settings %s -silent %s; "+
			"if ($LASTEXITCODE -ne 0) { exit $LASTEXITCODE }; "+
			"for ($i = 0; $i -lt 10; $i++) { "+
			"$j = Get-PrintJob -PrinterName %s | Where-Object { $_.DocumentName -eq %s } | "+
			"Sort-Object SubmittedTime -Descending | Select-Object -First 1; "+
			"if ($j) { $j.Id; break }; Start-Sleep -Milliseconds 300 }",
		psQuote(a.config.SumatraPath),
		psQuote(req.PrinterID),
		psQuote(sumatraSettings(req.Options)),
		psQuote(docPath),
		psQuote(req.PrinterID),
		psQuote(docName),
	)
	res, err := a.powershell(ctx, script)
	if err != nil {
		return "", newBackendError(OpSubmit, ErrCodeProcessFailed, "print command failed", err)
	}

	out := strings.TrimSpace(string(res.Stdout))
	id, err := strconv.Atoi(out)
	if err != nil || id <= 0 {
		return "", newBackendError(OpSubmit, ErrCodeInvalidHandle,
			fmt.Sprintf("unparsable spooler job id %q", out), err)
	}

	handle := strconv.Itoa(id) + "@" + req.PrinterID
	a.logger.Info("job submitted",
		zap.String("printer", req.PrinterID),
		zap.String("handle", handle))
	return handle, nil
}

// sumatraSettings builds the -print-settings value
func sumatraSettings(o printing.JobOptions) string {
	copies := o.Copies
	if copies < 1 {
		copies = 1
	}
	settings := []string{"paper=" + sumatraPaper(o.PaperSize)}

	switch sidesKeyword(o) {
	case "two-sided-short-edge":
		settings = append(settings, "duplexshort")
	case "two-sided-long-edge":
		settings = append(settings, "duplexlong")
	default:
		settings = append(settings, "simplex")
	}

	if orientationEnum(o) == ippOrientationLandscape {
		settings = append(settings, "landscape")
	} else {
		settings = append(settings, "portrait")
	}

	if o.ColorMode == printing.ColorModeGrayscale {
		settings = append(settings, "monochrome")
	} else {
		settings = append(settings, "color")
	}

	switch {
	case o.FitToPage():
		settings = append(settings, "fit")
	case o.EffectiveMargins() == printing.MarginProfileNarrow:
		settings = append(settings, "noscale")
	default:
		settings = append(settings, "shrink")
	}

	settings = append(settings, strconv.Itoa(copies)+"x")
	if r := pageRanges(o.PageSelection); r != "" {
		settings = append(settings, r)
	}
	return strings.Join(settings, ",")
}

func sumatraPaper(p printing.PaperSize) string {
	switch p {
	case printing.PaperSizeA3:
		return "A3"
	case printing.PaperSizeA5:
		return "A5"
	case printing.PaperSizeLetter:
		return "letter"
	case printing.PaperSizeLegal:
		return "legal"
	default:
		return "A4"
	}
}

// splitSpoolerHandle splits "<id>@<printer>"
func splitSpoolerHandle(handle string) (int, string, error) {
	idPart, printer, ok := strings.Cut(handle, "@")
	if !ok || printer == "" {
		return 0, "", newBackendError(OpQuery, ErrCodeInvalidHandle, "unparsable job handle: "+handle, nil)
	}
	id, err := strconv.Atoi(idPart)
	if err != nil || id <= 0 {
		return 0, "", newBackendError(OpQuery, ErrCodeInvalidHandle, "unparsable job handle: "+handle, err)
	}
	return id, printer, nil
}

type spoolerJob struct {
	ID           int    `json:"Id"`
	JobStatus    string `json:"JobStatus"`
	PagesPrinted int    `json:"PagesPrinted"`
	TotalPages   int    `json:"TotalPages"`
}

// QueryStatus reads the job from the queue. A job that already left the
// queue is resolved from the event log, see departedStatus.
func (a *SpoolerAdapter) QueryStatus(ctx context.Context, handle string) (Status, error) {
	id, printer, err := splitSpoolerHandle(handle)
	if err != nil {
		return Status{}, err
	}

	script := fmt.Sprintf(
		"$j = Get-PrintJob -PrinterName %s -ID %d -ErrorAction SilentlyContinue; "+
			"if ($null -eq $j) { '{}' } else { $j | Select-Object Id,"+
			"@{n='JobStatus';e={$_.JobStatus.ToString()}},PagesPrinted,TotalPages | ConvertTo-Json -Compress }",
		psQuote(printer), id,
	)
	res, err := a.powershell(ctx, script)
	if err != nil {
		return Status{}, newBackendError(OpQuery, ErrCodeProcessFailed, "Get-PrintJob failed", err)
	}

	var job spoolerJob
	if err := json.Unmarshal(res.Stdout, &job); err != nil {
		return Status{}, newBackendError(OpQuery, ErrCodeMalformedResponse,
			fmt.Sprintf("unreadable Get-PrintJob output: %q", strings.TrimSpace(string(res.Stdout))), err)
	}
	if job.ID == 0 {
		return a.departedStatus(ctx, id, printer), nil
	}
	return Status{
		State:          MapSpoolerState(job.JobStatus),
		NativeState:    job.JobStatus,
		PagesCompleted: job.PagesPrinted,
	}, nil
}

type spoolerPrinter struct {
	Name        string `json:"Name"`
	Status      string `json:"Status"`
	WorkOffline bool   `json:"WorkOffline"`
}

// IsDeviceReady requires a healthy PrinterStatus and a printer that is not
// set to work offline
func (a *SpoolerAdapter) IsDeviceReady(ctx context.Context, printerID string) (bool, error) {
	script := fmt.Sprintf(
		"Get-Printer -Name %s | Select-Object Name,@{n='Status';e={$_.PrinterStatus.ToString()}},WorkOffline | ConvertTo-Json -Compress",
		psQuote(printerID),
	)
	res, err := a.powershell(ctx, script)
	if err != nil {
		return false, newBackendError(OpReadiness, ErrCodeProcessFailed, "Get-Printer failed", err)
	}

	var p spoolerPrinter
	if err := json.Unmarshal(res.Stdout, &p); err != nil {
		return false, newBackendError(OpReadiness, ErrCodeMalformedResponse, "unreadable Get-Printer output", err)
	}
	ready := spoolerReadyStates[strings.ToLower(p.Status)] && !p.WorkOffline
	if !ready {
		a.logger.Info("device not ready",
			zap.String("printer", printerID),
			zap.String("status", p.Status),
			zap.Bool("work_offline", p.WorkOffline))
	}
	return ready, nil
}

// Event ids in the PrintService operational log
const (
	spoolerEventPrinted = 307
	spoolerEventDeleted = 310
)

type spoolerQueueEvent struct {
	EventID int    `json:"EventId"`
	JobID   int    `json:"JobId"`
	Printer string `json:"Printer"`
}

// departedStatus decides how a job that left the queue ended. A "document
// deleted" event without a "document printed" event means the job was
// removed at the printer. Without either event, or when the log cannot be
// read, the job is reported completed with zero counters so the page count
// falls back to the event log history.
func (a *SpoolerAdapter) departedStatus(ctx context.Context, id int, printer string) Status {
	completed := Status{State: printing.JobStatusCompleted, NativeState: "gone"}

	script := fmt.Sprintf("$e = @(Get-WinEvent -FilterHashtable @{LogName='Microsoft-Windows-PrintService/Operational'; Id=%d,%d} ",
		spoolerEventPrinted, spoolerEventDeleted) +
		"-MaxEvents 500 -ErrorAction SilentlyContinue | ForEach-Object { " +
		"$u = ([xml]$_.ToXml()).Event.UserData; " +
		"if ($_.Id -eq 307) { $d = $u.DocumentPrinted; $p = $d.Param5 } else { $d = $u.DocumentDeleted; $p = $d.Param4 }; " +
		"[pscustomobject]@{ EventId = $_.Id; JobId = [int]$d.Param1; Printer = [string]$p } }); " +
		"ConvertTo-Json -Compress -InputObject $e"
	res, err := a.powershell(ctx, script)
	if err != nil {
		a.logger.Warn("event log lookup failed, assuming printed", zap.Int("job", id), zap.Error(err))
		return completed
	}
	out := strings.TrimSpace(string(res.Stdout))
	if out == "" {
		return completed
	}
	var events []spoolerQueueEvent
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		a.logger.Warn("unreadable event log output, assuming printed", zap.Int("job", id), zap.Error(err))
		return completed
	}

	deleted := false
	for _, e := range events {
		if e.JobID != id || !strings.EqualFold(e.Printer, printer) {
			continue
		}
		switch e.EventID {
		case spoolerEventPrinted:
			return completed
		case spoolerEventDeleted:
			deleted = true
		}
	}
	if deleted {
		return Status{State: printing.JobStatusCanceled, NativeState: "deleted", Reason: "job was deleted from the print queue"}
	}
	return completed
}

type spoolerHistoryEntry struct {
	JobID   int    `json:"JobId"`
	Printer string `json:"Printer"`
	Pages   int    `json:"Pages"`
}

// QueryPageHistory reads "document printed" events (id 307) from the
// PrintService operational log
func (a *SpoolerAdapter) QueryPageHistory(ctx context.Context, handle string) (HistoryCount, error) {
	id, printer, err := splitSpoolerHandle(handle)
	if err != nil {
		return HistoryCount{}, err
	}

	script := "$e = @(Get-WinEvent -FilterHashtable @{LogName='Microsoft-Windows-PrintService/Operational'; Id=307} " +
		"-MaxEvents 500 -ErrorAction SilentlyContinue | ForEach-Object { " +
		"$d = ([xml]$_.ToXml()).Event.UserData.DocumentPrinted; " +
		"[pscustomobject]@{ JobId = [int]$d.Param1; Printer = [string]$d.Param5; Pages = [int]$d.Param8 } }); " +
		"ConvertTo-Json -Compress -InputObject $e"
	res, err := a.powershell(ctx, script)
	if err != nil {
		return HistoryCount{}, newBackendError(OpHistory, ErrCodeProcessFailed, "Get-WinEvent failed", err)
	}

	out := strings.TrimSpace(string(res.Stdout))
	if out == "" {
		return HistoryCount{}, nil
	}
	var entries []spoolerHistoryEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		return HistoryCount{}, newBackendError(OpHistory, ErrCodeMalformedResponse, "unreadable event log output", err)
	}
	for _, e := range entries {
		if e.JobID == id && strings.EqualFold(e.Printer, printer) {
			return HistoryCount{Sheets: e.Pages}, nil
		}
	}
	return HistoryCount{}, nil
}

// ListDevices returns every installed printer
func (a *SpoolerAdapter) ListDevices(ctx context.Context) ([]string, error) {
	res, err := a.powershell(ctx, "Get-Printer | Select-Object -ExpandProperty Name")
	if err != nil {
		return nil, newBackendError(OpList, ErrCodeProcessFailed, "Get-Printer failed", err)
	}
	var names []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// psQuote returns s as a single-quoted PowerShell literal
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var (
	_ Adapter        = (*SpoolerAdapter)(nil)
	_ HistoryQuerier = (*SpoolerAdapter)(nil)
	_ DeviceLister   = (*SpoolerAdapter)(nil)
)
