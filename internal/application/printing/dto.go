package printing

import (
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
)

// SubmitJobRequest carries the form fields of a print submission.
// Requester and file fields are filled in by the transport layer.
type SubmitJobRequest struct {
	PrinterID     string `form:"printer_id" json:"printer_id" binding:"required,max=200"`
	PaperSize     string `form:"paper_size" json:"paper_size"`
	Copies        *int   `form:"copies" json:"copies"`
	ColorMode     string `form:"color_mode" json:"color_mode"`
	DuplexMode    string `form:"duplex_mode" json:"duplex_mode"`
	Orientation   string `form:"orientation" json:"orientation"`
	PageLayout    string `form:"page_layout" json:"page_layout"`
	MarginProfile string `form:"margin_profile" json:"margin_profile"`
	PageSelection string `form:"page_selection" json:"page_selection" binding:"max=32"`
	SheetsFrom    *int   `form:"sheets_from" json:"sheets_from"`
	SheetsTo      *int   `form:"sheets_to" json:"sheets_to"`

	RequesterID   string `form:"-" json:"-"`
	RequesterName string `form:"-" json:"-"`
	FileName      string `form:"-" json:"-"`
}

// ListJobsRequest holds paging and filter query parameters
type ListJobsRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status    string `form:"status"`
	PrinterID string `form:"printer_id"`
}

// Filter converts the request into a repository filter
func (r ListJobsRequest) Filter() (printing.PrintJobFilter, error) {
	f := printing.DefaultPrintJobFilter()
	if r.Page > 0 {
		f.Page = r.Page
	}
	if r.PageSize > 0 {
		f.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		f.OrderBy = r.OrderBy
	}
	if r.OrderDir != "" {
		f.OrderDir = r.OrderDir
	}
	f.PrinterID = r.PrinterID
	if r.Status != "" {
		status := printing.JobStatus(r.Status)
		if !status.IsValid() {
			return f, invalidField("status", "unknown job status "+r.Status)
		}
		f.Status = &status
	}
	return f, nil
}

// PrintJobResponse is the external view of a print job
type PrintJobResponse struct {
	ID                string     `json:"id"`
	RequesterID       string     `json:"requester_id"`
	RequesterName     string     `json:"requester_name,omitempty"`
	FileName          string     `json:"file_name"`
	SourceFormat      string     `json:"source_format"`
	PrinterID         string     `json:"printer_id"`
	PaperSize         string     `json:"paper_size"`
	Copies            int        `json:"copies"`
	ColorMode         string     `json:"color_mode"`
	DuplexMode        string     `json:"duplex_mode"`
	Orientation       string     `json:"orientation"`
	PageLayout        string     `json:"page_layout"`
	MarginProfile     string     `json:"margin_profile"`
	PageSelection     string     `json:"page_selection"`
	SheetsFrom        *int       `json:"sheets_from,omitempty"`
	SheetsTo          *int       `json:"sheets_to,omitempty"`
	OriginalPageCount int        `json:"original_page_count"`
	Status            string     `json:"status"`
	BackendHandle     string     `json:"backend_handle,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	PagesPrinted      *int       `json:"pages_printed,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ToPrintJobResponse converts a domain job into its response form
func ToPrintJobResponse(job *printing.PrintJob) *PrintJobResponse {
	return &PrintJobResponse{
		ID:                job.ID.String(),
		RequesterID:       job.RequesterID,
		RequesterName:     job.RequesterName,
		FileName:          job.FileName,
		SourceFormat:      job.SourceFormat.String(),
		PrinterID:         job.PrinterID,
		PaperSize:         job.PaperSize.String(),
		Copies:            job.Copies,
		ColorMode:         job.ColorMode.String(),
		DuplexMode:        job.DuplexMode.String(),
		Orientation:       job.Orientation.String(),
		PageLayout:        job.PageLayout.String(),
		MarginProfile:     job.MarginProfile.String(),
		PageSelection:     job.PageSelection,
		SheetsFrom:        job.SheetsFrom,
		SheetsTo:          job.SheetsTo,
		OriginalPageCount: job.OriginalPageCount,
		Status:            job.Status.String(),
		BackendHandle:     job.BackendHandle,
		StartedAt:         job.StartedAt,
		EndedAt:           job.EndedAt,
		ErrorMessage:      job.ErrorMessage,
		PagesPrinted:      job.PagesPrinted,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}
}

// ToPrintJobResponses converts a slice of jobs
func ToPrintJobResponses(jobs []printing.PrintJob) []PrintJobResponse {
	out := make([]PrintJobResponse, len(jobs))
	for i := range jobs {
		out[i] = *ToPrintJobResponse(&jobs[i])
	}
	return out
}

// ListJobsResponse is one page of jobs
type ListJobsResponse = shared.Paginated[PrintJobResponse]

// DeviceResponse is the external view of a device
type DeviceResponse struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ToDeviceResponses converts catalog devices
func ToDeviceResponses(devices []printing.Device) []DeviceResponse {
	out := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		out[i] = DeviceResponse{Name: d.Name, Enabled: d.Enabled, Description: d.Description, Location: d.Location}
	}
	return out
}
