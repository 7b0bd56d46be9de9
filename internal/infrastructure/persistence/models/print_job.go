package models

import (
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
)

// PrintJobModel is the GORM model for print_jobs table
type PrintJobModel struct {
	AggregateModel
	RequesterID       string     `gorm:"column:requester_id;type:varchar(100);not null;index"`
	RequesterName     string     `gorm:"column:requester_name;type:varchar(200)"`
	FileName          string     `gorm:"column:file_name;type:varchar(255);not null"`
	SourceFormat      string     `gorm:"column:source_format;type:varchar(10);not null"`
	PrinterID         string     `gorm:"column:printer_id;type:varchar(200);not null;index"`
	PaperSize         string     `gorm:"column:paper_size;type:varchar(20);not null;default:'A4'"`
	Copies            int        `gorm:"not null;default:1"`
	ColorMode         string     `gorm:"column:color_mode;type:varchar(20);not null"`
	DuplexMode        string     `gorm:"column:duplex_mode;type:varchar(20);not null"`
	Orientation       string     `gorm:"type:varchar(20);not null"`
	PageLayout        string     `gorm:"column:page_layout;type:varchar(20);not null"`
	MarginProfile     string     `gorm:"column:margin_profile;type:varchar(20);not null"`
	PageSelection     string     `gorm:"column:page_selection;type:varchar(50);not null;default:'all'"`
	SheetsFrom        *int       `gorm:"column:sheets_from"`
	SheetsTo          *int       `gorm:"column:sheets_to"`
	OriginalPageCount int        `gorm:"column:original_page_count;not null"`
	Status            string     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	BackendHandle     string     `gorm:"column:backend_handle;type:varchar(200)"`
	StartedAt         *time.Time `gorm:"column:started_at"`
	EndedAt           *time.Time `gorm:"column:ended_at"`
	ErrorMessage      string     `gorm:"column:error_message;type:text"`
	PagesPrinted      *int       `gorm:"column:pages_printed"`
	DocumentPath      string     `gorm:"column:document_path;type:text"`
	CreatedBy         string     `gorm:"column:created_by;type:varchar(100)"`
	UpdatedBy         string     `gorm:"column:updated_by;type:varchar(100)"`
}

// TableName returns the table name for PrintJobModel
func (PrintJobModel) TableName() string {
	return "print_jobs"
}

// ToDomain converts PrintJobModel to domain PrintJob
func (m *PrintJobModel) ToDomain() *printing.PrintJob {
	job := &printing.PrintJob{
		RequesterID:       m.RequesterID,
		RequesterName:     m.RequesterName,
		FileName:          m.FileName,
		SourceFormat:      printing.SourceFormat(m.SourceFormat),
		PrinterID:         m.PrinterID,
		PaperSize:         printing.PaperSize(m.PaperSize),
		Copies:            m.Copies,
		ColorMode:         printing.ColorMode(m.ColorMode),
		DuplexMode:        printing.DuplexMode(m.DuplexMode),
		Orientation:       printing.Orientation(m.Orientation),
		PageLayout:        printing.PageLayout(m.PageLayout),
		MarginProfile:     printing.MarginProfile(m.MarginProfile),
		PageSelection:     m.PageSelection,
		SheetsFrom:        m.SheetsFrom,
		SheetsTo:          m.SheetsTo,
		OriginalPageCount: m.OriginalPageCount,
		Status:            printing.JobStatus(m.Status),
		BackendHandle:     m.BackendHandle,
		StartedAt:         m.StartedAt,
		EndedAt:           m.EndedAt,
		ErrorMessage:      m.ErrorMessage,
		PagesPrinted:      m.PagesPrinted,
		DocumentPath:      m.DocumentPath,
		CreatedBy:         m.CreatedBy,
		UpdatedBy:         m.UpdatedBy,
	}
	m.PopulateAggregateRoot(&job.BaseAggregateRoot)
	return job
}

// PrintJobModelFromDomain creates a PrintJobModel from domain PrintJob
func PrintJobModelFromDomain(j *printing.PrintJob) *PrintJobModel {
	m := &PrintJobModel{
		RequesterID:       j.RequesterID,
		RequesterName:     j.RequesterName,
		FileName:          j.FileName,
		SourceFormat:      string(j.SourceFormat),
		PrinterID:         j.PrinterID,
		PaperSize:         string(j.PaperSize),
		Copies:            j.Copies,
		ColorMode:         string(j.ColorMode),
		DuplexMode:        string(j.DuplexMode),
		Orientation:       string(j.Orientation),
		PageLayout:        string(j.PageLayout),
		MarginProfile:     string(j.MarginProfile),
		PageSelection:     j.PageSelection,
		SheetsFrom:        j.SheetsFrom,
		SheetsTo:          j.SheetsTo,
		OriginalPageCount: j.OriginalPageCount,
		Status:            string(j.Status),
		BackendHandle:     j.BackendHandle,
		StartedAt:         j.StartedAt,
		EndedAt:           j.EndedAt,
		ErrorMessage:      j.ErrorMessage,
		PagesPrinted:      j.PagesPrinted,
		DocumentPath:      j.DocumentPath,
		CreatedBy:         j.CreatedBy,
		UpdatedBy:         j.UpdatedBy,
	}
	m.FromDomainAggregateRoot(j.BaseAggregateRoot)
	return m
}

// PrintJobUpdateColumns converts a partial update into the column map GORM applies.
// Fields left nil are not written.
func PrintJobUpdateColumns(u printing.JobFieldsUpdate) map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	if u.BackendHandle != nil {
		cols["backend_handle"] = *u.BackendHandle
	}
	if u.StartedAt != nil {
		cols["started_at"] = *u.StartedAt
	}
	if u.EndedAt != nil {
		cols["ended_at"] = *u.EndedAt
	}
	if u.ErrorMessage != nil {
		cols["error_message"] = *u.ErrorMessage
	}
	if u.PagesPrinted != nil {
		cols["pages_printed"] = *u.PagesPrinted
	}
	if u.DocumentPath != nil {
		cols["document_path"] = *u.DocumentPath
	}
	if u.UpdatedBy != nil {
		cols["updated_by"] = *u.UpdatedBy
	}
	if u.Version != nil {
		cols["version"] = *u.Version
	}
	if len(cols) > 0 || !u.UpdatedAt.IsZero() {
		at := u.UpdatedAt
		if at.IsZero() {
			at = time.Now()
		}
		cols["updated_at"] = at
	}
	return cols
}
