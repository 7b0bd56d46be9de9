package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_IsValid(t *testing.T) {
	for _, s := range AllJobStatuses() {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, JobStatus("").IsValid())
	assert.False(t, JobStatus("RENDERING").IsValid())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusPending, false},
		{JobStatusProcessing, false},
		{JobStatusHeld, false},
		{JobStatusCompleted, true},
		{JobStatusAborted, true},
		{JobStatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     JobStatus
		to       JobStatus
		expected bool
	}{
		{"pending to processing", JobStatusPending, JobStatusProcessing, true},
		{"pending to held", JobStatusPending, JobStatusHeld, true},
		{"pending to completed", JobStatusPending, JobStatusCompleted, true},
		{"pending to aborted", JobStatusPending, JobStatusAborted, true},
		{"processing to held", JobStatusProcessing, JobStatusHeld, true},
		{"processing to completed", JobStatusProcessing, JobStatusCompleted, true},
		{"processing to canceled", JobStatusProcessing, JobStatusCanceled, true},
		{"processing back to pending", JobStatusProcessing, JobStatusPending, false},
		{"held to processing", JobStatusHeld, JobStatusProcessing, true},
		{"held to aborted", JobStatusHeld, JobStatusAborted, true},
		{"held to pending", JobStatusHeld, JobStatusPending, false},
		{"completed to processing", JobStatusCompleted, JobStatusProcessing, false},
		{"aborted to completed", JobStatusAborted, JobStatusCompleted, false},
		{"canceled to pending", JobStatusCanceled, JobStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPaperSize_IsValid(t *testing.T) {
	for _, p := range AllPaperSizes() {
		assert.True(t, p.IsValid(), p.String())
	}
	assert.False(t, PaperSize("").IsValid())
	assert.False(t, PaperSize("RECEIPT_58MM").IsValid())
}

func TestPaperSize_Dimensions(t *testing.T) {
	w, h := PaperSizeA4.Dimensions()
	assert.Equal(t, 210, w)
	assert.Equal(t, 297, h)

	w, h = PaperSizeLetter.Dimensions()
	assert.Equal(t, 216, w)
	assert.Equal(t, 279, h)
}

func TestMarginProfile_Hundredths(t *testing.T) {
	assert.Equal(t, 720, MarginProfileNormal.Hundredths())
	assert.Equal(t, 360, MarginProfileNarrow.Hundredths())
}

func TestSourceFormatFromFileName(t *testing.T) {
	tests := []struct {
		fileName    string
		expected    SourceFormat
		paged       bool
		spreadsheet bool
	}{
		{"report.pdf", SourceFormatPDF, true, false},
		{"REPORT.PDF", SourceFormatPDF, true, false},
		{"letter.docx", SourceFormatDOCX, false, false},
		{"budget.xlsx", SourceFormatXLSX, false, true},
		{"export.csv", SourceFormatCSV, false, true},
		{"page.htm", SourceFormatHTML, false, false},
		{"photo.jpg", SourceFormatJPEG, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			f := SourceFormatFromFileName(tt.fileName)
			assert.Equal(t, tt.expected, f)
			assert.True(t, f.IsValid())
			assert.Equal(t, tt.paged, f.IsPaged())
			assert.Equal(t, tt.spreadsheet, f.IsSpreadsheet())
		})
	}

	assert.False(t, SourceFormatFromFileName("archive.zip").IsValid())
	assert.False(t, SourceFormatFromFileName("noextension").IsValid())
}
