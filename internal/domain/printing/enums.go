package printing

import (
	"path/filepath"
	"strings"
)

// JobStatus is the canonical, backend-agnostic status of a print job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusHeld       JobStatus = "HELD"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusAborted    JobStatus = "ABORTED"
	JobStatusCanceled   JobStatus = "CANCELED"
)

// IsValid checks if the JobStatus is a valid value
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusHeld,
		JobStatusCompleted, JobStatusAborted, JobStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that end polling
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusAborted || s == JobStatusCanceled
}

// CanTransitionTo checks if the status can move to the target status.
// Pending is only ever an initial state; nothing transitions back into it.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusPending:
		return target == JobStatusProcessing || target == JobStatusHeld || target.IsTerminal()
	case JobStatusProcessing:
		return target == JobStatusHeld || target.IsTerminal()
	case JobStatusHeld:
		return target == JobStatusProcessing || target.IsTerminal()
	}
	return false
}

// AllJobStatuses returns all valid JobStatus values
func AllJobStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending, JobStatusProcessing, JobStatusHeld,
		JobStatusCompleted, JobStatusAborted, JobStatusCanceled,
	}
}

// PaperSize represents the requested media
type PaperSize string

const (
	PaperSizeA3     PaperSize = "A3"
	PaperSizeA4     PaperSize = "A4"
	PaperSizeA5     PaperSize = "A5"
	PaperSizeLetter PaperSize = "LETTER"
	PaperSizeLegal  PaperSize = "LEGAL"
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA3, PaperSizeA4, PaperSizeA5, PaperSizeLetter, PaperSizeLegal:
		return true
	}
	return false
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the paper dimensions in millimeters (width, height)
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA3:
		return 297, 420
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 216, 279
	case PaperSizeLegal:
		return 216, 356
	default:
		return 210, 297
	}
}

// AllPaperSizes returns all valid PaperSize values
func AllPaperSizes() []PaperSize {
	return []PaperSize{PaperSizeA3, PaperSizeA4, PaperSizeA5, PaperSizeLetter, PaperSizeLegal}
}

// ColorMode selects color or grayscale output
type ColorMode string

const (
	ColorModeColor     ColorMode = "COLOR"
	ColorModeGrayscale ColorMode = "GRAYSCALE"
)

// IsValid checks if the ColorMode is a valid value
func (c ColorMode) IsValid() bool {
	return c == ColorModeColor || c == ColorModeGrayscale
}

// String returns the string representation of ColorMode
func (c ColorMode) String() string {
	return string(c)
}

// DuplexMode selects single or double sided output
type DuplexMode string

const (
	DuplexModeSingle DuplexMode = "SINGLE"
	DuplexModeDouble DuplexMode = "DOUBLE"
)

// IsValid checks if the DuplexMode is a valid value
func (d DuplexMode) IsValid() bool {
	return d == DuplexModeSingle || d == DuplexModeDouble
}

// String returns the string representation of DuplexMode
func (d DuplexMode) String() string {
	return string(d)
}

// Orientation represents the page orientation for printing
type Orientation string

const (
	OrientationUpright  Orientation = "UPRIGHT"
	OrientationSideways Orientation = "SIDEWAYS"
)

// IsValid checks if the Orientation is a valid value
func (o Orientation) IsValid() bool {
	return o == OrientationUpright || o == OrientationSideways
}

// String returns the string representation of Orientation
func (o Orientation) String() string {
	return string(o)
}

// PageLayout selects plain output or saddle-stitch booklet imposition
type PageLayout string

const (
	PageLayoutStandard PageLayout = "STANDARD"
	PageLayoutBooklet  PageLayout = "BOOKLET"
)

// IsValid checks if the PageLayout is a valid value
func (l PageLayout) IsValid() bool {
	return l == PageLayoutStandard || l == PageLayoutBooklet
}

// String returns the string representation of PageLayout
func (l PageLayout) String() string {
	return string(l)
}

// MarginProfile is one of the two margin presets
type MarginProfile string

const (
	MarginProfileNormal MarginProfile = "NORMAL"
	MarginProfileNarrow MarginProfile = "NARROW"
)

// Margin presets in hundredths of a millimetre
const (
	MarginNormalHundredths = 720
	MarginNarrowHundredths = 360
)

// IsValid checks if the MarginProfile is a valid value
func (m MarginProfile) IsValid() bool {
	return m == MarginProfileNormal || m == MarginProfileNarrow
}

// String returns the string representation of MarginProfile
func (m MarginProfile) String() string {
	return string(m)
}

// Hundredths returns the margin width of the preset in hundredths of a millimetre
func (m MarginProfile) Hundredths() int {
	if m == MarginProfileNarrow {
		return MarginNarrowHundredths
	}
	return MarginNormalHundredths
}

// SourceFormat is the format of the uploaded file
type SourceFormat string

const (
	SourceFormatPDF  SourceFormat = "pdf"
	SourceFormatDOC  SourceFormat = "doc"
	SourceFormatDOCX SourceFormat = "docx"
	SourceFormatODT  SourceFormat = "odt"
	SourceFormatRTF  SourceFormat = "rtf"
	SourceFormatTXT  SourceFormat = "txt"
	SourceFormatXLS  SourceFormat = "xls"
	SourceFormatXLSX SourceFormat = "xlsx"
	SourceFormatODS  SourceFormat = "ods"
	SourceFormatCSV  SourceFormat = "csv"
	SourceFormatPPT  SourceFormat = "ppt"
	SourceFormatPPTX SourceFormat = "pptx"
	SourceFormatODP  SourceFormat = "odp"
	SourceFormatHTML SourceFormat = "html"
	SourceFormatPNG  SourceFormat = "png"
	SourceFormatJPEG SourceFormat = "jpeg"
)

// SourceFormatFromFileName derives the format from a file extension
func SourceFormatFromFileName(name string) SourceFormat {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "htm":
		return SourceFormatHTML
	case "jpg":
		return SourceFormatJPEG
	}
	return SourceFormat(ext)
}

// IsValid checks if the format is one the pipeline accepts
func (f SourceFormat) IsValid() bool {
	switch f {
	case SourceFormatPDF, SourceFormatDOC, SourceFormatDOCX, SourceFormatODT, SourceFormatRTF,
		SourceFormatTXT, SourceFormatXLS, SourceFormatXLSX, SourceFormatODS, SourceFormatCSV,
		SourceFormatPPT, SourceFormatPPTX, SourceFormatODP, SourceFormatHTML,
		SourceFormatPNG, SourceFormatJPEG:
		return true
	}
	return false
}

// String returns the string representation of SourceFormat
func (f SourceFormat) String() string {
	return string(f)
}

// IsPaged returns true if the format is already a paged document
func (f SourceFormat) IsPaged() bool {
	return f == SourceFormatPDF
}

// IsSpreadsheet returns true for tabular sources that get printed fit-to-page
func (f SourceFormat) IsSpreadsheet() bool {
	switch f {
	case SourceFormatXLS, SourceFormatXLSX, SourceFormatODS, SourceFormatCSV:
		return true
	}
	return false
}

// IsHTML returns true for markup sources
func (f SourceFormat) IsHTML() bool {
	return f == SourceFormatHTML
}

// Extension returns the file extension including the leading dot
func (f SourceFormat) Extension() string {
	return "." + string(f)
}
