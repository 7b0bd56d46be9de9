package printing

import (
	"errors"
	"strings"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
)

// Submission defaults applied to omitted form fields
const (
	DefaultPaperSize     = printing.PaperSizeA4
	DefaultColorMode     = printing.ColorModeGrayscale
	DefaultDuplexMode    = printing.DuplexModeSingle
	DefaultOrientation   = printing.OrientationUpright
	DefaultPageLayout    = printing.PageLayoutStandard
	DefaultMarginProfile = printing.MarginProfileNormal
)

// submission is a request that passed field validation
type submission struct {
	requesterID   string
	requesterName string
	fileName      string
	format        printing.SourceFormat
	printerID     string
	options       printing.JobOptions
	sheetsFrom    *int
	sheetsTo      *int
}

func invalidField(field, message string) error {
	return shared.NewValidationError(shared.ValidationDetail{Field: field, Message: message})
}

// validateSubmission checks every field and reports all violations at once
func validateSubmission(req SubmitJobRequest, devices []printing.Device, conv DocumentConverter) (*submission, error) {
	var details []shared.ValidationDetail
	reject := func(field, message string) {
		details = append(details, shared.ValidationDetail{Field: field, Message: message})
	}

	sub := &submission{
		requesterID:   strings.TrimSpace(req.RequesterID),
		requesterName: strings.TrimSpace(req.RequesterName),
		fileName:      req.FileName,
		printerID:     strings.TrimSpace(req.PrinterID),
		sheetsFrom:    req.SheetsFrom,
		sheetsTo:      req.SheetsTo,
	}

	if sub.requesterID == "" {
		reject("requester_id", "is required")
	}

	switch {
	case sub.printerID == "":
		reject("printer_id", "is required")
	default:
		if _, ok := printing.FindEnabled(devices, sub.printerID); !ok {
			reject("printer_id", "printer "+sub.printerID+" is not an enabled device")
		}
	}

	sub.format = printing.SourceFormatFromFileName(req.FileName)
	switch {
	case strings.TrimSpace(req.FileName) == "":
		reject("file", "is required")
	case !sub.format.IsValid():
		reject("file", "unsupported file type "+sub.format.Extension())
	case !sub.format.IsPaged() && (conv == nil || !conv.Supports(sub.format)):
		reject("file", "no converter available for "+sub.format.String()+" files")
	}

	sel, err := printing.ParsePageSelection(strings.TrimSpace(req.PageSelection))
	if err != nil {
		reject("page_selection", errorMessage(err))
	}

	copies := 1
	if req.Copies != nil {
		copies = *req.Copies
	}
	switch {
	case copies < 1:
		reject("copies", "must be at least 1")
	case copies > printing.MaxCopies:
		reject("copies", "must not exceed 999")
	}

	opts := printing.JobOptions{
		PaperSize:     printing.PaperSize(enumValue(req.PaperSize, string(DefaultPaperSize))),
		Copies:        copies,
		ColorMode:     printing.ColorMode(enumValue(req.ColorMode, string(DefaultColorMode))),
		DuplexMode:    printing.DuplexMode(enumValue(req.DuplexMode, string(DefaultDuplexMode))),
		Orientation:   printing.Orientation(enumValue(req.Orientation, string(DefaultOrientation))),
		PageLayout:    printing.PageLayout(enumValue(req.PageLayout, string(DefaultPageLayout))),
		MarginProfile: printing.MarginProfile(enumValue(req.MarginProfile, string(DefaultMarginProfile))),
		PageSelection: sel,
		SourceFormat:  sub.format,
	}
	if !opts.PaperSize.IsValid() {
		reject("paper_size", "unsupported paper size "+req.PaperSize)
	}
	if !opts.ColorMode.IsValid() {
		reject("color_mode", "must be COLOR or GRAYSCALE")
	}
	if !opts.DuplexMode.IsValid() {
		reject("duplex_mode", "must be SINGLE or DOUBLE")
	}
	if !opts.Orientation.IsValid() {
		reject("orientation", "must be UPRIGHT or SIDEWAYS")
	}
	if !opts.PageLayout.IsValid() {
		reject("page_layout", "must be STANDARD or BOOKLET")
	}
	if !opts.MarginProfile.IsValid() {
		reject("margin_profile", "must be NORMAL or NARROW")
	}
	if opts.IsBooklet() {
		opts.Orientation = printing.OrientationSideways
		if sub.sheetsFrom != nil && *sub.sheetsFrom < 1 {
			reject("sheets_from", "must be at least 1")
		}
		if sub.sheetsTo != nil && *sub.sheetsTo < 1 {
			reject("sheets_to", "must be at least 1")
		}
	}

	if len(details) > 0 {
		return nil, shared.NewValidationError(details...)
	}
	sub.options = opts
	return sub, nil
}

// sheetRange resolves the requested sheet bounds against the booklet size.
// A missing bound extends to the first or last sheet.
func (s *submission) sheetRange(totalSheets int) *printing.SheetRange {
	if !s.options.IsBooklet() || (s.sheetsFrom == nil && s.sheetsTo == nil) {
		return nil
	}
	r := printing.SheetRange{From: 1, To: totalSheets}
	if s.sheetsFrom != nil {
		r.From = *s.sheetsFrom
	}
	if s.sheetsTo != nil {
		r.To = *s.sheetsTo
	}
	return &r
}

func enumValue(v, fallback string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}

func errorMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
