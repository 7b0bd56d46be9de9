package printing

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/printdesk/backend/internal/domain/shared"
)

// PageSelectionAll is the literal token selecting every page
const PageSelectionAll = "all"

var pageSelectionPattern = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// PageSelection is either every page, a single page or an inclusive range
type PageSelection struct {
	From int
	To   int
}

// ParsePageSelection parses "all", "n" or "a-b"
func ParsePageSelection(expr string) (PageSelection, error) {
	if expr == "" || expr == PageSelectionAll {
		return PageSelection{}, nil
	}
	m := pageSelectionPattern.FindStringSubmatch(expr)
	if m == nil {
		return PageSelection{}, shared.NewDomainError("INVALID_PAGE_SELECTION",
			fmt.Sprintf("page selection %q must be \"all\", a page number or a range like 2-5", expr))
	}
	from, err := strconv.Atoi(m[1])
	if err != nil {
		return PageSelection{}, shared.NewDomainError("INVALID_PAGE_SELECTION", "page number is out of range")
	}
	to := from
	if m[2] != "" {
		if to, err = strconv.Atoi(m[2]); err != nil {
			return PageSelection{}, shared.NewDomainError("INVALID_PAGE_SELECTION", "page number is out of range")
		}
	}
	if from < 1 {
		return PageSelection{}, shared.NewDomainError("INVALID_PAGE_SELECTION", "pages are numbered from 1")
	}
	if to < from {
		return PageSelection{}, shared.NewDomainError("INVALID_PAGE_SELECTION",
			fmt.Sprintf("page range %d-%d is reversed", from, to))
	}
	return PageSelection{From: from, To: to}, nil
}

// IsAll returns true if every page is selected
func (p PageSelection) IsAll() bool {
	return p.From == 0
}

// String renders the selection back to its canonical expression
func (p PageSelection) String() string {
	switch {
	case p.IsAll():
		return PageSelectionAll
	case p.From == p.To:
		return strconv.Itoa(p.From)
	default:
		return fmt.Sprintf("%d-%d", p.From, p.To)
	}
}

// SheetRange restricts a booklet to a run of physical sheets (1-based, inclusive)
type SheetRange struct {
	From int
	To   int
}

// JobOptions is the canonical option set every backend translates into its native parameters
type JobOptions struct {
	PaperSize     PaperSize
	Copies        int
	ColorMode     ColorMode
	DuplexMode    DuplexMode
	Orientation   Orientation
	MarginProfile MarginProfile
	PageSelection PageSelection
	PageLayout    PageLayout
	SourceFormat  SourceFormat
}

// IsBooklet returns true when the job is imposed as a booklet
func (o JobOptions) IsBooklet() bool {
	return o.PageLayout == PageLayoutBooklet
}

// FitToPage returns true when the source must be scaled to the printable area
func (o JobOptions) FitToPage() bool {
	return o.SourceFormat.IsSpreadsheet()
}

// EffectiveMargins applies the spreadsheet override to the requested margin preset
func (o JobOptions) EffectiveMargins() MarginProfile {
	if o.SourceFormat.IsSpreadsheet() {
		return MarginProfileNormal
	}
	if !o.MarginProfile.IsValid() {
		return MarginProfileNormal
	}
	return o.MarginProfile
}

// PagesPerSheet converts physical sheets into logical pages printed
func (o JobOptions) PagesPerSheet() int {
	if o.IsBooklet() {
		return 1
	}
	if o.DuplexMode == DuplexModeDouble {
		return 2
	}
	return 1
}
