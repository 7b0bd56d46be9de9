package printing

import (
	"fmt"

	"github.com/printdesk/backend/internal/domain/shared"
)

// PagesPerSignature is the number of logical pages on one folded sheet
const PagesPerSignature = 4

// BookletPadding returns the number of blank pages needed to reach a multiple of four
func BookletPadding(pageCount int) int {
	return (PagesPerSignature - pageCount%PagesPerSignature) % PagesPerSignature
}

// BookletOrder returns the zero-based saddle-stitch page order for a document
// of pageCount pages, along with the padded page count the order refers to.
func BookletOrder(pageCount int) ([]int, int, error) {
	if pageCount < 1 {
		return nil, 0, shared.NewDomainError("EMPTY_DOCUMENT", "document has no pages to impose")
	}
	n := pageCount + BookletPadding(pageCount)
	order := make([]int, 0, n)
	for i := 0; i < n/2; i += 2 {
		order = append(order, n-1-i, i, i+1, n-2-i)
	}
	return order, n, nil
}

// TotalSheets returns the number of sheets a padded booklet is sliced into
func TotalSheets(paddedPageCount int) int {
	return (paddedPageCount + 1) / 2
}

// SliceSheets restricts an imposition order to an inclusive sheet range.
// Each sheet spans four entries of the order.
func SliceSheets(order []int, r SheetRange) ([]int, error) {
	total := TotalSheets(len(order))
	if err := ValidateSheetRange(r, total); err != nil {
		return nil, err
	}
	start := (r.From - 1) * PagesPerSignature
	end := r.To * PagesPerSignature
	if end > len(order) {
		end = len(order)
	}
	if start >= end {
		return nil, shared.NewValidationError(shared.ValidationDetail{
			Field:   "sheets_from",
			Message: fmt.Sprintf("sheet %d has no pages in a %d page booklet", r.From, len(order)),
		})
	}
	out := make([]int, end-start)
	copy(out, order[start:end])
	return out, nil
}

// ValidateSheetRange checks 1 <= from <= to <= totalSheets
func ValidateSheetRange(r SheetRange, totalSheets int) error {
	var details []shared.ValidationDetail
	if r.From < 1 {
		details = append(details, shared.ValidationDetail{Field: "sheets_from", Message: "must be at least 1"})
	}
	if r.To < 1 {
		details = append(details, shared.ValidationDetail{Field: "sheets_to", Message: "must be at least 1"})
	}
	if r.From > r.To {
		details = append(details, shared.ValidationDetail{Field: "sheets_from", Message: "must not exceed sheets_to"})
	}
	if r.To > totalSheets {
		details = append(details, shared.ValidationDetail{
			Field:   "sheets_to",
			Message: fmt.Sprintf("must not exceed the %d sheets of this booklet", totalSheets),
		})
	}
	if len(details) > 0 {
		return shared.NewValidationError(details...)
	}
	return nil
}
