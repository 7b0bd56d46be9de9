package backend

import (
	"github.com/printdesk/backend/internal/domain/printing"
)

// IPP orientation-requested enum values
const (
	ippOrientationPortrait  = 3
	ippOrientationLandscape = 4
)

// ippMedia maps paper sizes to PWG self-describing media names
var ippMedia = map[printing.PaperSize]string{
	printing.PaperSizeA3:     "iso_a3_297x420mm",
	printing.PaperSizeA4:     "iso_a4_210x297mm",
	printing.PaperSizeA5:     "iso_a5_148x210mm",
	printing.PaperSizeLetter: "na_letter_8.5x11in",
	printing.PaperSizeLegal:  "na_legal_8.5x14in",
}

func mediaName(p printing.PaperSize) string {
	if m, ok := ippMedia[p]; ok {
		return m
	}
	return ippMedia[printing.PaperSizeA4]
}

// sidesKeyword maps duplex settings to the IPP sides keyword. Booklets
// flip on the short edge.
func sidesKeyword(o printing.JobOptions) string {
	switch {
	case o.IsBooklet():
		return "two-sided-short-edge"
	case o.DuplexMode == printing.DuplexModeDouble:
		return "two-sided-long-edge"
	default:
		return "one-sided"
	}
}

func orientationEnum(o printing.JobOptions) int {
	if o.Orientation == printing.OrientationSideways || o.IsBooklet() {
		return ippOrientationLandscape
	}
	return ippOrientationPortrait
}

func colorKeyword(o printing.JobOptions) string {
	if o.ColorMode == printing.ColorModeGrayscale {
		return "monochrome"
	}
	return "color"
}

// pageRanges returns the range expression, or "" when every page is printed
func pageRanges(sel printing.PageSelection) string {
	if sel.IsAll() {
		return ""
	}
	return sel.String()
}

// marginHundredths returns the margin in hundredths of a millimetre after
// the spreadsheet override
func marginHundredths(o printing.JobOptions) int {
	return o.EffectiveMargins().Hundredths()
}
