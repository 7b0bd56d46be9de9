package backend

import (
	"testing"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/stretchr/testify/assert"
)

func TestSidesKeyword(t *testing.T) {
	o := baseOptions()
	assert.Equal(t, "one-sided", sidesKeyword(o))

	o.DuplexMode = printing.DuplexModeDouble
	assert.Equal(t, "two-sided-long-edge", sidesKeyword(o))

	o.PageLayout = printing.PageLayoutBooklet
	assert.Equal(t, "two-sided-short-edge", sidesKeyword(o))
}

func TestOrientationEnum(t *testing.T) {
	o := baseOptions()
	assert.Equal(t, ippOrientationPortrait, orientationEnum(o))

	o.Orientation = printing.OrientationSideways
	assert.Equal(t, ippOrientationLandscape, orientationEnum(o))

	o = baseOptions()
	o.PageLayout = printing.PageLayoutBooklet
	assert.Equal(t, ippOrientationLandscape, orientationEnum(o))
}

func TestMediaName(t *testing.T) {
	assert.Equal(t, "iso_a4_210x297mm", mediaName(printing.PaperSizeA4))
	assert.Equal(t, "na_letter_8.5x11in", mediaName(printing.PaperSizeLetter))
	assert.Equal(t, "iso_a4_210x297mm", mediaName(printing.PaperSize("B5")))
}

func TestMarginHundredths(t *testing.T) {
	o := baseOptions()
	assert.Equal(t, 720, marginHundredths(o))

	o.MarginProfile = printing.MarginProfileNarrow
	assert.Equal(t, 360, marginHundredths(o))

	// spreadsheets always get normal margins
	o.SourceFormat = printing.SourceFormatXLSX
	assert.Equal(t, 720, marginHundredths(o))
}

func TestPageRanges(t *testing.T) {
	assert.Equal(t, "", pageRanges(printing.PageSelection{}))
	assert.Equal(t, "3", pageRanges(printing.PageSelection{From: 3, To: 3}))
	assert.Equal(t, "2-5", pageRanges(printing.PageSelection{From: 2, To: 5}))
}

func TestColorKeyword(t *testing.T) {
	o := baseOptions()
	assert.Equal(t, "color", colorKeyword(o))
	o.ColorMode = printing.ColorModeGrayscale
	assert.Equal(t, "monochrome", colorKeyword(o))
}
