package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpConverter_Defaults(t *testing.T) {
	c := NewChromedpConverter(nil)
	defer c.Close()

	assert.Equal(t, defaultChromeTimeout, c.config.Timeout)
	assert.Equal(t, printing.PaperSizeA4, c.config.PaperSize)
	assert.Equal(t, defaultHTMLMarginMM, c.config.MarginMM)
}

func TestChromedpConverter_BuildPrintParams(t *testing.T) {
	tests := []struct {
		paper         printing.PaperSize
		width, height float64
	}{
		{printing.PaperSizeA4, 210, 297},
		{printing.PaperSizeA3, 297, 420},
		{printing.PaperSizeLetter, 216, 279},
	}
	for _, tt := range tests {
		t.Run(string(tt.paper), func(t *testing.T) {
			c := &ChromedpConverter{config: &ChromedpConfig{PaperSize: tt.paper, MarginMM: 10}}
			params := c.buildPrintParams()
			assert.InDelta(t, mmToInches(tt.width), params.paperWidth, 0.02)
			assert.InDelta(t, mmToInches(tt.height), params.paperHeight, 0.02)
			assert.InDelta(t, 0.3937, params.margin, 0.001)
		})
	}
}

func TestChromedpConverter_RejectsInput(t *testing.T) {
	c := NewChromedpConverter(nil)
	defer c.Close()

	assert.True(t, c.Supports(printing.SourceFormatHTML))
	assert.False(t, c.Supports(printing.SourceFormatDOCX))

	_, err := c.Convert(context.Background(), []byte("x"), printing.SourceFormatDOCX)
	var convErr *ConvertError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, ErrCodeUnsupportedFormat, convErr.Code)

	_, err = c.Convert(context.Background(), []byte("   "), printing.SourceFormatHTML)
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, ErrCodeConversionFailed, convErr.Code)
}

func TestWrapHTML(t *testing.T) {
	full := "<!DOCTYPE html><html><body>x</body></html>"
	assert.Equal(t, full, wrapHTML(full))

	wrapped := wrapHTML("<p>hi</p>")
	assert.Contains(t, wrapped, "<!DOCTYPE html>")
	assert.Contains(t, wrapped, "<body><p>hi</p></body>")
}
