package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// pageWidth is the MediaBox width of source page i in documents from buildPDF
func pageWidth(i int) float64 {
	return float64(100 + i)
}

// buildPDF assembles a minimal document with n blank pages; page i is
// pageWidth(i) points wide so reordering can be observed
func buildPDF(n int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 842] /Resources << >> >>", 100+i))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// requireImposedOrder checks every output page of res against the source
// page res.Order names; blanks only need to exist
func requireImposedOrder(t *testing.T, p *PDFProcessor, res *ImposeResult) {
	t.Helper()
	dims, err := api.PageDims(bytes.NewReader(res.Data), p.conf)
	require.NoError(t, err)
	require.Len(t, dims, len(res.Order))
	for i, src := range res.Order {
		if src >= res.OriginalPageCount {
			continue
		}
		assert.Equal(t, pageWidth(src), dims[i].Width, "output page %d should be source page %d", i+1, src+1)
	}
}

func TestPDFProcessor_PageCount(t *testing.T) {
	p := NewPDFProcessor(zaptest.NewLogger(t))
	ctx := context.Background()

	for _, n := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("%d pages", n), func(t *testing.T) {
			got, err := p.PageCount(ctx, buildPDF(n))
			require.NoError(t, err)
			assert.Equal(t, n, got)
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, err := p.PageCount(ctx, nil)
		var convErr *ConvertError
		require.True(t, errors.As(err, &convErr))
		assert.Equal(t, ErrCodeInvalidPDF, convErr.Code)
	})

	t.Run("not a pdf", func(t *testing.T) {
		_, err := p.PageCount(ctx, []byte("hello world"))
		var convErr *ConvertError
		require.True(t, errors.As(err, &convErr))
		assert.Equal(t, ErrCodeInvalidPDF, convErr.Code)
	})
}

func TestPDFProcessor_ImposeBooklet(t *testing.T) {
	p := NewPDFProcessor(zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("pads to a whole signature", func(t *testing.T) {
		res, err := p.ImposeBooklet(ctx, buildPDF(5), nil)
		require.NoError(t, err)
		assert.Equal(t, 5, res.OriginalPageCount)
		assert.Equal(t, 8, res.PaddedPageCount)
		assert.Equal(t, []int{7, 0, 1, 6, 5, 2, 3, 4}, res.Order)
		requireImposedOrder(t, p, res)
	})

	t.Run("exact signature needs no padding", func(t *testing.T) {
		res, err := p.ImposeBooklet(ctx, buildPDF(4), nil)
		require.NoError(t, err)
		assert.Equal(t, 4, res.PaddedPageCount)
		assert.Equal(t, []int{3, 0, 1, 2}, res.Order)
		requireImposedOrder(t, p, res)
	})

	t.Run("sheet range keeps a slice", func(t *testing.T) {
		res, err := p.ImposeBooklet(ctx, buildPDF(16), &printing.SheetRange{From: 2, To: 3})
		require.NoError(t, err)
		assert.Equal(t, []int{13, 2, 3, 12, 11, 4, 5, 10}, res.Order)
		requireImposedOrder(t, p, res)
	})

	t.Run("bad sheet range", func(t *testing.T) {
		_, err := p.ImposeBooklet(ctx, buildPDF(8), &printing.SheetRange{From: 3, To: 2})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.ImposeBooklet(cctx, buildPDF(4), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPDFProcessor_NUp(t *testing.T) {
	p := NewPDFProcessor(zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("single page per sheet is unchanged", func(t *testing.T) {
		in := buildPDF(3)
		out, err := p.NUp(ctx, in, 1, printing.PaperSizeA4)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("two up halves the page count", func(t *testing.T) {
		out, err := p.NUp(ctx, buildPDF(4), 2, printing.PaperSizeA4)
		require.NoError(t, err)
		n, err := p.PageCount(ctx, out)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestPDFProcessor_SelectPages(t *testing.T) {
	p := NewPDFProcessor(zaptest.NewLogger(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		sel     printing.PageSelection
		want    int
		wantErr bool
	}{
		{"all", printing.PageSelection{}, 6, false},
		{"single page", printing.PageSelection{From: 2, To: 2}, 1, false},
		{"range", printing.PageSelection{From: 2, To: 4}, 3, false},
		{"clipped", printing.PageSelection{From: 5, To: 9}, 2, false},
		{"past the end", printing.PageSelection{From: 7, To: 8}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.SelectPages(ctx, buildPDF(6), tt.sel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			n, err := p.PageCount(ctx, out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestPdfcpuForm(t *testing.T) {
	assert.Equal(t, "A4", pdfcpuForm(printing.PaperSizeA4))
	assert.Equal(t, "A3", pdfcpuForm(printing.PaperSizeA3))
	assert.Equal(t, "Letter", pdfcpuForm(printing.PaperSizeLetter))
	assert.Equal(t, "Legal", pdfcpuForm(printing.PaperSizeLegal))
}
