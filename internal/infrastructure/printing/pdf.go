package printing

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

var disableConfigDir sync.Once

// ImposeResult is a reordered booklet document
type ImposeResult struct {
	Data []byte
	// OriginalPageCount is the page count before padding
	OriginalPageCount int
	// PaddedPageCount is the page count rounded up to whole signatures
	PaddedPageCount int
	// Order holds the zero-based source page of each output page; indexes
	// at or past OriginalPageCount are blanks
	Order []int
}

// PDFProcessor performs page-level operations on PDF documents
type PDFProcessor struct {
	conf   *model.Configuration
	logger *zap.Logger
}

// NewPDFProcessor creates a processor with relaxed validation
func NewPDFProcessor(logger *zap.Logger) *PDFProcessor {
	disableConfigDir.Do(api.DisableConfigDir)
	if logger == nil {
		logger = zap.NewNop()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFProcessor{
		conf:   conf,
		logger: logger,
	}
}

// PageCount returns the number of pages in data
func (p *PDFProcessor) PageCount(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, NewConvertError(ErrCodeInvalidPDF, "document is empty", nil)
	}
	n, err := api.PageCount(bytes.NewReader(data), p.conf)
	if err != nil {
		return 0, NewConvertError(ErrCodeInvalidPDF, "failed to read page count", err)
	}
	return n, nil
}

// ImposeBooklet pads data to whole signatures and reorders its pages for
// saddle-stitch printing. When sheets is set only that sheet range is kept.
func (p *PDFProcessor) ImposeBooklet(ctx context.Context, data []byte, sheets *printing.SheetRange) (*ImposeResult, error) {
	n, err := p.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}

	order, padded, err := printing.BookletOrder(n)
	if err != nil {
		return nil, err
	}
	if sheets != nil {
		if order, err = printing.SliceSheets(order, *sheets); err != nil {
			return nil, err
		}
	}

	doc := data
	for last := n; last < padded; last++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := api.InsertPages(bytes.NewReader(doc), &buf, []string{strconv.Itoa(last)}, false, nil, p.conf); err != nil {
			return nil, NewConvertError(ErrCodeInvalidPDF, "failed to insert blank page", err)
		}
		doc = buf.Bytes()
	}

	selected := make([]string, len(order))
	for i, idx := range order {
		selected[i] = strconv.Itoa(idx + 1)
	}

	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(doc), &out, selected, p.conf); err != nil {
		return nil, NewConvertError(ErrCodeInvalidPDF, "failed to reorder pages", err)
	}

	p.logger.Debug("booklet imposed",
		zap.Int("pages", n),
		zap.Int("padded", padded),
		zap.Int("output_pages", len(order)))

	return &ImposeResult{
		Data:              out.Bytes(),
		OriginalPageCount: n,
		PaddedPageCount:   padded,
		Order:             order,
	}, nil
}

// NUp places perSheet consecutive pages on each output page of the given
// paper size, in landscape when perSheet is 2
func (p *PDFProcessor) NUp(ctx context.Context, data []byte, perSheet int, paper printing.PaperSize) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if perSheet <= 1 {
		return data, nil
	}

	form := pdfcpuForm(paper)
	if perSheet == 2 {
		form += "L"
	}
	nup, err := api.PDFNUpConfig(perSheet, fmt.Sprintf("formsize:%s, border:off", form), p.conf)
	if err != nil {
		return nil, NewConvertError(ErrCodeInvalidPDF, "invalid n-up configuration", err)
	}

	var out bytes.Buffer
	if err := api.NUp(bytes.NewReader(data), &out, nil, nil, nup, p.conf); err != nil {
		return nil, NewConvertError(ErrCodeInvalidPDF, "failed to lay out pages", err)
	}
	return out.Bytes(), nil
}

// SelectPages keeps only the selected page range. Ranges past the end of
// the document are clipped; a range starting past the end is an error.
func (p *PDFProcessor) SelectPages(ctx context.Context, data []byte, sel printing.PageSelection) ([]byte, error) {
	if sel.IsAll() {
		return data, nil
	}
	n, err := p.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}
	if sel.From > n {
		return nil, NewConvertError(ErrCodeInvalidPDF,
			fmt.Sprintf("page selection %s is outside a %d page document", sel, n), nil)
	}
	to := min(sel.To, n)

	selected := make([]string, 0, to-sel.From+1)
	for i := sel.From; i <= to; i++ {
		selected = append(selected, strconv.Itoa(i))
	}
	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(data), &out, selected, p.conf); err != nil {
		return nil, NewConvertError(ErrCodeInvalidPDF, "failed to select pages", err)
	}
	return out.Bytes(), nil
}

func pdfcpuForm(paper printing.PaperSize) string {
	switch paper {
	case printing.PaperSizeA3:
		return "A3"
	case printing.PaperSizeA5:
		return "A5"
	case printing.PaperSizeLetter:
		return "Letter"
	case printing.PaperSizeLegal:
		return "Legal"
	default:
		return "A4"
	}
}
