package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	defaultHTMLMarginMM  = 10
)

// ChromedpConfig contains configuration for the HTML converter
type ChromedpConfig struct {
	// Timeout for a single conversion
	Timeout time.Duration
	// RemoteURL of a running Chrome instance; empty launches a local browser
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// PaperSize used for the rendered pages (default: A4)
	PaperSize printing.PaperSize
	// MarginMM applied on every side (default: 10)
	MarginMM int
	Logger   *zap.Logger
}

// ChromedpConverter renders HTML documents to PDF through headless Chrome
type ChromedpConverter struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpConverter creates the converter and its browser allocator
func NewChromedpConverter(config *ChromedpConfig) *ChromedpConverter {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.Timeout == 0 {
		config.Timeout = defaultChromeTimeout
	}
	if !config.PaperSize.IsValid() {
		config.PaperSize = printing.PaperSizeA4
	}
	if config.MarginMM <= 0 {
		config.MarginMM = defaultHTMLMarginMM
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ChromedpConverter{
		config: config,
		logger: logger,
	}
	c.initAllocator()
	return c
}

func (c *ChromedpConverter) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if c.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	if c.config.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.config.RemoteURL)
	} else {
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// Supports reports HTML only
func (c *ChromedpConverter) Supports(format printing.SourceFormat) bool {
	return format.IsHTML()
}

// Convert loads the markup into a blank page and prints it to PDF
func (c *ChromedpConverter) Convert(ctx context.Context, data []byte, format printing.SourceFormat) ([]byte, error) {
	if !c.Supports(format) {
		return nil, NewConvertError(ErrCodeUnsupportedFormat, "unsupported source format: "+string(format), nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewConvertError(ErrCodeConversionFailed, "HTML content is empty", nil)
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			c.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// chromedp contexts don't inherit the caller's deadline
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	html := wrapHTML(string(data))
	params := c.buildPrintParams()

	var pdfData []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(params.paperWidth).
				WithPaperHeight(params.paperHeight).
				WithMarginTop(params.margin).
				WithMarginRight(params.margin).
				WithMarginBottom(params.margin).
				WithMarginLeft(params.margin).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = out
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewConvertError(ErrCodeConversionTimeout,
				fmt.Sprintf("HTML conversion timed out after %v", c.config.Timeout), err)
		}
		c.logger.Error("chromedp conversion failed", zap.Error(err))
		return nil, NewConvertError(ErrCodeConversionFailed, "chromedp execution failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewConvertError(ErrCodeEmptyOutput, "generated PDF is empty", nil)
	}

	c.logger.Info("HTML converted",
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(startTime)))

	return pdfData, nil
}

type printParams struct {
	paperWidth  float64
	paperHeight float64
	margin      float64
}

// buildPrintParams converts the configured paper to Chrome's inch units
func (c *ChromedpConverter) buildPrintParams() printParams {
	width, height := c.config.PaperSize.Dimensions()
	return printParams{
		paperWidth:  mmToInches(float64(width)),
		paperHeight: mmToInches(float64(height)),
		margin:      mmToInches(float64(c.config.MarginMM)),
	}
}

// wrapHTML adds a document shell to fragments
func wrapHTML(html string) string {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return html
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head>")
	buf.WriteString("<meta charset=\"UTF-8\">")
	buf.WriteString("</head><body>")
	buf.WriteString(html)
	buf.WriteString("</body></html>")
	return buf.String()
}

// Close releases the browser allocator
func (c *ChromedpConverter) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

var _ DocumentConverter = (*ChromedpConverter)(nil)
