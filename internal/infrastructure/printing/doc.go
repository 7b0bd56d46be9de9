// Package printing provides the document side of the print pipeline:
// source conversion to PDF, page-level PDF operations and document storage.
//
// This package contains:
// - DocumentConverter with LibreOffice, chromedp and routing implementations
// - PDFProcessor for page counting, booklet imposition and n-up layout
// - DocumentStore with a file system implementation
// - DeviceCatalog implementations backed by config, YAML or live discovery
//
// Example usage:
//
//	office, err := NewLibreOfficeConverter(&LibreOfficeConfig{Timeout: time.Minute})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	conv := NewRoutingConverter([]DocumentConverter{office, NewChromedpConverter(nil)},
//	    WithMaxConcurrent(2))
//
//	pdf, err := conv.Convert(ctx, data, printing.SourceFormatDOCX)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	booklet, err := NewPDFProcessor(logger).ImposeBooklet(ctx, pdf, nil)
package printing
