package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/process"
	"go.uber.org/zap"
)

const (
	defaultSofficeBinary  = "soffice"
	defaultSofficeTimeout = 120 * time.Second
)

var pdfMagic = []byte("%PDF-")

// LibreOfficeConfig contains configuration for the office converter
type LibreOfficeConfig struct {
	// BinaryPath is the soffice executable (default: soffice on PATH)
	BinaryPath string
	// Timeout for a single conversion (default: 120s)
	Timeout time.Duration
	// TempDir is where working directories are created (default: os.TempDir)
	TempDir string
	// Runner executes soffice; defaults to an ExecRunner
	Runner process.Runner
	// Logger for debug output
	Logger *zap.Logger
}

// LibreOfficeConverter converts office documents, text and images through
// a headless soffice subprocess
type LibreOfficeConverter struct {
	config *LibreOfficeConfig
	binary string
	runner process.Runner
	logger *zap.Logger
}

// NewLibreOfficeConverter creates a converter. The soffice binary must be resolvable.
func NewLibreOfficeConverter(config *LibreOfficeConfig) (*LibreOfficeConverter, error) {
	if config == nil {
		config = &LibreOfficeConfig{}
	}
	if config.BinaryPath == "" {
		config.BinaryPath = defaultSofficeBinary
	}
	if config.Timeout == 0 {
		config.Timeout = defaultSofficeTimeout
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	binary := config.BinaryPath
	runner := config.Runner
	if runner == nil {
		resolved, err := process.ResolveBinaryPath(config.BinaryPath)
		if err != nil {
			return nil, NewConvertError(ErrCodeBinaryNotFound,
				fmt.Sprintf("soffice not found at %s", config.BinaryPath), err)
		}
		binary = resolved
		runner = process.NewExecRunner(process.WithLogger(logger))
	}

	return &LibreOfficeConverter{
		config: config,
		binary: binary,
		runner: runner,
		logger: logger,
	}, nil
}

// Supports reports every format except PDF and HTML
func (c *LibreOfficeConverter) Supports(format printing.SourceFormat) bool {
	return format.IsValid() && !format.IsPaged() && !format.IsHTML()
}

// Convert writes data to a scratch directory, runs soffice and reads back the PDF
func (c *LibreOfficeConverter) Convert(ctx context.Context, data []byte, format printing.SourceFormat) ([]byte, error) {
	if !c.Supports(format) {
		return nil, NewConvertError(ErrCodeUnsupportedFormat, "unsupported source format: "+string(format), nil)
	}
	if len(data) == 0 {
		return nil, NewConvertError(ErrCodeConversionFailed, "source document is empty", nil)
	}

	workDir, err := os.MkdirTemp(c.config.TempDir, "convert-*")
	if err != nil {
		return nil, NewConvertError(ErrCodeConversionFailed, "failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "source"+format.Extension())
	if err := os.WriteFile(inputPath, data, 0600); err != nil {
		return nil, NewConvertError(ErrCodeConversionFailed, "failed to write source document", err)
	}

	startTime := time.Now()
	_, err = c.runner.Run(ctx, process.Command{
		Name:    c.binary,
		Args:    c.buildArgs(workDir, inputPath),
		Dir:     workDir,
		Timeout: c.config.Timeout,
	})
	if err != nil {
		if errors.Is(err, process.ErrTimeout) {
			return nil, NewConvertError(ErrCodeConversionTimeout,
				fmt.Sprintf("conversion timed out after %v", c.config.Timeout), err)
		}
		c.logger.Error("soffice conversion failed",
			zap.String("format", string(format)),
			zap.Error(err))
		return nil, NewConvertError(ErrCodeConversionFailed, "soffice execution failed", err)
	}

	pdfData, err := os.ReadFile(filepath.Join(workDir, "source.pdf"))
	if err != nil {
		return nil, NewConvertError(ErrCodeEmptyOutput, "soffice produced no output", err)
	}
	if len(pdfData) == 0 || !bytes.HasPrefix(pdfData, pdfMagic) {
		return nil, NewConvertError(ErrCodeEmptyOutput, "soffice output is not a PDF", nil)
	}

	c.logger.Info("document converted",
		zap.String("format", string(format)),
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(startTime)))

	return pdfData, nil
}

// buildArgs constructs the soffice command line. Each conversion gets its own
// user profile so concurrent runs do not contend for the profile lock.
func (c *LibreOfficeConverter) buildArgs(workDir, inputPath string) []string {
	profile := "file://" + filepath.ToSlash(filepath.Join(workDir, "profile"))
	return []string{
		"--headless",
		"--norestore",
		"--nolockcheck",
		"--nodefault",
		"-env:UserInstallation=" + profile,
		"--convert-to", "pdf",
		"--outdir", workDir,
		inputPath,
	}
}

// Close is a no-op; soffice runs per conversion
func (c *LibreOfficeConverter) Close() error {
	return nil
}

var _ DocumentConverter = (*LibreOfficeConverter)(nil)
