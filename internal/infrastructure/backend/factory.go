package backend

import (
	"fmt"
	"strings"

	"github.com/printdesk/backend/internal/infrastructure/process"
	"go.uber.org/zap"
)

// Backend variants
const (
	KindCUPS    = "cups"
	KindSpooler = "spooler"
	KindIPP     = "ipp"
)

// Config selects and configures the single active backend
type Config struct {
	Kind    string
	CUPS    CUPSConfig
	Spooler SpoolerConfig
	IPP     IPPConfig
}

// New creates the configured backend variant
func New(cfg Config, runner process.Runner, layouter DocumentLayouter, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		kind = KindCUPS
	}
	if runner == nil && kind != KindIPP {
		runner = process.NewExecRunner(process.WithLogger(logger))
	}

	switch kind {
	case KindCUPS:
		return NewCUPSAdapter(cfg.CUPS, runner, logger), nil
	case KindSpooler:
		return NewSpoolerAdapter(cfg.Spooler, runner, layouter, logger), nil
	case KindIPP:
		return NewIPPAdapter(cfg.IPP, layouter, logger), nil
	default:
		return nil, fmt.Errorf("unknown print backend %q (want cups, spooler or ipp)", cfg.Kind)
	}
}
