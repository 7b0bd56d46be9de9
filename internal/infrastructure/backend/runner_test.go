package backend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/process"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers commands through a handler and records them
type scriptedRunner struct {
	mu      sync.Mutex
	handler func(cmd process.Command) (string, error)
	calls   []process.Command
}

func (r *scriptedRunner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	out, err := r.handler(cmd)
	return &process.Result{Stdout: []byte(out)}, err
}

func replyWith(out string) func(process.Command) (string, error) {
	return func(process.Command) (string, error) { return out, nil }
}

func failWith(err error) func(process.Command) (string, error) {
	return func(process.Command) (string, error) { return "", err }
}

func requireBackendCode(t *testing.T, err error, code string) {
	t.Helper()
	var be *BackendError
	require.True(t, errors.As(err, &be), "expected BackendError, got %v", err)
	require.Equal(t, code, be.Code)
}

func baseOptions() printing.JobOptions {
	return printing.JobOptions{
		PaperSize:     printing.PaperSizeA4,
		Copies:        1,
		ColorMode:     printing.ColorModeColor,
		DuplexMode:    printing.DuplexModeSingle,
		Orientation:   printing.OrientationUpright,
		MarginProfile: printing.MarginProfileNormal,
		PageLayout:    printing.PageLayoutStandard,
		SourceFormat:  printing.SourceFormatPDF,
	}
}

type stubLayouter struct {
	nupCalls    int
	selectCalls int
	lastSel     printing.PageSelection
}

func (s *stubLayouter) NUp(_ context.Context, data []byte, _ int, _ printing.PaperSize) ([]byte, error) {
	s.nupCalls++
	return append([]byte("nup:"), data...), nil
}

func (s *stubLayouter) SelectPages(_ context.Context, data []byte, sel printing.PageSelection) ([]byte, error) {
	s.selectCalls++
	s.lastSel = sel
	return append([]byte("sel:"), data...), nil
}
