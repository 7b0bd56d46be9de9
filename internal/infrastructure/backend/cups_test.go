package backend

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCUPS(t *testing.T, runner *scriptedRunner) *CUPSAdapter {
	t.Helper()
	a := NewCUPSAdapter(CUPSConfig{}, runner, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestMapCUPSState(t *testing.T) {
	tests := []struct {
		native string
		want   printing.JobStatus
	}{
		{"pending", printing.JobStatusPending},
		{"pending-held", printing.JobStatusHeld},
		{"processing", printing.JobStatusProcessing},
		{"processing-stopped", printing.JobStatusHeld},
		{"canceled", printing.JobStatusCanceled},
		{"aborted", printing.JobStatusAborted},
		{"completed", printing.JobStatusCompleted},
		{" Completed ", printing.JobStatusCompleted},
		{"9", printing.JobStatusCompleted},
		{"5", printing.JobStatusProcessing},
		{"something-new", printing.JobStatusPending},
		{"", printing.JobStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			assert.Equal(t, tt.want, MapCUPSState(tt.native))
		})
	}
}

func hasOption(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestLpOptions(t *testing.T) {
	t.Run("plain duplex job", func(t *testing.T) {
		o := baseOptions()
		o.Copies = 2
		o.DuplexMode = printing.DuplexModeDouble
		o.MarginProfile = printing.MarginProfileNarrow
		o.ColorMode = printing.ColorModeGrayscale
		args := lpOptions(o)

		assert.True(t, hasOption(args, "-n", "2"))
		assert.True(t, hasOption(args, "-o", "media=iso_a4_210x297mm"))
		assert.True(t, hasOption(args, "-o", "sides=two-sided-long-edge"))
		assert.True(t, hasOption(args, "-o", "orientation-requested=3"))
		assert.True(t, hasOption(args, "-o", "print-color-mode=monochrome"))
		assert.True(t, hasOption(args, "-o", "media-top-margin=360"))
		assert.True(t, hasOption(args, "-o", "media-left-margin=360"))
		assert.NotContains(t, args, "-P")
		assert.NotContains(t, args, "fit-to-page")
		assert.False(t, hasOption(args, "-o", "number-up=2"))
	})

	t.Run("spreadsheet fits with normal margins", func(t *testing.T) {
		o := baseOptions()
		o.SourceFormat = printing.SourceFormatCSV
		o.MarginProfile = printing.MarginProfileNarrow
		args := lpOptions(o)

		assert.True(t, hasOption(args, "-o", "fit-to-page"))
		assert.True(t, hasOption(args, "-o", "media-top-margin=720"))
	})

	t.Run("page range", func(t *testing.T) {
		o := baseOptions()
		o.PageSelection = printing.PageSelection{From: 2, To: 5}
		assert.True(t, hasOption(lpOptions(o), "-P", "2-5"))
	})

	t.Run("booklet", func(t *testing.T) {
		o := baseOptions()
		o.PageLayout = printing.PageLayoutBooklet
		args := lpOptions(o)

		assert.True(t, hasOption(args, "-o", "sides=two-sided-short-edge"))
		assert.True(t, hasOption(args, "-o", "orientation-requested=4"))
		assert.True(t, hasOption(args, "-o", "number-up=2"))
		assert.True(t, hasOption(args, "-o", "number-up-layout=lrtb"))
	})
}

func TestCUPSAdapter_Submit(t *testing.T) {
	req := SubmitRequest{PrinterID: "office", JobName: "job-1", Document: []byte("%PDF"), Options: baseOptions()}

	t.Run("parses request id", func(t *testing.T) {
		r := &scriptedRunner{handler: replyWith("request id is office-42 (1 file(s))\n")}
		handle, err := newTestCUPS(t, r).Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "office-42", handle)

		require.Len(t, r.calls, 1)
		assert.Equal(t, "lp", r.calls[0].Name)
		assert.Equal(t, []byte("%PDF"), r.calls[0].Stdin)
		assert.True(t, hasOption(r.calls[0].Args, "-d", "office"))
		assert.True(t, hasOption(r.calls[0].Args, "-t", "job-1"))
	})

	t.Run("hyphenated queue name", func(t *testing.T) {
		r := &scriptedRunner{handler: replyWith("request id is hr-color-laser-7 (1 file(s))")}
		handle, err := newTestCUPS(t, r).Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "hr-color-laser-7", handle)
	})

	t.Run("malformed output", func(t *testing.T) {
		r := &scriptedRunner{handler: replyWith("lp: something odd")}
		_, err := newTestCUPS(t, r).Submit(context.Background(), req)
		requireBackendCode(t, err, ErrCodeMalformedResponse)
	})

	t.Run("unparsable handle", func(t *testing.T) {
		r := &scriptedRunner{handler: replyWith("request id is office-abc (1 file(s))")}
		_, err := newTestCUPS(t, r).Submit(context.Background(), req)
		requireBackendCode(t, err, ErrCodeInvalidHandle)
	})

	t.Run("process failure", func(t *testing.T) {
		r := &scriptedRunner{handler: failWith(&process.ExitError{Command: "lp", ExitCode: 1, Stderr: "lp: The printer or class does not exist."})}
		_, err := newTestCUPS(t, r).Submit(context.Background(), req)
		requireBackendCode(t, err, ErrCodeProcessFailed)
		assert.Contains(t, err.Error(), "does not exist")
	})
}

func TestCUPSAdapter_QueryStatus(t *testing.T) {
	t.Run("completed with counters", func(t *testing.T) {
		out := "job-state,job-state-reasons,job-impressions-completed,job-media-sheets-completed\n" +
			"completed,\"job-completed-successfully,other\",6,3\n"
		r := &scriptedRunner{handler: replyWith(out)}
		a := newTestCUPS(t, r)

		st, err := a.QueryStatus(context.Background(), "office-42")
		require.NoError(t, err)
		assert.Equal(t, printing.JobStatusCompleted, st.State)
		assert.Equal(t, "completed", st.NativeState)
		assert.Equal(t, "job-completed-successfully,other", st.Reason)
		assert.Equal(t, 6, st.PagesCompleted)
		assert.Equal(t, 3, st.SheetsCompleted)

		require.Len(t, r.calls, 1)
		args := r.calls[0].Args
		assert.Equal(t, "ipptool", r.calls[0].Name)
		assert.True(t, hasOption(args, "-d", "job-id=42"))
		assert.Contains(t, args, "ipp://localhost:631/printers/office")

		testFile := args[len(args)-1]
		content, err := os.ReadFile(testFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "Get-Job-Attributes")
	})

	t.Run("missing counters read as zero", func(t *testing.T) {
		out := "job-state,job-state-reasons,job-impressions-completed,job-media-sheets-completed\nprocessing,job-printing,,\n"
		st, err := newTestCUPS(t, &scriptedRunner{handler: replyWith(out)}).QueryStatus(context.Background(), "office-42")
		require.NoError(t, err)
		assert.Equal(t, printing.JobStatusProcessing, st.State)
		assert.Zero(t, st.PagesCompleted)
		assert.Zero(t, st.SheetsCompleted)
	})

	t.Run("no value row", func(t *testing.T) {
		out := "job-state,job-state-reasons\n"
		_, err := newTestCUPS(t, &scriptedRunner{handler: replyWith(out)}).QueryStatus(context.Background(), "office-42")
		requireBackendCode(t, err, ErrCodeMalformedResponse)
	})

	t.Run("bad handle", func(t *testing.T) {
		_, err := newTestCUPS(t, &scriptedRunner{handler: replyWith("")}).QueryStatus(context.Background(), "office")
		requireBackendCode(t, err, ErrCodeInvalidHandle)
	})

	t.Run("ipptool failure", func(t *testing.T) {
		_, err := newTestCUPS(t, &scriptedRunner{handler: failWith(errors.New("connection refused"))}).
			QueryStatus(context.Background(), "office-42")
		requireBackendCode(t, err, ErrCodeProcessFailed)
	})
}

func TestCUPSAdapter_IsDeviceReady(t *testing.T) {
	tests := []struct {
		name      string
		state     string
		accepting string
		want      bool
	}{
		{"idle and accepting", "printer office is idle.  enabled since Mon 01 Jan 2024", "office accepting requests since Mon 01 Jan 2024", true},
		{"printing and accepting", "printer office now printing office-12.  enabled since Mon", "office accepting requests since Mon", true},
		{"disabled", "printer office disabled since Mon -\n\tPaused", "office accepting requests since Mon", false},
		{"not accepting", "printer office is idle.  enabled since Mon", "office not accepting requests since Mon -\n\tRejecting Jobs", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedRunner{handler: func(cmd process.Command) (string, error) {
				if cmd.Args[0] == "-p" {
					return tt.state, nil
				}
				return tt.accepting, nil
			}}
			ready, err := newTestCUPS(t, r).IsDeviceReady(context.Background(), "office")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ready)
		})
	}

	t.Run("lpstat failure", func(t *testing.T) {
		r := &scriptedRunner{handler: failWith(&process.ExitError{Command: "lpstat", ExitCode: 1})}
		ready, err := newTestCUPS(t, r).IsDeviceReady(context.Background(), "office")
		assert.False(t, ready)
		requireBackendCode(t, err, ErrCodeProcessFailed)
	})
}

func TestCountPageLog(t *testing.T) {
	log := strings.Join([]string{
		"office alice 41 [16/Oct/2026:09:00:00 +0000] total 9 - localhost a.pdf - -",
		"office alice 42 [16/Oct/2026:10:00:00 +0000] 1 1 - localhost b.pdf - -",
		"office alice 42 [16/Oct/2026:10:00:01 +0000] 2 1 - localhost b.pdf - -",
		"lab bob 42 [16/Oct/2026:10:00:02 +0000] total 50 - localhost c.pdf - -",
		"office carol 43 [16/Oct/2026:11:00:00 +0000] total 4 - localhost d.pdf - -",
		"garbage",
	}, "\n")

	assert.Equal(t, 2, countPageLog([]byte(log), "office", 42))
	assert.Equal(t, 9, countPageLog([]byte(log), "office", 41))
	assert.Equal(t, 4, countPageLog([]byte(log), "office", 43))
	assert.Equal(t, 50, countPageLog([]byte(log), "lab", 42))
	assert.Equal(t, 0, countPageLog([]byte(log), "office", 99))
}

func TestCUPSAdapter_QueryPageHistory(t *testing.T) {
	a := newTestCUPS(t, &scriptedRunner{handler: replyWith("")})

	a.readFile = func(string) ([]byte, error) {
		return []byte("office alice 42 [16/Oct/2026:10:00:00 +0000] total 5 - localhost b.pdf - -\n"), nil
	}
	h, err := a.QueryPageHistory(context.Background(), "office-42")
	require.NoError(t, err)
	assert.Equal(t, 5, h.Sheets)

	a.readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	h, err = a.QueryPageHistory(context.Background(), "office-42")
	require.NoError(t, err)
	assert.Zero(t, h.Sheets)

	a.readFile = func(string) ([]byte, error) { return nil, os.ErrPermission }
	_, err = a.QueryPageHistory(context.Background(), "office-42")
	requireBackendCode(t, err, ErrCodeProcessFailed)
}

func TestCUPSAdapter_ListDevices(t *testing.T) {
	r := &scriptedRunner{handler: replyWith("office\nlab-color\n\n")}
	names, err := newTestCUPS(t, r).ListDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"office", "lab-color"}, names)
	assert.Equal(t, []string{"-e"}, r.calls[0].Args)
}
