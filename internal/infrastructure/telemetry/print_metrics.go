package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// PrintMetrics records the print pipeline's instruments
type PrintMetrics struct {
	jobsSubmitted      *Counter
	jobsFinished       *Counter
	pagesPrinted       *Counter
	pageCountFallbacks *Counter
	activePolls        *UpDownCounter
	readyDevices       *Gauge
	conversionDuration *Histogram
	conversionFailures *Counter
	jobDuration        *Histogram
}

// NewPrintMetrics creates the print instruments on meter
func NewPrintMetrics(meter metric.Meter) (*PrintMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		pm  PrintMetrics
		err error
	)
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&pm.jobsSubmitted, "print_jobs_submitted_total", "Jobs accepted for printing", "{jobs}"},
		{&pm.jobsFinished, "print_jobs_finished_total", "Jobs that reached a terminal status", "{jobs}"},
		{&pm.pagesPrinted, "print_pages_printed_total", "Pages reported printed on completed jobs", "{pages}"},
		{&pm.pageCountFallbacks, "print_page_count_source_total", "Which source supplied the printed page count", "{jobs}"},
		{&pm.conversionFailures, "print_conversion_failures_total", "Document conversions that failed", "{conversions}"},
	}
	for _, c := range counters {
		if *c.dst, err = NewCounter(meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	if pm.activePolls, err = NewUpDownCounter(meter, "print_status_polls_active",
		"Jobs whose backend status is being polled", "{jobs}"); err != nil {
		return nil, err
	}
	if pm.readyDevices, err = NewGauge(meter, "print_devices_ready",
		"Devices that passed the last readiness check", "{devices}"); err != nil {
		return nil, err
	}
	if pm.conversionDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "print_conversion_duration_seconds",
		Description: "Time spent converting source documents to PDF",
		Unit:        "s",
		Boundaries:  ConversionDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.jobDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "print_job_duration_seconds",
		Description: "Time from submission to terminal status",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return &pm, nil
}

// RecordConversion observes one finished conversion
func (pm *PrintMetrics) RecordConversion(ctx context.Context, format string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		pm.conversionFailures.Inc(ctx, AttrSourceFormat.String(format))
	}
	pm.conversionDuration.RecordDuration(ctx, duration,
		AttrSourceFormat.String(format),
		AttrOutcome.String(outcome))
}

// RecordJobSubmitted counts a job that was accepted
func (pm *PrintMetrics) RecordJobSubmitted(ctx context.Context, printer, sourceFormat, layout string) {
	pm.jobsSubmitted.Inc(ctx,
		AttrPrinter.String(printer),
		AttrSourceFormat.String(sourceFormat),
		AttrPageLayout.String(layout))
}

// RecordJobFinished counts a terminal job and its total duration
func (pm *PrintMetrics) RecordJobFinished(ctx context.Context, printer, status string, elapsed time.Duration) {
	pm.jobsFinished.Inc(ctx, AttrPrinter.String(printer), AttrStatus.String(status))
	if elapsed > 0 {
		pm.jobDuration.RecordDuration(ctx, elapsed, AttrPrinter.String(printer), AttrStatus.String(status))
	}
}

// RecordPagesPrinted counts printed pages and notes which source supplied the number
func (pm *PrintMetrics) RecordPagesPrinted(ctx context.Context, printer, source string, pages int) {
	pm.pageCountFallbacks.Inc(ctx, AttrPrinter.String(printer), AttrSource.String(source))
	if pages > 0 {
		pm.pagesPrinted.Add(ctx, int64(pages), AttrPrinter.String(printer))
	}
}

// PollStarted marks a job as being polled
func (pm *PrintMetrics) PollStarted(ctx context.Context, backend string) {
	pm.activePolls.Add(ctx, 1, AttrBackend.String(backend))
}

// PollStopped marks a job as no longer polled
func (pm *PrintMetrics) PollStopped(ctx context.Context, backend string) {
	pm.activePolls.Add(ctx, -1, AttrBackend.String(backend))
}

// RecordReadyDevices records how many devices passed a readiness check
func (pm *PrintMetrics) RecordReadyDevices(ctx context.Context, ready int) {
	pm.readyDevices.Record(ctx, int64(ready))
}
