package printing

import (
	"context"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentConversions = 2

// ConversionRecorder observes finished conversions
type ConversionRecorder interface {
	RecordConversion(ctx context.Context, format string, duration time.Duration, err error)
}

// RoutingConverter dispatches each source format to the first converter that
// supports it and bounds how many conversions run at once
type RoutingConverter struct {
	converters []DocumentConverter
	sem        *semaphore.Weighted
	recorder   ConversionRecorder
	logger     *zap.Logger
}

// RoutingOption configures a RoutingConverter
type RoutingOption func(*RoutingConverter)

// WithMaxConcurrent sets the conversion concurrency bound
func WithMaxConcurrent(n int) RoutingOption {
	return func(r *RoutingConverter) {
		if n > 0 {
			r.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRecorder sets the conversion recorder
func WithRecorder(rec ConversionRecorder) RoutingOption {
	return func(r *RoutingConverter) {
		r.recorder = rec
	}
}

// WithRoutingLogger sets the logger
func WithRoutingLogger(logger *zap.Logger) RoutingOption {
	return func(r *RoutingConverter) {
		r.logger = logger
	}
}

// NewRoutingConverter creates a router over converters, tried in order
func NewRoutingConverter(converters []DocumentConverter, opts ...RoutingOption) *RoutingConverter {
	r := &RoutingConverter{
		converters: converters,
		sem:        semaphore.NewWeighted(defaultMaxConcurrentConversions),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether any converter handles format. PDF passes through.
func (r *RoutingConverter) Supports(format printing.SourceFormat) bool {
	if format.IsPaged() {
		return true
	}
	return r.route(format) != nil
}

// Convert returns PDF input unchanged and routes everything else
func (r *RoutingConverter) Convert(ctx context.Context, data []byte, format printing.SourceFormat) ([]byte, error) {
	if format.IsPaged() {
		return data, nil
	}

	conv := r.route(format)
	if conv == nil {
		return nil, NewConvertError(ErrCodeUnsupportedFormat, "no converter for format: "+string(format), nil)
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, NewConvertError(ErrCodeConversionTimeout, "gave up waiting for a conversion slot", err)
	}
	defer r.sem.Release(1)

	start := time.Now()
	out, err := conv.Convert(ctx, data, format)
	if r.recorder != nil {
		r.recorder.RecordConversion(ctx, string(format), time.Since(start), err)
	}
	if err != nil {
		r.logger.Warn("conversion failed",
			zap.String("format", string(format)),
			zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *RoutingConverter) route(format printing.SourceFormat) DocumentConverter {
	for _, c := range r.converters {
		if c.Supports(format) {
			return c
		}
	}
	return nil
}

// Close closes every underlying converter and returns the first error
func (r *RoutingConverter) Close() error {
	var first error
	for _, c := range r.converters {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ DocumentConverter = (*RoutingConverter)(nil)
