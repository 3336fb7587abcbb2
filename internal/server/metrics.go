package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type serverMetrics struct {
	requests    metric.Int64Counter
	chunks      metric.Int64Counter
	errorFrames metric.Int64Counter
	duration    metric.Float64Histogram
}

func newServerMetrics() (*serverMetrics, error) {
	meter := otel.Meter("github.com/voxpipe/voxpipe/server")

	requests, err := meter.Int64Counter("voxpipe.requests",
		metric.WithDescription("Requests read from the IPC endpoint"))
	if err != nil {
		return nil, err
	}
	chunks, err := meter.Int64Counter("voxpipe.audio_chunks",
		metric.WithDescription("Audio frames written to clients"))
	if err != nil {
		return nil, err
	}
	errorFrames, err := meter.Int64Counter("voxpipe.error_frames",
		metric.WithDescription("Error frames written to clients"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("voxpipe.request_duration_seconds",
		metric.WithDescription("Wall time per connection"))
	if err != nil {
		return nil, err
	}

	return &serverMetrics{
		requests:    requests,
		chunks:      chunks,
		errorFrames: errorFrames,
		duration:    duration,
	}, nil
}

func (m *serverMetrics) recordRequest(ctx context.Context) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1)
}

func (m *serverMetrics) recordChunks(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.chunks.Add(ctx, int64(n))
}

func (m *serverMetrics) recordErrorFrame(ctx context.Context, code uint32) {
	if m == nil {
		return
	}
	m.errorFrames.Add(ctx, 1, metric.WithAttributes(attribute.Int("code", int(code))))
}

func (m *serverMetrics) recordDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, seconds)
}
