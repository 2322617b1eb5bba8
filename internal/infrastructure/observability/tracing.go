package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "vidflow/video-api"

// GetTracer returns the tracer for the video-api service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTranscodeResultSpan starts a span for one transcoder result pulled from the queue.
func StartTranscodeResultSpan(ctx context.Context, messageID, sessionKey string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "transcode.result",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.message.id", messageID),
			attribute.String("upload.key", sessionKey),
		),
	)
}

// StartSweepSpan starts a span for one expiry sweep.
func StartSweepSpan(ctx context.Context, batch int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "upload.expiry_sweep",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("sweep.batch", batch)),
	)
}

// EndSpan records err, if any, and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
