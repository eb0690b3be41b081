package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	jobTracer      = otel.Tracer("saldo/scheduler")
	jobMeter       = otel.Meter("saldo/scheduler")
	jobDuration, _ = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _    = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
)

// Job is a unit of background work run by the Scheduler.
type Job interface {
	// Execute runs the job. Implementations must respect ctx cancellation.
	Execute(ctx context.Context) error

	// Description is used for logging and span attributes.
	Description() string
}

// runJob executes job under a timeout with logging and telemetry. Failures
// end here: they are logged and recorded on the span.
func runJob(ctx context.Context, job Job, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(attribute.String("job.description", job.Description())),
	)
	defer span.End()

	start := time.Now()
	err := job.Execute(ctx)
	jobDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		logger.Error().Err(err).Str("job", job.Description()).Dur("took", time.Since(start)).Msg("job failed")
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	logger.Info().Str("job", job.Description()).Dur("took", time.Since(start)).Msg("job completed")
}
