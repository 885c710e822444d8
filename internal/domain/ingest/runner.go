package ingest

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/finance-ingest/internal/domain/categorize"
	"github.com/FACorreiaa/finance-ingest/internal/domain/source"
	"github.com/FACorreiaa/finance-ingest/pkg/observability"
)

// minInterval is the floor on the cycle period so a misconfigured
// refresh interval cannot hammer the upstream sources.
const minInterval = 60 * time.Second

// Runner drives the periodic pipeline: fetch every source, ingest what
// they produced, then run the categorization cascade.
type Runner struct {
	sources     []source.Source
	ingest      *Service
	categorizer *categorize.Service
	interval    time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewRunner(sources []source.Source, ingest *Service, categorizer *categorize.Service, interval time.Duration, logger *slog.Logger) *Runner {
	if interval < minInterval {
		interval = minInterval
	}
	return &Runner{
		sources:     sources,
		ingest:      ingest,
		categorizer: categorizer,
		interval:    interval,
		logger:      logger,
		tracer:      otel.Tracer("finance-ingest/pipeline"),
	}
}

// Run executes one cycle immediately, then on every tick until the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.Cycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("pipeline runner stopped")
			return
		case <-ticker.C:
			r.Cycle(ctx)
		}
	}
}

// Cycle runs one full pass. A failing source is logged and skipped for
// this cycle; it does not block the other sources or the categorizer.
func (r *Runner) Cycle(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "pipeline.cycle")
	defer span.End()

	start := time.Now()
	totalInserted := 0

	for _, src := range r.sources {
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, ctx.Err().Error())
			return
		}

		outcome, err := r.fetchAndIngest(ctx, src)
		if err != nil {
			observability.SourceErrors.WithLabelValues(src.Tag()).Inc()
			r.logger.Error("source failed this cycle",
				slog.String("source", src.Tag()), slog.Any("error", err))
			continue
		}
		totalInserted += outcome.Inserted
	}

	ruleUpdates, aiUpdates, err := r.categorizer.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("categorization failed this cycle", slog.Any("error", err))
	} else {
		span.SetStatus(codes.Ok, "ok")
	}

	elapsed := time.Since(start)
	observability.CycleDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("pipeline.inserted", totalInserted),
		attribute.Int("pipeline.rule_updates", ruleUpdates),
		attribute.Int("pipeline.model_updates", aiUpdates),
	)

	r.logger.Info("cycle complete",
		slog.Int("inserted", totalInserted),
		slog.Int("rule_updates", ruleUpdates),
		slog.Int("model_updates", aiUpdates),
		slog.Duration("elapsed", elapsed))
}

func (r *Runner) fetchAndIngest(ctx context.Context, src source.Source) (Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.source",
		trace.WithAttributes(attribute.String("source.tag", src.Tag())))
	defer span.End()

	candidates, err := src.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	outcome, err := r.ingest.Ingest(ctx, src.Tag(), candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome, err
	}
	span.SetStatus(codes.Ok, "ok")
	return outcome, nil
}
