package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/avro"
	"github.com/Sokol111/avropipe/pkg/core/logger"
	"github.com/Sokol111/avropipe/pkg/observability"
	"github.com/Sokol111/avropipe/pkg/target"
)

const tracerName = "github.com/Sokol111/avropipe/pkg/source/mongo"

// Stats summarises an export.
type Stats struct {
	Exported int64
	Skipped  int64
}

// Exporter copies documents into an avro container.
//
// Documents that cannot be represented, or that do not match the bound
// schema, are skipped with a throttled warning. Fields absent from the
// bound schema are dropped.
type Exporter struct {
	source    DocumentSource
	format    *avro.Format
	out       *target.LocalTarget
	log       *zap.Logger
	throttler *logger.LogThrottler
	tracer    trace.Tracer
}

func NewExporter(source DocumentSource, format *avro.Format, out *target.LocalTarget, log *zap.Logger) *Exporter {
	return &Exporter{
		source:    source,
		format:    format,
		out:       out,
		log:       log,
		throttler: logger.NewLogThrottler(log, logger.DefaultThrottleInterval),
		tracer:    otel.Tracer(tracerName),
	}
}

// Run exports into the output target. The target only appears when every
// document was processed.
func (e *Exporter) Run(ctx context.Context) error {
	w, file, err := e.out.CreateWriter(e.format)
	if err != nil {
		return err
	}

	stats, err := e.Export(ctx, w)
	if err != nil {
		return errors.Join(err, file.Discard())
	}
	if err := w.Close(); err != nil {
		return err
	}

	e.log.Info("export finished",
		zap.String("output", e.out.Path()),
		zap.Int64("exported", stats.Exported),
		zap.Int64("skipped", stats.Skipped),
	)
	return nil
}

// Export writes every document of the source to w. It does not close w.
func (e *Exporter) Export(ctx context.Context, w *avro.Writer) (stats Stats, err error) {
	ctx, span := e.tracer.Start(ctx, "mongo.export")
	defer func() {
		span.SetAttributes(
			attribute.Int64("avropipe.records.exported", stats.Exported),
			attribute.Int64("avropipe.records.skipped", stats.Skipped),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	cur, err := e.source.Documents(ctx)
	if err != nil {
		return stats, err
	}
	defer func() {
		if closeErr := cur.Close(context.WithoutCancel(ctx)); closeErr != nil {
			e.log.Warn("failed to close cursor", zap.Error(closeErr))
		}
	}()

	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return stats, fmt.Errorf("failed to decode document: %w", err)
		}

		written, err := e.exportDocument(ctx, w, doc)
		if err != nil {
			return stats, err
		}
		if written {
			stats.Exported++
		} else {
			stats.Skipped++
		}
	}
	if err := cur.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return stats, nil
}

func (e *Exporter) exportDocument(ctx context.Context, w *avro.Writer, doc bson.D) (bool, error) {
	fields := append(observability.TraceFields(ctx), zap.String("id", documentID(doc)))

	rec, err := DocumentToRecord(doc)
	if err != nil {
		e.throttler.Warn("unsupported", "skipping document", append(fields, zap.Error(err))...)
		return false, nil
	}

	if schema := w.Schema(); schema != nil {
		projected, dropped := schema.Project(rec)
		if len(dropped) > 0 {
			e.throttler.Warn("dropped-fields", "dropping fields missing from schema", append(fields, zap.Strings("fields", dropped))...)
		}
		rec = projected
	}

	err = w.Write(rec)
	if errors.Is(err, avro.ErrSchemaMismatch) || errors.Is(err, avro.ErrSchemaInference) {
		e.throttler.Warn("mismatch", "skipping document", append(fields, zap.Error(err))...)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
