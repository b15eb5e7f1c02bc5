package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

const tracerName = "github.com/stellarlinkco/nutrisnap/internal/analysis"

type traced struct {
	next   Provider
	name   string
	tracer trace.Tracer
}

// Traced wraps p so every call records an "analysis.analyze" span. A nil
// tracer uses the global provider.
func Traced(p Provider, name string, tracer trace.Tracer) Provider {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &traced{next: p, name: name, tracer: tracer}
}

func (t *traced) Analyze(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error) {
	ctx, span := t.tracer.Start(ctx, "analysis.analyze", trace.WithAttributes(
		attribute.String("analysis.provider", t.name),
		attribute.String("image.mime_type", img.mimeType()),
		attribute.Int("image.bytes", len(img.Data)),
	))
	defer span.End()

	a, err := t.next.Analyze(ctx, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return a, err
	}
	span.SetAttributes(
		attribute.Int("analysis.food_items", len(a.FoodItems)),
		attribute.Float64("analysis.total_calories", a.TotalCalories),
	)
	return a, nil
}

type timeout struct {
	next Provider
	d    time.Duration
}

// WithTimeout bounds each call of p by d.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeout{next: p, d: d}
}

func (t *timeout) Analyze(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Analyze(ctx, img)
}
