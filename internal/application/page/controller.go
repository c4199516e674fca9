// Package page wires the recipe page's triggers to the fetch and remix operations
package page

import (
	"context"

	airemix "github.com/alchemorsel/recipe-remix/internal/application/ai"
	recipeapp "github.com/alchemorsel/recipe-remix/internal/application/recipe"
	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/ports/inbound"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Span names opened for each page operation
const (
	SpanFetch = "recipe.fetch"
	SpanRemix = "recipe.remix"
)

// Outcome labels passed to the Recorder
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeStale    = "stale"
	OutcomeNoRecipe = "no_recipe"
)

// Recorder receives the outcome of every page operation
type Recorder interface {
	RecipeFetch(outcome string)
	RecipeRemix(outcome string)
}

// SpanStarter opens a tracing span for an operation
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

var _ inbound.PageService = (*Controller)(nil)

// Controller implements the page use cases
type Controller struct {
	fetcher  *recipeapp.Fetcher
	remixer  *airemix.Remixer
	recorder Recorder
	tracer   SpanStarter
}

// NewController creates a new page controller. recorder and tracer may be nil.
func NewController(fetcher *recipeapp.Fetcher, remixer *airemix.Remixer, recorder Recorder, tracer SpanStarter) *Controller {
	return &Controller{
		fetcher:  fetcher,
		remixer:  remixer,
		recorder: recorder,
		tracer:   tracer,
	}
}

// LoadRecipe handles the "random recipe" trigger and the initial page load
func (c *Controller) LoadRecipe(ctx context.Context, holder *recipe.Holder, display outbound.Display) error {
	ctx, span := c.startSpan(ctx, SpanFetch)
	defer span.End()

	err := c.fetcher.FetchAndDisplay(ctx, holder, display)
	outcome := fetchOutcome(err)
	if c.recorder != nil {
		c.recorder.RecipeFetch(outcome)
	}
	finishSpan(span, outcome, err)
	return err
}

// RemixRecipe handles the "remix" trigger
func (c *Controller) RemixRecipe(ctx context.Context, holder *recipe.Holder, theme string, display outbound.Display) error {
	ctx, span := c.startSpan(ctx, SpanRemix, attribute.String("remix.theme", theme))
	defer span.End()

	err := c.remixer.RemixAndDisplay(ctx, holder, theme, display)
	outcome := remixOutcome(err)
	if c.recorder != nil {
		c.recorder.RecipeRemix(outcome)
	}
	finishSpan(span, outcome, err)
	return err
}

// RemixEnabled reports whether remixing is configured
func (c *Controller) RemixEnabled() bool {
	return c.remixer.Enabled()
}

func (c *Controller) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, tracenoop.Span{}
	}
	return c.tracer.StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// finishSpan tags the span with the outcome. Stale fetches and missing
// recipes are expected and leave the span status unset.
func finishSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("page.outcome", outcome))
	if outcome == OutcomeFailure && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case recipeapp.IsStale(err):
		return OutcomeStale
	default:
		return OutcomeFailure
	}
}

func remixOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case apperrors.Is(err, apperrors.CodeNoCurrentRecipe):
		return OutcomeNoRecipe
	default:
		return OutcomeFailure
	}
}
