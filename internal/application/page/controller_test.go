package page_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	airemix "github.com/alchemorsel/recipe-remix/internal/application/ai"
	"github.com/alchemorsel/recipe-remix/internal/application/page"
	recipeapp "github.com/alchemorsel/recipe-remix/internal/application/recipe"
	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type countingRecorder struct {
	mu      sync.Mutex
	fetches map[string]int
	remixes map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{fetches: map[string]int{}, remixes: map[string]int{}}
}

func (r *countingRecorder) RecipeFetch(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[outcome]++
}

func (r *countingRecorder) RecipeRemix(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remixes[outcome]++
}

type sdkSpans struct {
	tracer trace.Tracer
}

func (s sdkSpans) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, opts...)
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

func newController(source *testutils.MockRecipeSource, completer *testutils.MockChatCompleter, rec page.Recorder) *page.Controller {
	log := zap.NewNop()
	return page.NewController(
		recipeapp.NewFetcher(source, log),
		airemix.NewRemixer(completer, log),
		rec,
		nil,
	)
}

func TestController_LoadThenRemix(t *testing.T) {
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil)
	completer := new(testutils.MockChatCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("Pirate toast", nil)
	rec := newCountingRecorder()

	ctrl := newController(source, completer, rec)
	holder := recipe.NewHolder()
	ctx := context.Background()

	assert.True(t, ctrl.RemixEnabled())

	// Remix before the first load.
	display := &testutils.RecordingDisplay{}
	assert.Error(t, ctrl.RemixRecipe(ctx, holder, "pirate", display))
	assert.Equal(t, airemix.NoRecipeMessage, display.Last().Text)

	display = &testutils.RecordingDisplay{}
	assert.NoError(t, ctrl.LoadRecipe(ctx, holder, display))
	assert.Equal(t, "Toast", display.Last().Document.Title)

	display = &testutils.RecordingDisplay{}
	assert.NoError(t, ctrl.RemixRecipe(ctx, holder, "pirate", display))
	assert.Equal(t, testutils.DisplayEvent{Kind: testutils.EventRemix, Text: "Pirate toast"}, display.Last())

	assert.Equal(t, map[string]int{page.OutcomeSuccess: 1}, rec.fetches)
	assert.Equal(t, map[string]int{page.OutcomeNoRecipe: 1, page.OutcomeSuccess: 1}, rec.remixes)
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestController_RecordsFailures(t *testing.T) {
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(recipe.Recipe{}, errors.New("timeout"))
	rec := newCountingRecorder()

	ctrl := newController(source, new(testutils.MockChatCompleter), rec)
	display := &testutils.RecordingDisplay{}

	assert.Error(t, ctrl.LoadRecipe(context.Background(), recipe.NewHolder(), display))
	assert.Equal(t, recipeapp.FetchFailedMessage, display.Last().Text)
	assert.Equal(t, map[string]int{page.OutcomeFailure: 1}, rec.fetches)
}

func TestController_NilRecorder(t *testing.T) {
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil)

	ctrl := page.NewController(recipeapp.NewFetcher(source, zap.NewNop()), airemix.NewRemixer(nil, zap.NewNop()), nil, nil)

	assert.NotPanics(t, func() {
		_ = ctrl.LoadRecipe(context.Background(), recipe.NewHolder(), &testutils.RecordingDisplay{})
	})
	assert.False(t, ctrl.RemixEnabled())
}

func TestController_Spans(t *testing.T) {
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(recipe.Recipe{}, errors.New("timeout")).Once()
	completer := new(testutils.MockChatCompleter)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	log := zap.NewNop()
	ctrl := page.NewController(
		recipeapp.NewFetcher(source, log),
		airemix.NewRemixer(completer, log),
		nil,
		sdkSpans{tracer: provider.Tracer("test")},
	)
	holder := recipe.NewHolder()
	ctx := context.Background()

	_ = ctrl.LoadRecipe(ctx, holder, &testutils.RecordingDisplay{})
	_ = ctrl.RemixRecipe(ctx, holder, "pirate", &testutils.RecordingDisplay{})

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	fetch := spans[0]
	assert.Equal(t, page.SpanFetch, fetch.Name())
	assert.Equal(t, page.OutcomeFailure, spanAttr(fetch, "page.outcome"))
	assert.Equal(t, codes.Error, fetch.Status().Code)
	assert.Len(t, fetch.Events(), 1)

	remix := spans[1]
	assert.Equal(t, page.SpanRemix, remix.Name())
	assert.Equal(t, "pirate", spanAttr(remix, "remix.theme"))
	assert.Equal(t, page.OutcomeNoRecipe, spanAttr(remix, "page.outcome"))
	assert.Equal(t, codes.Unset, remix.Status().Code)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
