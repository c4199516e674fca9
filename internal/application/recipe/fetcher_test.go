package recipe_test

import (
	"context"
	"errors"
	"testing"

	recipeapp "github.com/alchemorsel/recipe-remix/internal/application/recipe"
	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"github.com/alchemorsel/recipe-remix/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFetcher_Success(t *testing.T) {
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(testutils.Toast(), nil).Once()

	holder := recipe.NewHolder()
	display := &testutils.RecordingDisplay{}
	fetcher := recipeapp.NewFetcher(source, zap.NewNop())

	err := fetcher.FetchAndDisplay(context.Background(), holder, display)
	require.NoError(t, err)

	events := display.Events()
	require.Len(t, events, 2)
	assert.Equal(t, testutils.EventMessage, events[0].Kind)
	assert.Equal(t, recipeapp.LoadingMessage, events[0].Text)
	assert.Equal(t, testutils.EventRecipe, events[1].Kind)
	assert.Equal(t, []string{"2 slices Bread"}, events[1].Document.Ingredients)
	assert.Equal(t, []string{"Step1", "Step2"}, events[1].Document.InstructionLines)

	current, ok := holder.Current()
	assert.True(t, ok)
	assert.Equal(t, "Toast", current.Name)
	source.AssertExpectations(t)
}

func TestFetcher_FailureShowsFallback(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(recipe.Recipe{}, errors.New("connection refused")).Once()

	holder := recipe.NewHolder()
	display := &testutils.RecordingDisplay{}
	fetcher := recipeapp.NewFetcher(source, zap.New(core))

	err := fetcher.FetchAndDisplay(context.Background(), holder, display)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeRecipeUnavailable))
	assert.Equal(t, testutils.DisplayEvent{Kind: testutils.EventMessage, Text: recipeapp.FetchFailedMessage}, display.Last())
	assert.Equal(t, 1, logs.Len())

	_, ok := holder.Current()
	assert.False(t, ok, "failed fetch must not set a current recipe")
	source.AssertNumberOfCalls(t, "RandomRecipe", 1)
}

func TestFetcher_FailureKeepsPreviousRecipe(t *testing.T) {
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).Return(recipe.Recipe{}, errors.New("boom")).Once()

	holder := recipe.NewHolder()
	holder.Replace(holder.Begin(), testutils.Toast())
	fetcher := recipeapp.NewFetcher(source, zap.NewNop())

	_ = fetcher.FetchAndDisplay(context.Background(), holder, &testutils.RecordingDisplay{})

	current, ok := holder.Current()
	assert.True(t, ok)
	assert.Equal(t, "Toast", current.Name)
}

func TestFetcher_StaleResponseIsDiscarded(t *testing.T) {
	holder := recipe.NewHolder()
	newer := recipe.Recipe{Name: "Newer"}

	// The source completes a second fetch while the first is still in flight.
	source := new(testutils.MockRecipeSource)
	source.On("RandomRecipe", mock.Anything).
		Run(func(mock.Arguments) {
			holder.Replace(holder.Begin(), newer)
		}).
		Return(recipe.Recipe{Name: "Older"}, nil).Once()

	display := &testutils.RecordingDisplay{}
	fetcher := recipeapp.NewFetcher(source, zap.NewNop())

	err := fetcher.FetchAndDisplay(context.Background(), holder, display)

	assert.True(t, recipeapp.IsStale(err))
	current, _ := holder.Current()
	assert.Equal(t, "Newer", current.Name)
	assert.Equal(t, testutils.EventRecipe, display.Last().Kind)
	assert.Equal(t, "Newer", display.Last().Document.Title)
}
