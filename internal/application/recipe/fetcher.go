// Package recipe provides the application layer for loading recipes onto the page
package recipe

import (
	"context"
	"errors"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"go.uber.org/zap"
)

// Messages shown in the display region while loading
const (
	LoadingMessage     = "Loading..."
	FetchFailedMessage = "Sorry, couldn't load a recipe."
)

// Fetcher loads a random recipe, stores it as the page's current recipe and
// renders it
type Fetcher struct {
	source outbound.RecipeSource
	logger *zap.Logger
}

// NewFetcher creates a new recipe fetcher
func NewFetcher(source outbound.RecipeSource, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		logger: logger.Named("recipe-fetcher"),
	}
}

// FetchAndDisplay performs one random recipe lookup.
//
// The display shows the loading message first, then either the rendered
// recipe or the fallback message. Errors are returned for observability only;
// by the time they are returned the display already reflects them.
func (f *Fetcher) FetchAndDisplay(ctx context.Context, holder *recipe.Holder, display outbound.Display) error {
	display.ShowMessage(LoadingMessage)
	ticket := holder.Begin()

	r, err := f.source.RandomRecipe(ctx)
	if err != nil {
		f.logger.Error("Failed to load random recipe", zap.Error(err))
		display.ShowMessage(FetchFailedMessage)
		return apperrors.NewRecipeUnavailableError(err)
	}

	if !holder.Replace(ticket, r) {
		current, _ := holder.Current()
		f.logger.Debug("Discarding stale recipe",
			zap.Uint64("ticket", ticket),
			zap.String("discarded", r.Name),
			zap.String("current", current.Name),
		)
		display.ShowRecipe(recipe.Render(current))
		return recipe.ErrStaleFetch
	}

	f.logger.Info("Recipe loaded",
		zap.String("id", r.ID),
		zap.String("name", r.Name),
	)
	display.ShowRecipe(recipe.Render(r))
	return nil
}

// IsStale reports whether err came from a superseded fetch
func IsStale(err error) bool {
	return errors.Is(err, recipe.ErrStaleFetch)
}
