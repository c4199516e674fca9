// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
)

// PageService defines the use cases triggered from the recipe page.
// Failures are already shown on the display when an error is returned; the
// error is only for logging and metrics.
type PageService interface {
	// LoadRecipe fetches a random recipe, stores it in holder and renders it
	LoadRecipe(ctx context.Context, holder *recipe.Holder, display outbound.Display) error

	// RemixRecipe remixes the held recipe with the given theme
	RemixRecipe(ctx context.Context, holder *recipe.Holder, theme string, display outbound.Display) error

	// RemixEnabled reports whether a chat completion provider is configured
	RemixEnabled() bool
}
