// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"

	"github.com/alchemorsel/recipe-remix/internal/domain/ai"
	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
)

// RecipeSource defines the interface for the random recipe catalogue
type RecipeSource interface {
	// RandomRecipe returns the first meal of one random lookup
	RandomRecipe(ctx context.Context) (recipe.Recipe, error)
}

// ChatCompleter defines the interface for a chat completion provider
type ChatCompleter interface {
	// Complete returns the text of the first completion choice
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is a provider independent chat completion request
type ChatRequest struct {
	Messages    []ai.Message
	Temperature float64
	MaxTokens   int
}

// Display is the page region operations write their output into.
// Each call replaces the whole region.
type Display interface {
	ShowMessage(text string)
	ShowRecipe(doc recipe.Document)
	ShowRemix(text string)
}
