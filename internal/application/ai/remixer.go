// Package ai provides the application layer for remixing recipes with a chat completion provider
package ai

import (
	"context"
	"errors"

	"github.com/alchemorsel/recipe-remix/internal/domain/ai"
	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"go.uber.org/zap"
)

// Messages shown in the display region while remixing
const (
	NoRecipeMessage      = "Please load a recipe first!"
	RemixingMessage      = "Remixing your recipe..."
	RemixFailedMessage   = "Sorry, couldn't remix this recipe."
	RemixDisabledMessage = "Recipe remixing is not available right now."
)

// ErrRemixDisabled is returned when no chat completion provider is configured
var ErrRemixDisabled = errors.New("recipe remixing is disabled")

// Remixer turns the current recipe into a themed remix
type Remixer struct {
	completer outbound.ChatCompleter
	logger    *zap.Logger
}

// NewRemixer creates a new remixer. A nil completer disables remixing.
func NewRemixer(completer outbound.ChatCompleter, logger *zap.Logger) *Remixer {
	return &Remixer{
		completer: completer,
		logger:    logger.Named("remixer"),
	}
}

// Enabled reports whether a provider is configured
func (r *Remixer) Enabled() bool {
	return r.completer != nil
}

// RemixAndDisplay remixes the holder's current recipe with theme.
//
// Without a current recipe no request is made and the display asks the user
// to load one. Otherwise exactly one chat completion request is sent and its
// trimmed text, or the fallback message, replaces the display.
func (r *Remixer) RemixAndDisplay(ctx context.Context, holder *recipe.Holder, theme string, display outbound.Display) error {
	current, ok := holder.Current()
	if !ok {
		display.ShowMessage(NoRecipeMessage)
		return apperrors.NewNoCurrentRecipeError(recipe.ErrNoCurrentRecipe)
	}

	if !r.Enabled() {
		display.ShowMessage(RemixDisabledMessage)
		return apperrors.NewRemixUnavailableError(theme, ErrRemixDisabled)
	}

	display.ShowMessage(RemixingMessage)

	req := ai.NewRemixRequest(current, theme)
	log := r.logger.With(
		zap.String("request_id", req.ID().String()),
		zap.String("recipe", req.RecipeName()),
		zap.String("theme", req.Theme()),
	)

	log.Debug("Requesting remix", zap.Int("prompt_length", len(req.Prompt())))
	text, err := r.completer.Complete(ctx, outbound.ChatRequest{
		Messages:    req.Messages(),
		Temperature: ai.RemixTemperature,
		MaxTokens:   ai.RemixMaxTokens,
	})
	if err != nil {
		_ = req.Fail()
		log.Error("Failed to remix recipe", zap.Duration("elapsed", req.Elapsed()), zap.Error(err))
		display.ShowMessage(RemixFailedMessage)
		return apperrors.NewRemixUnavailableError(theme, err)
	}

	_ = req.Complete(text)
	log.Info("Recipe remixed",
		zap.Duration("elapsed", req.Elapsed()),
		zap.Int("length", len(req.Result())),
	)
	display.ShowRemix(req.Result())
	return nil
}
