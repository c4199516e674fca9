// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRecipeSource provides a mock implementation of RecipeSource
type MockRecipeSource struct {
	mock.Mock
}

// RandomRecipe returns the configured recipe or error
func (m *MockRecipeSource) RandomRecipe(ctx context.Context) (recipe.Recipe, error) {
	args := m.Called(ctx)
	return args.Get(0).(recipe.Recipe), args.Error(1)
}

// MockChatCompleter provides a mock implementation of ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

// Complete returns the configured completion text or error
func (m *MockChatCompleter) Complete(ctx context.Context, req outbound.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// DisplayEvent is one write to a RecordingDisplay
type DisplayEvent struct {
	Kind     string
	Text     string
	Document recipe.Document
}

// Display event kinds
const (
	EventMessage = "message"
	EventRecipe  = "recipe"
	EventRemix   = "remix"
)

// RecordingDisplay records every write made to the display region
type RecordingDisplay struct {
	mu     sync.Mutex
	events []DisplayEvent
}

// ShowMessage records a status message
func (d *RecordingDisplay) ShowMessage(text string) {
	d.record(DisplayEvent{Kind: EventMessage, Text: text})
}

// ShowRecipe records a rendered recipe
func (d *RecordingDisplay) ShowRecipe(doc recipe.Document) {
	d.record(DisplayEvent{Kind: EventRecipe, Document: doc})
}

// ShowRemix records remix text
func (d *RecordingDisplay) ShowRemix(text string) {
	d.record(DisplayEvent{Kind: EventRemix, Text: text})
}

// Events returns a copy of the recorded writes in order
func (d *RecordingDisplay) Events() []DisplayEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DisplayEvent(nil), d.events...)
}

// Last returns the final write, which is what the region currently shows
func (d *RecordingDisplay) Last() DisplayEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return DisplayEvent{}
	}
	return d.events[len(d.events)-1]
}

func (d *RecordingDisplay) record(e DisplayEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}
