// Package ai defines the remix request sent to a chat completion provider
package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/google/uuid"
)

// Sampling parameters sent with every remix request
const (
	RemixTemperature = 0.8
	RemixMaxTokens   = 500
)

// SystemPersona is the system role message establishing the remixer persona.
const SystemPersona = "You are a creative recipe remixer. You rewrite recipes with a playful theme while keeping them practical to cook."

const promptTemplate = `You are a creative chef. Remix the following recipe with a "%s" theme.
Keep it short, fun, and doable in a home kitchen. Highlight any changes to the ingredients and the instructions.

Recipe: %s
Ingredients: %s
Instructions: %s`

// RequestStatus represents the status of a remix request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
)

// Role of a chat message author
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message
type Message struct {
	Role    Role
	Content string
}

// RemixRequest represents one attempt to remix the current recipe with a theme
type RemixRequest struct {
	id          uuid.UUID
	theme       string
	recipeName  string
	prompt      string
	status      RequestStatus
	result      string
	createdAt   time.Time
	completedAt *time.Time
}

// NewRemixRequest builds the prompt for the given recipe and theme.
// The theme is used verbatim, including the empty string.
func NewRemixRequest(r recipe.Recipe, theme string) *RemixRequest {
	return &RemixRequest{
		id:         uuid.New(),
		theme:      theme,
		recipeName: r.Name,
		prompt:     BuildPrompt(r, theme),
		status:     RequestStatusPending,
		createdAt:  time.Now(),
	}
}

// BuildPrompt renders the user prompt for a remix
func BuildPrompt(r recipe.Recipe, theme string) string {
	return fmt.Sprintf(promptTemplate, theme, r.Name, recipe.FlattenIngredients(r), r.Instructions)
}

// ID returns the request ID
func (r *RemixRequest) ID() uuid.UUID {
	return r.id
}

// Theme returns the requested theme
func (r *RemixRequest) Theme() string {
	return r.theme
}

// RecipeName returns the name of the recipe being remixed
func (r *RemixRequest) RecipeName() string {
	return r.recipeName
}

// Prompt returns the user prompt
func (r *RemixRequest) Prompt() string {
	return r.prompt
}

// Status returns the request status
func (r *RemixRequest) Status() RequestStatus {
	return r.status
}

// Result returns the remix text once completed
func (r *RemixRequest) Result() string {
	return r.result
}

// Elapsed returns how long the request took, or zero while pending
func (r *RemixRequest) Elapsed() time.Duration {
	if r.completedAt == nil {
		return 0
	}
	return r.completedAt.Sub(r.createdAt)
}

// Messages returns the system and user messages for the chat completion call
func (r *RemixRequest) Messages() []Message {
	return []Message{
		{Role: RoleSystem, Content: SystemPersona},
		{Role: RoleUser, Content: r.prompt},
	}
}

// Complete stores the trimmed completion text
func (r *RemixRequest) Complete(text string) error {
	if r.status != RequestStatusPending {
		return errors.New("can only complete pending requests")
	}
	r.status = RequestStatusCompleted
	r.result = strings.TrimSpace(text)
	r.markDone()
	return nil
}

// Fail marks the request as failed
func (r *RemixRequest) Fail() error {
	if r.status == RequestStatusCompleted {
		return errors.New("cannot fail a completed request")
	}
	r.status = RequestStatusFailed
	r.markDone()
	return nil
}

func (r *RemixRequest) markDone() {
	now := time.Now()
	r.completedAt = &now
}
