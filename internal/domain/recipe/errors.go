package recipe

import "errors"

// Domain errors for recipe operations

var (
	ErrSlotOutOfRange  = errors.New("ingredient slot index must be between 1 and 20")
	ErrRecipeNotFound  = errors.New("recipe endpoint returned no meals")
	ErrNoCurrentRecipe = errors.New("no recipe has been loaded")
)

// ErrStaleFetch is returned when a fetch finished after a newer one had
// already replaced the current recipe
var ErrStaleFetch = errors.New("a newer recipe was loaded while this fetch was in flight")
