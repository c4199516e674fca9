// Package recipe contains the recipe domain model: the record returned by the
// random recipe endpoint and the pure functions that turn it into display output.
package recipe

import "strings"

// MaxIngredients is the number of indexed ingredient/measure pairs a recipe carries.
const MaxIngredients = 20

// IngredientSlot is one indexed ingredient/measure pair.
// Name and Measure are always read and written together.
type IngredientSlot struct {
	Name    string
	Measure string
}

// HasName reports whether the slot names an ingredient.
func (s IngredientSlot) HasName() bool {
	return strings.TrimSpace(s.Name) != ""
}

// HasMeasure reports whether the slot carries a non-blank measure.
func (s IngredientSlot) HasMeasure() bool {
	return strings.TrimSpace(s.Measure) != ""
}

// Recipe represents a single meal as returned by the recipe catalogue.
// Values are replaced wholesale, never mutated after construction.
type Recipe struct {
	ID           string
	Name         string
	ImageURL     string
	Instructions string
	Category     string
	Area         string
	SourceURL    string

	Slots [MaxIngredients]IngredientSlot
}

// Slot returns the ingredient pair at the 1-based index i.
// Out of range indexes yield an empty slot.
func (r Recipe) Slot(i int) IngredientSlot {
	if i < 1 || i > MaxIngredients {
		return IngredientSlot{}
	}
	return r.Slots[i-1]
}

// WithSlot returns a copy of the recipe with the pair at the 1-based index i replaced.
func (r Recipe) WithSlot(i int, name, measure string) (Recipe, error) {
	if i < 1 || i > MaxIngredients {
		return r, ErrSlotOutOfRange
	}
	r.Slots[i-1] = IngredientSlot{Name: name, Measure: measure}
	return r, nil
}
