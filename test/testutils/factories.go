// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"strconv"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/brianvoe/gofakeit/v6"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Recipe creates a recipe whose first n slots are filled with named
// ingredients and measures
func (f *RecipeFactory) Recipe(n int) recipe.Recipe {
	return f.Builder().WithIngredientCount(n).Build()
}

// Builder starts a fluent recipe with fake name, image and instructions
func (f *RecipeFactory) Builder() *RecipeBuilder {
	return &RecipeBuilder{
		faker: f.faker,
		r: recipe.Recipe{
			ID:           strconv.Itoa(f.faker.Number(52700, 53100)),
			Name:         f.faker.Dessert(),
			ImageURL:     f.faker.URL() + "/preview.jpg",
			Instructions: f.faker.Sentence(8) + "\r\n" + f.faker.Sentence(6),
			Category:     "Dessert",
			Area:         f.faker.Country(),
		},
	}
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	faker *gofakeit.Faker
	r     recipe.Recipe
}

// WithName sets the recipe name
func (b *RecipeBuilder) WithName(name string) *RecipeBuilder {
	b.r.Name = name
	return b
}

// WithImage sets the image URL
func (b *RecipeBuilder) WithImage(url string) *RecipeBuilder {
	b.r.ImageURL = url
	return b
}

// WithInstructions sets the instructions text
func (b *RecipeBuilder) WithInstructions(text string) *RecipeBuilder {
	b.r.Instructions = text
	return b
}

// WithSlot sets the pair at the 1-based index i
func (b *RecipeBuilder) WithSlot(i int, name, measure string) *RecipeBuilder {
	b.r.Slots[i-1] = recipe.IngredientSlot{Name: name, Measure: measure}
	return b
}

// WithIngredientCount fills slots 1..n with fake ingredients and measures
func (b *RecipeBuilder) WithIngredientCount(n int) *RecipeBuilder {
	for i := 1; i <= n; i++ {
		b.r.Slots[i-1] = recipe.IngredientSlot{
			Name:    b.faker.Fruit(),
			Measure: strconv.Itoa(b.faker.Number(1, 500)) + "g",
		}
	}
	return b
}

// Build returns the recipe value
func (b *RecipeBuilder) Build() recipe.Recipe {
	return b.r
}

// MealJSON renders a recipe as a TheMealDB meal object. Blank slots are
// emitted the way the real API does: empty strings and nulls.
func MealJSON(r recipe.Recipe) map[string]interface{} {
	meal := map[string]interface{}{
		"idMeal":          r.ID,
		"strMeal":         r.Name,
		"strMealThumb":    r.ImageURL,
		"strInstructions": r.Instructions,
		"strCategory":     r.Category,
		"strArea":         r.Area,
		"strSource":       nil,
		"strTags":         nil,
		"strYoutube":      "",
	}
	if r.SourceURL != "" {
		meal["strSource"] = r.SourceURL
	}
	for i := 1; i <= recipe.MaxIngredients; i++ {
		slot := r.Slot(i)
		n := strconv.Itoa(i)
		if slot.Name == "" && slot.Measure == "" && i%2 == 0 {
			meal["strIngredient"+n] = nil
			meal["strMeasure"+n] = nil
			continue
		}
		meal["strIngredient"+n] = slot.Name
		meal["strMeasure"+n] = slot.Measure
	}
	return meal
}

// Toast is the canonical two-line recipe with a single ingredient
func Toast() recipe.Recipe {
	r := recipe.Recipe{
		Name:         "Toast",
		ImageURL:     "x.jpg",
		Instructions: "Step1\nStep2",
	}
	r.Slots[0] = recipe.IngredientSlot{Name: "Bread", Measure: "2 slices"}
	return r
}
