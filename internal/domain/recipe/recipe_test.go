package recipe_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RecipeTestSuite covers the ingredient formatter and the renderer
type RecipeTestSuite struct {
	suite.Suite
	factory *testutils.RecipeFactory
}

// SetupSuite initializes the test suite
func (s *RecipeTestSuite) SetupSuite() {
	s.factory = testutils.NewRecipeFactory(42)
}

func (s *RecipeTestSuite) TestFormatIngredients() {
	s.Run("CountMatchesNonBlankSlots", func() {
		for k := 0; k <= recipe.MaxIngredients; k++ {
			// Arrange
			r := s.factory.Recipe(k)

			// Act
			lines := recipe.FormatIngredients(r)

			// Assert
			require.Len(s.T(), lines, k)
			for i, line := range lines {
				slot := r.Slot(i + 1)
				assert.Equal(s.T(), slot.Measure+" "+slot.Name, line)
			}
		}
	})

	s.Run("SkipsBlankSlotsKeepingScanOrder", func() {
		r := s.factory.Builder().
			WithSlot(1, "Zucchini", "1").
			WithSlot(2, "   ", "2 cups").
			WithSlot(5, "Apple", "3").
			WithSlot(20, "Basil", "a pinch").
			Build()

		assert.Equal(s.T(), []string{"1 Zucchini", "3 Apple", "a pinch Basil"}, recipe.FormatIngredients(r))
	})

	s.Run("NameWithoutMeasureHasNoLeadingSpace", func() {
		r := s.factory.Builder().
			WithSlot(1, "Salt", "").
			WithSlot(2, "Pepper", "  ").
			Build()

		assert.Equal(s.T(), []string{"Salt", "Pepper"}, recipe.FormatIngredients(r))
	})

	s.Run("ZeroIngredientsIsEmptyNotNil", func() {
		lines := recipe.FormatIngredients(recipe.Recipe{Name: "Air"})

		assert.NotNil(s.T(), lines)
		assert.Empty(s.T(), lines)
	})
}

func (s *RecipeTestSuite) TestFlattenIngredients() {
	r := s.factory.Builder().
		WithSlot(1, "Bread", "2 slices").
		WithSlot(2, "Butter", "").
		Build()

	assert.Equal(s.T(), "2 slices Bread, Butter", recipe.FlattenIngredients(r))
	assert.Equal(s.T(), "", recipe.FlattenIngredients(recipe.Recipe{}))
}

func (s *RecipeTestSuite) TestRender() {
	s.Run("ToastExample", func() {
		doc := recipe.Render(testutils.Toast())

		assert.Equal(s.T(), "Toast", doc.Title)
		assert.Equal(s.T(), "x.jpg", doc.ImageURL)
		assert.Equal(s.T(), "Toast", doc.ImageAlt)
		assert.Equal(s.T(), []string{"2 slices Bread"}, doc.Ingredients)
		assert.Equal(s.T(), []string{"Step1", "Step2"}, doc.InstructionLines)
	})

	s.Run("NormalizesCRLF", func() {
		r := s.factory.Builder().WithInstructions("Mix\r\nBake\nServe").Build()

		assert.Equal(s.T(), []string{"Mix", "Bake", "Serve"}, recipe.Render(r).InstructionLines)
	})

	s.Run("ImageAltIsRecipeName", func() {
		r := s.factory.Builder().WithName("Shakshuka").WithImage("https://img.example/s.jpg").Build()
		doc := recipe.Render(r)

		assert.Equal(s.T(), "https://img.example/s.jpg", doc.ImageURL)
		assert.Equal(s.T(), "Shakshuka", doc.ImageAlt)
	})

	s.Run("MissingFieldsRenderBlank", func() {
		doc := recipe.Render(recipe.Recipe{})

		assert.Empty(s.T(), doc.Title)
		assert.Empty(s.T(), doc.ImageURL)
		assert.Empty(s.T(), doc.Ingredients)
		assert.Empty(s.T(), doc.InstructionLines)
		assert.False(s.T(), doc.HasMeta())
	})

	s.Run("Idempotent", func() {
		r := s.factory.Recipe(12)

		assert.Equal(s.T(), recipe.Render(r), recipe.Render(r))
	})
}

func TestRecipeTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeTestSuite))
}

func TestRecipe_SlotBounds(t *testing.T) {
	r := testutils.Toast()

	assert.Equal(t, recipe.IngredientSlot{}, r.Slot(0))
	assert.Equal(t, recipe.IngredientSlot{}, r.Slot(21))

	_, err := r.WithSlot(21, "x", "y")
	assert.ErrorIs(t, err, recipe.ErrSlotOutOfRange)

	updated, err := r.WithSlot(2, "Jam", "1 tbsp")
	require.NoError(t, err)
	assert.Equal(t, "Jam", updated.Slot(2).Name)
	assert.Equal(t, "", r.Slot(2).Name, "original must not change")
}

func TestHolder(t *testing.T) {
	t.Run("EmptyUntilReplaced", func(t *testing.T) {
		h := recipe.NewHolder()

		_, ok := h.Current()
		assert.False(t, ok)

		assert.True(t, h.Replace(h.Begin(), testutils.Toast()))
		got, ok := h.Current()
		assert.True(t, ok)
		assert.Equal(t, "Toast", got.Name)
	})

	t.Run("OlderTicketIsDiscarded", func(t *testing.T) {
		h := recipe.NewHolder()
		first := h.Begin()
		second := h.Begin()

		assert.True(t, h.Replace(second, recipe.Recipe{Name: "Newer"}))
		assert.False(t, h.Replace(first, recipe.Recipe{Name: "Older"}))

		got, _ := h.Current()
		assert.Equal(t, "Newer", got.Name)
	})

	t.Run("OutOfOrderCompletionKeepsLatest", func(t *testing.T) {
		h := recipe.NewHolder()
		tickets := make([]uint64, 50)
		for i := range tickets {
			tickets[i] = h.Begin()
		}

		var wg sync.WaitGroup
		for i := len(tickets) - 1; i >= 0; i-- {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h.Replace(tickets[i], recipe.Recipe{Name: strings.Repeat("x", i+1)})
			}(i)
		}
		wg.Wait()

		got, _ := h.Current()
		assert.Len(t, got.Name, len(tickets))
	})
}
