package recipe

import "strings"

// FormatIngredients builds the "measure ingredient" display lines for a recipe.
// Slots are scanned from 1 to MaxIngredients and blank names are skipped, so the
// result keeps insertion order. It never returns nil.
func FormatIngredients(r Recipe) []string {
	lines := make([]string, 0, MaxIngredients)
	for i := 1; i <= MaxIngredients; i++ {
		slot := r.Slot(i)
		if !slot.HasName() {
			continue
		}
		if slot.HasMeasure() {
			lines = append(lines, slot.Measure+" "+slot.Name)
			continue
		}
		lines = append(lines, slot.Name)
	}
	return lines
}

// FlattenIngredients joins the formatted ingredient lines into a single
// comma separated string suitable for a prompt.
func FlattenIngredients(r Recipe) string {
	return strings.Join(FormatIngredients(r), ", ")
}
