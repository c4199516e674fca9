package recipe

import "regexp"

var lineBreak = regexp.MustCompile(`\r?\n`)

// Document is the display form of a recipe. It holds plain text only; the
// presentation layer decides how each part becomes markup.
type Document struct {
	Title            string
	ImageURL         string
	ImageAlt         string
	Category         string
	Area             string
	SourceURL        string
	Ingredients      []string
	InstructionLines []string
}

// Render converts a recipe into its display document.
// It is pure: the same recipe always yields an equal document.
func Render(r Recipe) Document {
	return Document{
		Title:            r.Name,
		ImageURL:         r.ImageURL,
		ImageAlt:         r.Name,
		Category:         r.Category,
		Area:             r.Area,
		SourceURL:        r.SourceURL,
		Ingredients:      FormatIngredients(r),
		InstructionLines: splitLines(r.Instructions),
	}
}

// HasMeta reports whether any of the optional metadata fields are set.
func (d Document) HasMeta() bool {
	return d.Category != "" || d.Area != "" || d.SourceURL != ""
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return lineBreak.Split(s, -1)
}
