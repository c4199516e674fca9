package webserver

import (
	"bytes"
	"html/template"
	"io"
	"sync"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
)

var _ outbound.Display = (*regionDisplay)(nil)

// regionDisplay is the recipe display region of one response. Each Show call
// replaces the whole region; only the final content is written back to the
// browser.
type regionDisplay struct {
	templates *template.Template

	mu   sync.Mutex
	name string
	data interface{}
}

func newRegionDisplay(templates *template.Template) *regionDisplay {
	return &regionDisplay{templates: templates}
}

type messageView struct {
	Text string
}

type remixView struct {
	Text string
}

func (d *regionDisplay) ShowMessage(text string) {
	d.set("message", messageView{Text: text})
}

func (d *regionDisplay) ShowRecipe(doc recipe.Document) {
	d.set("recipe", doc)
}

func (d *regionDisplay) ShowRemix(text string) {
	d.set("remix", remixView{Text: text})
}

func (d *regionDisplay) set(name string, data interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
	d.data = data
}

// Render writes the region's current content as an HTML fragment
func (d *regionDisplay) Render(w io.Writer) error {
	d.mu.Lock()
	name, data := d.name, d.data
	d.mu.Unlock()

	if name == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
