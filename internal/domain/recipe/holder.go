package recipe

import "sync"

// Holder owns the current recipe of one page.
//
// Every fetch takes a ticket from Begin before it goes to the network and hands
// it back to Replace with its result. A result is applied only if no later
// ticket has already been applied, so overlapping fetches cannot leave an older
// recipe on the page.
type Holder struct {
	mu      sync.Mutex
	current *Recipe
	issued  uint64
	applied uint64
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	return &Holder{}
}

// Begin issues the ticket for a new fetch
func (h *Holder) Begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issued++
	return h.issued
}

// Replace stores r as the current recipe if ticket is newer than the last
// applied one. It reports whether r was stored.
func (h *Holder) Replace(ticket uint64, r Recipe) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ticket <= h.applied {
		return false
	}
	h.applied = ticket
	h.current = &r
	return true
}

// Current returns a copy of the current recipe
func (h *Holder) Current() (Recipe, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return Recipe{}, false
	}
	return *h.current, true
}
