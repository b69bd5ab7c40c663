package directory

import "slices"

// Record is a raw fetched record of unknown shape. Records decoded from JSON
// or YAML are usually map[string]any, but the normalizer accepts anything.
type Record = any

// Entity is a normalized member, event or project.
type Entity struct {
	// ID is unique within one snapshot. Synthesized when the record has none.
	ID string `json:"id"`

	// Categories holds the labels in the order they were received. Never nil.
	Categories []string `json:"categories"`

	// Display carries the presentational attributes untouched.
	Display map[string]any `json:"display,omitempty"`
}

// HasCategory reports whether label is one of the entity's categories.
func (e Entity) HasCategory(label string) bool {
	return slices.Contains(e.Categories, label)
}
