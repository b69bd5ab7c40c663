package directory

import "strings"

// AllLabel selects every entity.
const AllLabel = "all"

// Filter is either All or ByCategory(label). The zero value is All.
type Filter struct {
	label string
}

// All returns the filter that hides nothing.
func All() Filter {
	return Filter{}
}

// ByCategory returns the filter for label. An empty label or "all" yields All.
func ByCategory(label string) Filter {
	label = strings.TrimSpace(label)
	if label == AllLabel {
		return Filter{}
	}
	return Filter{label: label}
}

// IsAll reports whether the filter hides nothing.
func (f Filter) IsAll() bool {
	return f.label == ""
}

// Label returns the selected category, or "" for All.
func (f Filter) Label() string {
	return f.label
}

// String returns "all" or the selected category.
func (f Filter) String() string {
	if f.IsAll() {
		return AllLabel
	}
	return f.label
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Filter) UnmarshalText(text []byte) error {
	*f = ByCategory(string(text))
	return nil
}

// VisibleGroups returns the groups shown under f.
func (f Filter) VisibleGroups(groups []Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if f.IsAll() || g.Category == f.label {
			out = append(out, g)
		}
	}
	return out
}

// VisibleEntities returns the entities shown under f, in snapshot order.
// Under a category filter an entity is visible when any of its categories
// matches, not only its primary one.
func (f Filter) VisibleEntities(entities []Entity) []Entity {
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if f.IsAll() || e.HasCategory(f.label) {
			out = append(out, e)
		}
	}
	return out
}

// FilterMachine holds the selected filter of one listing. It starts at All
// and changes only through Select or an explicit Reset.
type FilterMachine struct {
	current Filter
}

// Select moves to ByCategory(label), or to All for "all" and "".
func (m *FilterMachine) Select(label string) Filter {
	m.current = ByCategory(label)
	return m.current
}

// Reset returns to All.
func (m *FilterMachine) Reset() {
	m.current = All()
}

// Current returns the selected filter.
func (m *FilterMachine) Current() Filter {
	return m.current
}
