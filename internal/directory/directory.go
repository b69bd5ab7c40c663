package directory

import (
	"context"
	"sync"
)

// Option is one selectable filter value.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// View is everything needed to render a listing at one instant.
type View struct {
	Kind     Kind
	Status   Status
	Filter   Filter
	Options  []Option
	Groups   []Group
	Entities []Entity

	// Ungrouped holds the entities of a grouped collection that have no
	// category. It is filled under the All filter only.
	Ungrouped []Entity

	// EmptyMessage is set only when the collection is loaded and the filter
	// leaves nothing visible.
	EmptyMessage string
}

// Directory pairs a loader with the filter selected for its listing.
// Selecting a filter never triggers a load, and a data refresh never resets
// the filter; only Reload does.
type Directory struct {
	def    Definition
	loader *Loader

	mu     sync.RWMutex
	filter FilterMachine
}

// New creates a directory over loader.
func New(def Definition, loader *Loader) *Directory {
	return &Directory{def: def, loader: loader}
}

// Kind returns the collection kind.
func (d *Directory) Kind() Kind { return d.def.Kind }

// Definition returns the collection definition.
func (d *Directory) Definition() Definition { return d.def }

// Mount performs the initial load.
func (d *Directory) Mount(ctx context.Context) Status {
	return d.loader.Mount(ctx)
}

// Start mounts in the background.
func (d *Directory) Start(ctx context.Context) <-chan Status {
	return d.loader.Start(ctx)
}

// Reload resets the filter to All and fetches the collection again.
func (d *Directory) Reload(ctx context.Context) Status {
	d.mu.Lock()
	d.filter.Reset()
	d.mu.Unlock()
	return d.loader.Reload(ctx)
}

// Refresh replaces the snapshot with records and keeps the selected filter.
func (d *Directory) Refresh(ctx context.Context, records []Record) Status {
	return d.loader.Replace(ctx, records)
}

// Close detaches the directory from any in-flight load.
func (d *Directory) Close() {
	d.loader.Close()
}

// Status returns the loader status.
func (d *Directory) Status() Status {
	return d.loader.Status()
}

// SetFilter selects label, or All for "all" and "". Unknown labels are
// accepted and simply match nothing.
func (d *Directory) SetFilter(label string) Filter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter.Select(label)
}

// Filter returns the selected filter.
func (d *Directory) Filter() Filter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter.Current()
}

// Groups returns the visible groups under the selected filter. It is empty
// unless the collection is loaded.
func (d *Directory) Groups() []Group {
	return d.GroupsFor(d.Filter())
}

// GroupsFor returns the visible groups under f.
func (d *Directory) GroupsFor(f Filter) []Group {
	st := d.Status()
	if !st.Loaded() {
		return []Group{}
	}
	return f.VisibleGroups(GroupEntities(st.Snapshot, d.def))
}

// VisibleEntities returns the visible entities under the selected filter.
func (d *Directory) VisibleEntities() []Entity {
	return d.EntitiesFor(d.Filter())
}

// EntitiesFor returns the visible entities under f, in snapshot order.
func (d *Directory) EntitiesFor(f Filter) []Entity {
	st := d.Status()
	if !st.Loaded() {
		return []Entity{}
	}
	return f.VisibleEntities(st.Snapshot)
}

// Options returns the selectable filters, always starting with "all".
func (d *Directory) Options() []Option {
	return d.options(d.Status())
}

// View captures status, filter and derived lists from one snapshot: the
// filter and the loader status are read together under the directory lock.
func (d *Directory) View() View {
	d.mu.RLock()
	f := d.filter.Current()
	st := d.loader.Status()
	d.mu.RUnlock()

	v := View{
		Kind:      d.def.Kind,
		Status:    st,
		Filter:    f,
		Options:   d.options(st),
		Groups:    []Group{},
		Entities:  []Entity{},
		Ungrouped: []Entity{},
	}
	if !st.Loaded() {
		return v
	}

	v.Entities = f.VisibleEntities(st.Snapshot)
	visible := len(v.Entities)
	if d.def.Grouped {
		v.Groups = f.VisibleGroups(GroupEntities(st.Snapshot, d.def))
		if f.IsAll() {
			v.Ungrouped = Ungrouped(st.Snapshot)
		}
		visible = len(v.Ungrouped)
		for _, g := range v.Groups {
			visible += len(g.Entities)
		}
	}
	if visible == 0 {
		v.EmptyMessage = d.def.EmptyMessage(f)
	}
	return v
}

// options derives filter options from the definition and snapshot:
// grouped collections offer the categories that formed groups, ranked
// collections offer their priority list, and the rest offer every category
// present in the snapshot.
func (d *Directory) options(st Status) []Option {
	var entities []Entity
	if st.Loaded() {
		entities = st.Snapshot
	}

	out := []Option{{Value: AllLabel, Label: "All", Count: len(entities)}}
	if d.def.Grouped {
		for _, g := range GroupEntities(entities, d.def) {
			out = append(out, Option{Value: g.Category, Label: g.Label, Count: len(g.Entities)})
		}
		return out
	}

	values := d.def.Priority.Labels()
	if len(values) == 0 {
		values = distinctCategories(entities)
	}
	for _, v := range values {
		out = append(out, Option{
			Value: v,
			Label: d.def.Label(v),
			Count: len(ByCategory(v).VisibleEntities(entities)),
		})
	}
	return out
}
