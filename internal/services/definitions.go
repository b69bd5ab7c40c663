package services

import (
	"fmt"
	"slices"
	"sort"

	"github.com/fyrsmithlabs/directoryd/internal/config"
	"github.com/fyrsmithlabs/directoryd/internal/directory"
)

const defaultCategoryField = "category"

// Definitions returns the definitions of every enabled collection: built-in
// kinds first in their display order, then configured custom kinds sorted by
// name.
func Definitions(collections map[string]config.CollectionConfig) ([]directory.Definition, error) {
	defs := make([]directory.Definition, 0, len(collections)+3)

	for _, kind := range directory.Kinds() {
		def, _ := directory.Builtin(kind)
		cc, ok := collections[string(kind)]
		if ok && cc.Disabled {
			continue
		}
		if ok {
			def = ApplyOverrides(def, cc)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	custom := make([]string, 0, len(collections))
	for name := range collections {
		if _, builtin := directory.Builtin(directory.Kind(name)); !builtin {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)

	for _, name := range custom {
		cc := collections[name]
		if cc.Disabled {
			continue
		}
		def := ApplyOverrides(customDefinition(directory.Kind(name)), cc)
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("collections.%s: %w", name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ApplyOverrides returns def with every non-zero field of cc applied.
// Labels are merged; the other fields replace.
func ApplyOverrides(def directory.Definition, cc config.CollectionConfig) directory.Definition {
	if cc.Resource != "" {
		def.Resource = cc.Resource
	}
	if cc.CategoryField != "" {
		def.CategoryField = cc.CategoryField
	}
	if len(cc.IDFields) > 0 {
		def.IDFields = slices.Clone(cc.IDFields)
	}
	if cc.Grouped != nil {
		def.Grouped = *cc.Grouped
	}
	if len(cc.Priority) > 0 {
		def.Priority = directory.NewPriorityList(cc.Priority...)
	}
	if len(cc.Labels) > 0 {
		labels := make(map[string]string, len(def.Labels)+len(cc.Labels))
		for k, v := range def.Labels {
			labels[k] = v
		}
		for k, v := range cc.Labels {
			labels[k] = v
		}
		def.Labels = labels
	}
	if cc.Messages.LoadFailed != "" {
		def.Messages.LoadFailed = cc.Messages.LoadFailed
	}
	if cc.Messages.EmptyAll != "" {
		def.Messages.EmptyAll = cc.Messages.EmptyAll
	}
	if cc.Messages.EmptyFiltered != "" {
		def.Messages.EmptyFiltered = cc.Messages.EmptyFiltered
	}
	def.SeedOnly = def.SeedOnly || cc.SeedOnly
	return def
}

func customDefinition(kind directory.Kind) directory.Definition {
	return directory.Definition{
		Kind:          kind,
		Resource:      "/" + string(kind),
		IDFields:      []string{"_id", "id"},
		CategoryField: defaultCategoryField,
		Messages: directory.Messages{
			LoadFailed:    fmt.Sprintf("Failed to load %s.", kind),
			EmptyAll:      fmt.Sprintf("No %s to show yet.", kind),
			EmptyFiltered: fmt.Sprintf("No %s in %%s yet.", kind),
		},
	}
}
