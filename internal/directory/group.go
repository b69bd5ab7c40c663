package directory

// Group is the set of entities sharing one primary category.
type Group struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Entities []Entity `json:"entities"`
}

// GroupEntities partitions entities by primary category.
//
// Groups follow the priority order. Categories outside the priority list rank
// lowest and follow every ranked group, in the order they first resolve in
// entities. Entities keep their input order within a group, entities without
// categories join no group (see Ungrouped), and no group is ever empty.
func GroupEntities(entities []Entity, def Definition) []Group {
	buckets := make(map[string][]Entity)
	var unranked []string

	for _, e := range entities {
		if len(e.Categories) == 0 {
			continue
		}
		primary := def.Priority.Resolve(e.Categories)
		if _, ranked := def.Priority.Rank(primary); !ranked {
			if _, known := buckets[primary]; !known {
				unranked = append(unranked, primary)
			}
		}
		buckets[primary] = append(buckets[primary], e)
	}

	groups := make([]Group, 0, len(buckets))
	for _, c := range def.Priority.labels {
		if members := buckets[c]; len(members) > 0 {
			groups = append(groups, Group{Category: c, Label: def.Label(c), Entities: members})
		}
	}
	for _, c := range unranked {
		groups = append(groups, Group{Category: c, Label: def.Label(c), Entities: buckets[c]})
	}
	return groups
}

// Ungrouped returns the entities without categories, in input order. They
// belong to no group and are shown under the All filter only.
func Ungrouped(entities []Entity) []Entity {
	out := make([]Entity, 0)
	for _, e := range entities {
		if len(e.Categories) == 0 {
			out = append(out, e)
		}
	}
	return out
}

// distinctCategories lists every category in entities in first-seen order.
func distinctCategories(entities []Entity) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entities {
		for _, c := range e.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
