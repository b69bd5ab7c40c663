// Package directory implements the content directory core for directoryd.
//
// A directory turns a remotely fetched collection (members, events, projects)
// into something a listing view can render:
//
//   - Normalizer converts raw records into Entity values, defaulting missing
//     identities and category labels instead of rejecting the record.
//   - PriorityList resolves each entity to one primary category.
//   - GroupEntities partitions a snapshot into ordered, non-empty groups.
//   - Filter and FilterMachine track the selected category and derive the
//     visible subset.
//   - Loader obtains the snapshot from a seed or a single fetch and reports
//     exactly one of Loading, Failed or Loaded.
//
// Directory ties these together per collection kind. Derived views (groups,
// visible entities, options) are recomputed on every read from the current
// snapshot, filter and priority list; nothing derived is cached.
//
// # Usage
//
//	def, _ := directory.Builtin(directory.KindMembers)
//	loader, err := directory.NewLoader(def, fetcher, directory.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	dir := directory.New(def, loader)
//	dir.Mount(ctx)
//	dir.SetFilter("iot")
//	for _, g := range dir.Groups() {
//	    fmt.Println(g.Label, len(g.Entities))
//	}
package directory
