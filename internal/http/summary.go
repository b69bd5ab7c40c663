package http

import (
	"github.com/fyrsmithlabs/directoryd/internal/directory"
)

func stateName(st directory.Status) string {
	return st.State.String()
}

func statusResponse(kind directory.Kind, st directory.Status) StatusResponse {
	resp := StatusResponse{
		Kind:     string(kind),
		State:    stateName(st),
		Message:  st.Message,
		Entities: len(st.Snapshot),
	}
	if st.Loaded() && !st.LoadedAt.IsZero() {
		at := st.LoadedAt.UTC()
		resp.LoadedAt = &at
	}
	return resp
}

func viewResponse(v directory.View, def directory.Definition) ViewResponse {
	resp := ViewResponse{
		Kind:         string(v.Kind),
		Status:       statusResponse(v.Kind, v.Status),
		Filter:       v.Filter.String(),
		Grouped:      def.Grouped,
		Options:      v.Options,
		Groups:       v.Groups,
		Entities:     v.Entities,
		Ungrouped:    v.Ungrouped,
		EmptyMessage: v.EmptyMessage,
	}
	if resp.Groups == nil {
		resp.Groups = []directory.Group{}
	}
	if resp.Entities == nil {
		resp.Entities = []directory.Entity{}
	}
	if resp.Ungrouped == nil {
		resp.Ungrouped = []directory.Entity{}
	}
	return resp
}

// summarize describes every collection of reg, skipping kinds that vanish
// between Kinds and Get.
func summarize(reg Registry) []CollectionSummary {
	kinds := reg.Kinds()
	out := make([]CollectionSummary, 0, len(kinds))
	for _, kind := range kinds {
		d, err := reg.Get(kind)
		if err != nil {
			continue
		}
		st := d.Status()
		def := d.Definition()
		out = append(out, CollectionSummary{
			Kind:     string(kind),
			Resource: def.Resource,
			Grouped:  def.Grouped,
			State:    stateName(st),
			Entities: len(st.Snapshot),
			Filter:   d.Filter().String(),
		})
	}
	return out
}
