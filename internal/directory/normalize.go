package directory

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeReport counts what the normalizer had to repair or drop.
type NormalizeReport struct {
	Received       int
	Normalized     int
	Discarded      int // records that were not objects
	SynthesizedIDs int // missing, blank or duplicate identities
	Defaulted      int // category values of an unusable type
}

// Normalizer converts raw records of one collection kind into entities.
// It performs no I/O and keeps no state between calls.
type Normalizer struct {
	kind          Kind
	idFields      []string
	categoryField string
}

// NewNormalizer returns a normalizer for def.
func NewNormalizer(def Definition) *Normalizer {
	ids := def.IDFields
	if len(ids) == 0 {
		ids = []string{"_id", "id"}
	}
	return &Normalizer{
		kind:          def.Kind,
		idFields:      ids,
		categoryField: def.CategoryField,
	}
}

// Normalize converts records into entities, preserving their order.
//
// Object records always produce an entity: a missing identity becomes
// "<kind>-<index>" and unusable categories become an empty list. Records that
// are not objects cannot be rendered; they are dropped and counted in the
// report.
func (n *Normalizer) Normalize(records []Record) ([]Entity, NormalizeReport) {
	report := NormalizeReport{Received: len(records)}
	entities := make([]Entity, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i, rec := range records {
		obj, ok := asObject(rec)
		if !ok {
			report.Discarded++
			continue
		}

		id, ok := n.identity(obj)
		if !ok {
			id = fmt.Sprintf("%s-%d", n.kind, i)
			report.SynthesizedIDs++
		}
		if _, dup := seen[id]; dup {
			id = disambiguate(id, seen)
			report.SynthesizedIDs++
		}
		seen[id] = struct{}{}

		cats, ok := categoriesOf(obj[n.categoryField])
		if !ok {
			report.Defaulted++
		}

		entities = append(entities, Entity{
			ID:         id,
			Categories: cats,
			Display:    n.display(obj),
		})
	}

	report.Normalized = len(entities)
	return entities, report
}

func (n *Normalizer) identity(obj map[string]any) (string, bool) {
	for _, f := range n.idFields {
		if s, ok := labelText(obj[f]); ok {
			return s, true
		}
	}
	return "", false
}

func (n *Normalizer) display(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == n.categoryField || n.isIDField(k) {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (n *Normalizer) isIDField(key string) bool {
	for _, f := range n.idFields {
		if f == key {
			return true
		}
	}
	return false
}

// asObject accepts the map shapes produced by the JSON and YAML decoders.
func asObject(rec Record) (map[string]any, bool) {
	switch v := rec.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// categoriesOf accepts a single label or a sequence of labels. The second
// result is false when v was present but of an unusable type.
func categoriesOf(v any) ([]string, bool) {
	out := make([]string, 0, 2)
	switch c := v.(type) {
	case nil:
		return out, true
	case string:
		return appendLabel(out, c, true), true
	case []string:
		for _, s := range c {
			out = appendLabel(out, s, true)
		}
		return out, true
	case []any:
		for _, item := range c {
			s, ok := labelText(item)
			out = appendLabel(out, s, ok)
		}
		return out, true
	default:
		s, ok := labelText(c)
		if !ok {
			return out, false
		}
		return appendLabel(out, s, true), true
	}
}

func appendLabel(labels []string, s string, ok bool) []string {
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return labels
	}
	for _, l := range labels {
		if l == s {
			return labels
		}
	}
	return append(labels, s)
}

// labelText renders scalar values as text. Numbers keep their decimal form.
func labelText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case fmt.Stringer:
		s := strings.TrimSpace(t.String())
		return s, s != ""
	default:
		return "", false
	}
}

func disambiguate(id string, seen map[string]struct{}) string {
	for n := 2; ; n++ {
		candidate := id + "~" + strconv.Itoa(n)
		if _, taken := seen[candidate]; !taken {
			return candidate
		}
	}
}
