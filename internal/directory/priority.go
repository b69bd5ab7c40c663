package directory

// Uncategorized is the primary category of an entity without labels.
const Uncategorized = "uncategorized"

// PriorityList is a fixed ranking of category labels; earlier labels outrank
// later ones. The zero value is an empty list under which every entity falls
// back to its own first label.
type PriorityList struct {
	labels []string
	rank   map[string]int
}

// NewPriorityList builds the list and its rank index. Repeated labels keep
// their first position.
func NewPriorityList(labels ...string) PriorityList {
	p := PriorityList{
		labels: make([]string, 0, len(labels)),
		rank:   make(map[string]int, len(labels)),
	}
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := p.rank[l]; dup {
			continue
		}
		p.rank[l] = len(p.labels)
		p.labels = append(p.labels, l)
	}
	return p
}

// Labels returns a copy of the ranked labels, highest first.
func (p PriorityList) Labels() []string {
	out := make([]string, len(p.labels))
	copy(out, p.labels)
	return out
}

// Len returns the number of ranked labels.
func (p PriorityList) Len() int {
	return len(p.labels)
}

// Rank returns the position of label, or false when it is not ranked.
func (p PriorityList) Rank(label string) (int, bool) {
	r, ok := p.rank[label]
	return r, ok
}

// Resolve picks the primary category among categories.
//
// The highest ranked label present wins regardless of its position in
// categories. With no ranked label the first authored label wins, and with no
// labels at all the result is Uncategorized. Resolve reads nothing but its
// inputs, so repeated calls always agree.
func (p PriorityList) Resolve(categories []string) string {
	best, bestRank := "", -1
	for _, c := range categories {
		r, ok := p.rank[c]
		if ok && (bestRank < 0 || r < bestRank) {
			best, bestRank = c, r
		}
	}
	if bestRank >= 0 {
		return best
	}
	if len(categories) > 0 {
		return categories[0]
	}
	return Uncategorized
}
