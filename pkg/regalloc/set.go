package regalloc

import (
	"sort"
	"strings"

	"github.com/raymyers/tacalloc/pkg/tac"
)

// LocSet is a set of Locations kept sorted by creation ID, so union and
// difference are linear merges and iteration order is reproducible.
type LocSet []*tac.Location

// NewLocSet builds a set from arbitrary Locations. nil entries are dropped.
func NewLocSet(locs ...*tac.Location) LocSet {
	s := make(LocSet, 0, len(locs))
	for _, l := range locs {
		if l != nil {
			s = append(s, l)
		}
	}
	sort.Slice(s, func(i, j int) bool { return s[i].ID() < s[j].ID() })
	// drop duplicates
	out := s[:0]
	for i, l := range s {
		if i == 0 || l != s[i-1] {
			out = append(out, l)
		}
	}
	return out
}

// Contains reports membership.
func (s LocSet) Contains(l *tac.Location) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i].ID() >= l.ID() })
	return i < len(s) && s[i] == l
}

// Union returns s ∪ o.
func (s LocSet) Union(o LocSet) LocSet {
	result := make(LocSet, 0, len(s)+len(o))
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch a, b := s[i].ID(), o[j].ID(); {
		case a < b:
			result = append(result, s[i])
			i++
		case a > b:
			result = append(result, o[j])
			j++
		default:
			result = append(result, s[i])
			i++
			j++
		}
	}
	result = append(result, s[i:]...)
	return append(result, o[j:]...)
}

// Minus returns s - o.
func (s LocSet) Minus(o LocSet) LocSet {
	result := make(LocSet, 0, len(s))
	j := 0
	for _, l := range s {
		for j < len(o) && o[j].ID() < l.ID() {
			j++
		}
		if j < len(o) && o[j] == l {
			continue
		}
		result = append(result, l)
	}
	return result
}

// Equal reports whether both sets hold the same Locations.
func (s LocSet) Equal(o LocSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s LocSet) String() string {
	names := make([]string, len(s))
	for i, l := range s {
		names[i] = l.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}
