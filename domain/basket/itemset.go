package basket

import (
	"sort"
	"strings"

	"profitlift/domain/core"
)

// ItemSet is an unordered set of item identifiers. The zero value is usable.
type ItemSet map[core.ItemID]struct{}

// NewItemSet builds a set from the given items
func NewItemSet(items ...core.ItemID) ItemSet {
	s := make(ItemSet, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Contains reports whether item is in the set
func (s ItemSet) Contains(item core.ItemID) bool {
	_, ok := s[item]
	return ok
}

// ContainsAll reports whether every item of other is in the set
func (s ItemSet) ContainsAll(other ItemSet) bool {
	if len(other) > len(s) {
		return false
	}
	for it := range other {
		if _, ok := s[it]; !ok {
			return false
		}
	}
	return true
}

// Intersects reports whether the sets share at least one item
func (s ItemSet) Intersects(other ItemSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for it := range small {
		if _, ok := large[it]; ok {
			return true
		}
	}
	return false
}

// Union returns a new set containing items of both sets
func (s ItemSet) Union(other ItemSet) ItemSet {
	out := make(ItemSet, len(s)+len(other))
	for it := range s {
		out[it] = struct{}{}
	}
	for it := range other {
		out[it] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same items
func (s ItemSet) Equal(other ItemSet) bool {
	if len(s) != len(other) {
		return false
	}
	return s.ContainsAll(other)
}

// Sorted returns the items in lexicographic order
func (s ItemSet) Sorted() []core.ItemID {
	out := make([]core.ItemID, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted items as plain strings
func (s ItemSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, it := range sorted {
		out[i] = string(it)
	}
	return out
}

// Key returns a canonical string encoding, stable across runs, usable as a
// map key or a persistence column.
func (s ItemSet) Key() string {
	return strings.Join(s.Strings(), ",")
}

// ParseItemSetKey rebuilds a set from its canonical Key encoding
func ParseItemSetKey(key string) ItemSet {
	if key == "" {
		return ItemSet{}
	}
	parts := strings.Split(key, ",")
	s := make(ItemSet, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		s[core.ItemID(p)] = struct{}{}
	}
	return s
}
