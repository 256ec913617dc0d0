package partition

import (
	"sort"
	"strings"
)

// Key identifies a single partition within a target's partition space.
type Key string

// DefaultKey is the implicit partition key of unpartitioned targets.
// Subsets over unpartitioned targets contain either DefaultKey or nothing.
const DefaultKey Key = "__default__"

// Subset is an immutable set of partition keys.
//
// The zero value is the empty subset. All set operations return new subsets
// and never mutate their receivers or arguments.
type Subset struct {
	keys map[Key]struct{}
}

// Empty returns the empty subset.
func Empty() Subset {
	return Subset{}
}

// NewSubset builds a subset containing the given keys.
func NewSubset(keys ...Key) Subset {
	if len(keys) == 0 {
		return Subset{}
	}
	m := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return Subset{keys: m}
}

// Single returns the one-element subset {key}.
func Single(key Key) Subset {
	return NewSubset(key)
}

// Bool returns the subset representation of a boolean for an unpartitioned
// target: {DefaultKey} when v is true, empty otherwise.
func Bool(v bool) Subset {
	if v {
		return Single(DefaultKey)
	}
	return Subset{}
}

// Len returns the number of partitions in the subset.
func (s Subset) Len() int {
	return len(s.keys)
}

// IsEmpty reports whether the subset contains no partitions.
func (s Subset) IsEmpty() bool {
	return len(s.keys) == 0
}

// Contains reports whether the subset contains the given partition key.
func (s Subset) Contains(key Key) bool {
	_, ok := s.keys[key]
	return ok
}

// Union returns a new subset containing every key in s or other.
func (s Subset) Union(other Subset) Subset {
	if s.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return s
	}
	m := make(map[Key]struct{}, len(s.keys)+len(other.keys))
	for k := range s.keys {
		m[k] = struct{}{}
	}
	for k := range other.keys {
		m[k] = struct{}{}
	}
	return Subset{keys: m}
}

// Intersect returns a new subset containing every key in both s and other.
func (s Subset) Intersect(other Subset) Subset {
	if s.IsEmpty() || other.IsEmpty() {
		return Subset{}
	}
	// Iterate the smaller side.
	small, large := s, other
	if len(large.keys) < len(small.keys) {
		small, large = large, small
	}
	m := make(map[Key]struct{})
	for k := range small.keys {
		if _, ok := large.keys[k]; ok {
			m[k] = struct{}{}
		}
	}
	if len(m) == 0 {
		return Subset{}
	}
	return Subset{keys: m}
}

// Subtract returns a new subset containing every key in s that is not in other.
func (s Subset) Subtract(other Subset) Subset {
	if s.IsEmpty() || other.IsEmpty() {
		return s
	}
	m := make(map[Key]struct{})
	for k := range s.keys {
		if _, ok := other.keys[k]; !ok {
			m[k] = struct{}{}
		}
	}
	if len(m) == 0 {
		return Subset{}
	}
	return Subset{keys: m}
}

// Equal reports set equality with other.
func (s Subset) Equal(other Subset) bool {
	if len(s.keys) != len(other.keys) {
		return false
	}
	for k := range s.keys {
		if _, ok := other.keys[k]; !ok {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every key in s is also in other.
func (s Subset) IsSubsetOf(other Subset) bool {
	if len(s.keys) > len(other.keys) {
		return false
	}
	for k := range s.keys {
		if _, ok := other.keys[k]; !ok {
			return false
		}
	}
	return true
}

// Keys returns the subset's partition keys in sorted order.
func (s Subset) Keys() []Key {
	if len(s.keys) == 0 {
		return nil
	}
	keys := make([]Key, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// String renders the subset as a sorted, comma-separated key list.
func (s Subset) String() string {
	keys := s.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
