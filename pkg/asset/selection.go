package asset

// SelectionMode determines how a Selection filters dependency edges.
type SelectionMode string

const (
	// SelectAllow restricts participation to the listed parents.
	SelectAllow SelectionMode = "allow"
	// SelectIgnore excludes the listed parents from participation.
	SelectIgnore SelectionMode = "ignore"
)

// Selection is an allow/ignore filter over a child's dependency edges. It is
// declarative graph metadata: it is resolved against the static dependency
// set and has no evaluation behavior of its own.
//
// A nil *Selection admits every parent.
type Selection struct {
	Mode SelectionMode
	Keys []Key
}

// Allow builds a selection admitting only the given parents.
func Allow(keys ...Key) *Selection {
	return &Selection{Mode: SelectAllow, Keys: keys}
}

// Ignore builds a selection excluding the given parents.
func Ignore(keys ...Key) *Selection {
	return &Selection{Mode: SelectIgnore, Keys: keys}
}

// Admits reports whether the given parent participates under the selection.
func (s *Selection) Admits(parent Key) bool {
	if s == nil {
		return true
	}
	listed := false
	for _, k := range s.Keys {
		if k == parent {
			listed = true
			break
		}
	}
	if s.Mode == SelectAllow {
		return listed
	}
	return !listed
}

// Filter returns the dependency edges admitted by the selection, in the
// child's declared order.
func (s *Selection) Filter(deps []Dep) []Dep {
	if s == nil {
		return deps
	}
	var out []Dep
	for _, dep := range deps {
		if s.Admits(dep.Parent) {
			out = append(out, dep)
		}
	}
	return out
}
