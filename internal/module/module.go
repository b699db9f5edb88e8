package module

import (
	"fmt"
	"sort"
	"strings"
)

// ID identifies one repeater module, e.g. "A".
type ID string

// DefaultSet is the module set of a stock three-module g2_link install.
const DefaultSet = "ABC"

// Set is an ordered collection of distinct module identifiers.
type Set []ID

// ParseSet turns a string of module letters such as "ABC" into a Set.
// Each character is one module; duplicates and whitespace are rejected.
func ParseSet(letters string) (Set, error) {
	if letters == "" {
		return nil, fmt.Errorf("module set is empty")
	}
	seen := make(map[ID]bool, len(letters))
	set := make(Set, 0, len(letters))
	for _, r := range letters {
		if r > 0x7f || r <= ' ' {
			return nil, fmt.Errorf("invalid module %q in set %q", r, letters)
		}
		id := ID(r)
		if seen[id] {
			return nil, fmt.Errorf("module %s listed twice in set %q", id, letters)
		}
		seen[id] = true
		set = append(set, id)
	}
	return set, nil
}

// String renders the set back into its letter form.
func (s Set) String() string {
	var b strings.Builder
	for _, id := range s {
		b.WriteString(string(id))
	}
	return b.String()
}

// Contains reports whether id is a member of the set.
func (s Set) Contains(id ID) bool {
	for _, m := range s {
		if m == id {
			return true
		}
	}
	return false
}

// Sorted returns the keys of a module-keyed map in lexical order.
func Sorted[V any](m map[ID]V) []ID {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
