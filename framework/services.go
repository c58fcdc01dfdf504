package framework

import (
	"strings"

	"golang.org/x/exp/slices"
)

// ServiceNames is a list of logical service names, such as the services declared by a compose
// project.
type ServiceNames []string

// Has returns true if the specified service appears in the list.
func (s ServiceNames) Has(name string) bool {
	return slices.Contains(s, name)
}

// Missing returns the names from wanted that do not appear in the list, in the order given.
func (s ServiceNames) Missing(wanted ...string) []string {
	var ret []string
	for _, w := range wanted {
		if !s.Has(w) {
			ret = append(ret, w)
		}
	}
	return ret
}

// Sorted returns a sorted copy of the list.
func (s ServiceNames) Sorted() ServiceNames {
	ret := slices.Clone(s)
	slices.Sort(ret)
	return ret
}

func (s ServiceNames) String() string {
	return strings.Join(s, ", ")
}
