package model

import "sort"

// FieldSet is a set of point-in-time field names with a pending local write.
type FieldSet map[string]struct{}

// NewFieldSet returns a set holding names.
func NewFieldSet(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	fs.Add(names...)
	return fs
}

func (fs FieldSet) Add(names ...string) {
	for _, n := range names {
		fs[n] = struct{}{}
	}
}

func (fs FieldSet) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// Slice returns the names in sorted order.
func (fs FieldSet) Slice() []string {
	out := make([]string, 0, len(fs))
	for n := range fs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
