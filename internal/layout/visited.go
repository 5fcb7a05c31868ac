package layout

// visitedSet records the names of aggregates already emitted, in the order
// they were first marked.
type visitedSet struct {
	seen  map[string]bool
	order []string
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]bool)}
}

// Contains reports whether name has been marked.
func (v *visitedSet) Contains(name string) bool {
	return v.seen[name]
}

// Mark records name. It returns false if name was already marked.
func (v *visitedSet) Mark(name string) bool {
	if v.seen[name] {
		return false
	}
	v.seen[name] = true
	v.order = append(v.order, name)
	return true
}

// Names returns the marked names in marking order.
func (v *visitedSet) Names() []string {
	return append([]string(nil), v.order...)
}

func (v *visitedSet) Len() int { return len(v.order) }
