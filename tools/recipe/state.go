package recipe

// State is what one run knows about one kind.
//
// Buildable is only ever true for a Preferred kind: either nothing with this
// kind was found already, or the caller asked to include existing kinds.
type State struct {
	Kind      *Kind
	Preferred bool
	Existing  bool
	Buildable bool
	Selected  bool
	Document  *Document
}

// States is the per-run state list in walk order.
type States []*State

// NewStates creates one state per kind in walk order. Every kind in
// preferred is marked Preferred; a nil preferred means all kinds.
func NewStates(reg *Registry, preferred []string) States {
	want := make(map[string]bool, len(preferred))
	for _, p := range preferred {
		want[p] = true
	}
	walk := reg.Walk()
	out := make(States, 0, len(walk))
	for _, k := range walk {
		out = append(out, &State{
			Kind:      k,
			Preferred: preferred == nil || want[k.Name],
		})
	}
	return out
}

// Get returns the state for the named kind.
func (s States) Get(name string) *State {
	for _, st := range s {
		if st.Kind.Name == name {
			return st
		}
	}
	return nil
}

// Buildable returns the states marked buildable, in walk order.
func (s States) Buildable() States {
	var out States
	for _, st := range s {
		if st.Buildable {
			out = append(out, st)
		}
	}
	return out
}

// Select marks buildable kinds as selected. A nil names selects every
// buildable kind; names that are not buildable are returned.
func (s States) Select(names []string) []string {
	if names == nil {
		for _, st := range s {
			st.Selected = st.Buildable
		}
		return nil
	}
	var skipped []string
	for _, st := range s {
		st.Selected = false
	}
	for _, n := range names {
		st := s.Get(n)
		if st == nil || !st.Buildable {
			skipped = append(skipped, n)
			continue
		}
		st.Selected = true
	}
	return skipped
}
