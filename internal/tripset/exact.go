package tripset

// ExactSet is a plain hash set of ids.
type ExactSet struct {
	ids map[uint64]struct{}
}

// NewExactSet returns an empty exact set.
func NewExactSet() *ExactSet {
	return &ExactSet{ids: make(map[uint64]struct{})}
}

func (s *ExactSet) Insert(id uint64) {
	s.ids[id] = struct{}{}
}

func (s *ExactSet) Contains(id uint64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *ExactSet) Estimate() (uint64, bool) {
	return uint64(len(s.ids)), false
}

func (s *ExactSet) IsEmpty() bool {
	return len(s.ids) == 0
}

// IDs returns the members in no particular order.
func (s *ExactSet) IDs() []uint64 {
	out := make([]uint64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

func (s *ExactSet) Union(other Set) (Set, error) {
	o, ok := other.(*ExactSet)
	if !ok {
		return nil, mismatch(s, other)
	}
	out := &ExactSet{ids: make(map[uint64]struct{}, len(s.ids)+len(o.ids))}
	for id := range s.ids {
		out.ids[id] = struct{}{}
	}
	for id := range o.ids {
		out.ids[id] = struct{}{}
	}
	return out, nil
}

func (s *ExactSet) Intersect(other Set) (Set, error) {
	o, ok := other.(*ExactSet)
	if !ok {
		return nil, mismatch(s, other)
	}
	small, large := s.ids, o.ids
	if len(large) < len(small) {
		small, large = large, small
	}
	out := NewExactSet()
	for id := range small {
		if _, ok := large[id]; ok {
			out.ids[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *ExactSet) Merge(other Set) error {
	o, ok := other.(*ExactSet)
	if !ok {
		return mismatch(s, other)
	}
	for id := range o.ids {
		s.ids[id] = struct{}{}
	}
	return nil
}

type exactBacking struct{}

// NewExactBacking returns the reference backing.
func NewExactBacking() Backing {
	return exactBacking{}
}

func (exactBacking) Kind() Kind { return KindExact }
func (exactBacking) New() Set   { return NewExactSet() }
