package tripset

import (
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/bloom"
)

// BloomSet adapts a bloom.Filter to Set.
type BloomSet struct {
	f *bloom.Filter
}

// Filter exposes the underlying filter.
func (s *BloomSet) Filter() *bloom.Filter {
	return s.f
}

func (s *BloomSet) Insert(id uint64)        { s.f.Insert(id) }
func (s *BloomSet) Contains(id uint64) bool { return s.f.Contains(id) }
func (s *BloomSet) IsEmpty() bool           { return s.f.IsEmpty() }
func (s *BloomSet) FillRatio() float64      { return s.f.FillRatio() }

func (s *BloomSet) Estimate() (uint64, bool) {
	est := s.f.EstimatedCardinality()
	return est.Count, est.Saturated
}

func (s *BloomSet) Union(other Set) (Set, error) {
	o, ok := other.(*BloomSet)
	if !ok {
		return nil, mismatch(s, other)
	}
	f, err := s.f.Union(o.f)
	if err != nil {
		return nil, err
	}
	return &BloomSet{f: f}, nil
}

func (s *BloomSet) Intersect(other Set) (Set, error) {
	o, ok := other.(*BloomSet)
	if !ok {
		return nil, mismatch(s, other)
	}
	f, err := s.f.Intersect(o.f)
	if err != nil {
		return nil, err
	}
	return &BloomSet{f: f}, nil
}

func (s *BloomSet) Merge(other Set) error {
	o, ok := other.(*BloomSet)
	if !ok {
		return mismatch(s, other)
	}
	return s.f.Merge(o.f)
}

type bloomBacking struct {
	shape bloom.Shape
}

// NewBloomBacking returns a backing whose filters are sized for
// expectedCount items at the target false positive rate.
func NewBloomBacking(expectedCount uint64, fpRate float64) (Backing, error) {
	shape, err := bloom.ShapeFor(expectedCount, fpRate)
	if err != nil {
		return nil, err
	}
	return bloomBacking{shape: shape}, nil
}

// NewFixedBloomBacking returns a backing with an explicit filter size and
// hash count.
func NewFixedBloomBacking(shape bloom.Shape) (Backing, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return bloomBacking{shape: shape}, nil
}

func (b bloomBacking) Kind() Kind         { return KindBloom }
func (b bloomBacking) Shape() bloom.Shape { return b.shape }

func (b bloomBacking) New() Set {
	f, err := bloom.NewWithShape(b.shape)
	if err != nil {
		// The shape was validated when the backing was built.
		panic(err)
	}
	return &BloomSet{f: f}
}
