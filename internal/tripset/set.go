// Package tripset defines the set algebra the matcher is written against and
// its two backings: an exact hash set and a Bloom filter. The backing is
// chosen once, when a Backing is constructed; every set it creates shares the
// same shape so sets from one index can always be combined.
package tripset

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Set holds traveler ids.
type Set interface {
	Insert(id uint64)
	Contains(id uint64) bool

	// Estimate returns the exact size for exact sets and the cardinality
	// estimate for approximate ones. saturated is only ever true for an
	// approximate set whose bits are all set.
	Estimate() (n uint64, saturated bool)

	// IsEmpty reports whether nothing was ever inserted or merged in.
	IsEmpty() bool

	Union(other Set) (Set, error)
	Intersect(other Set) (Set, error)

	// Merge unions other into the receiver in place.
	Merge(other Set) error
}

// FillReporter is implemented by sets with a bit array.
type FillReporter interface {
	FillRatio() float64
}

// Kind names a backing.
type Kind int

const (
	KindExact Kind = iota
	KindBloom
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindBloom:
		return "bloom"
	default:
		return "unknown"
	}
}

// Flag is the single-letter backing marker used in results lines.
func (k Kind) Flag() string {
	if k == KindExact {
		return "S"
	}
	return "B"
}

// Backing creates empty sets of one kind and shape.
type Backing interface {
	Kind() Kind
	New() Set
}

func mismatch(a, b Set) error {
	return apperrors.Newf(apperrors.ErrShapeMismatch, "cannot combine %T with %T", a, b)
}

// FillRatio returns the bit fill ratio of s, or 0 for sets without a bit
// array.
func FillRatio(s Set) float64 {
	if fr, ok := s.(FillReporter); ok {
		return fr.FillRatio()
	}
	return 0
}
