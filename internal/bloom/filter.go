package bloom

import (
	"math"
	"math/bits"
	"strconv"

	"github.com/jrick/bitset"
	"github.com/spaolacci/murmur3"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Filter is a Bloom filter over uint64 item ids.
//
// A Filter is not safe for concurrent mutation. Concurrent readers are fine
// once no goroutine inserts or merges into it.
type Filter struct {
	shape Shape
	bits  bitset.Bytes
}

// New returns an empty filter sized for expectedCount items at the target
// false positive rate.
func New(expectedCount uint64, fpRate float64) (*Filter, error) {
	shape, err := ShapeFor(expectedCount, fpRate)
	if err != nil {
		return nil, err
	}
	return newFilter(shape), nil
}

// NewWithShape returns an empty filter with a fixed size and hash count,
// bypassing the sizing formulas.
func NewWithShape(shape Shape) (*Filter, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return newFilter(shape), nil
}

func newFilter(shape Shape) *Filter {
	return &Filter{
		shape: shape,
		bits:  bitset.NewBytes(int(shape.Size)),
	}
}

func (f *Filter) Shape() Shape      { return f.shape }
func (f *Filter) Size() uint32      { return f.shape.Size }
func (f *Filter) HashCount() uint32 { return f.shape.HashCount }

// Insert sets the hashCount bits selected for item.
func (f *Filter) Insert(item uint64) {
	var buf [20]byte
	key := itemKey(buf[:], item)
	for seed := uint32(0); seed < f.shape.HashCount; seed++ {
		f.bits.Set(f.digest(key, seed))
	}
}

// Contains reports whether item may have been inserted. It never returns
// false for an inserted item.
func (f *Filter) Contains(item uint64) bool {
	var buf [20]byte
	key := itemKey(buf[:], item)
	for seed := uint32(0); seed < f.shape.HashCount; seed++ {
		if !f.bits.Get(f.digest(key, seed)) {
			return false
		}
	}
	return true
}

// Ones returns the number of set bits.
func (f *Filter) Ones() uint64 {
	var ones uint64
	for _, b := range f.bits {
		ones += uint64(bits.OnesCount8(b))
	}
	return ones
}

// FillRatio returns Ones() / Size().
func (f *Filter) FillRatio() float64 {
	return float64(f.Ones()) / float64(f.shape.Size)
}

// IsEmpty reports whether no bit is set.
func (f *Filter) IsEmpty() bool {
	for _, b := range f.bits {
		if b != 0 {
			return false
		}
	}
	return true
}

// EstimatedCardinality estimates the number of distinct items inserted.
func (f *Filter) EstimatedCardinality() Estimate {
	ones := f.Ones()
	if ones >= uint64(f.shape.Size) {
		return Estimate{Count: uint64(f.shape.Size), Saturated: true}
	}
	m := float64(f.shape.Size)
	n := -(m / float64(f.shape.HashCount)) * math.Log1p(-float64(ones)/m)
	return Estimate{Count: uint64(math.Round(n))}
}

// Union returns a new filter holding the bitwise OR of f and other.
func (f *Filter) Union(other *Filter) (*Filter, error) {
	if err := f.checkShape(other); err != nil {
		return nil, err
	}
	out := f.Clone()
	for i := range out.bits {
		out.bits[i] |= other.bits[i]
	}
	return out, nil
}

// Merge ORs other into f in place.
func (f *Filter) Merge(other *Filter) error {
	if err := f.checkShape(other); err != nil {
		return err
	}
	for i := range f.bits {
		f.bits[i] |= other.bits[i]
	}
	return nil
}

// Intersect returns a new filter holding the bitwise AND of f and other.
func (f *Filter) Intersect(other *Filter) (*Filter, error) {
	if err := f.checkShape(other); err != nil {
		return nil, err
	}
	out := f.Clone()
	for i := range out.bits {
		out.bits[i] &= other.bits[i]
	}
	return out, nil
}

// Clone returns an independent copy of f.
func (f *Filter) Clone() *Filter {
	out := newFilter(f.shape)
	copy(out.bits, f.bits)
	return out
}

// Bytes returns a copy of the bit array, LSB-first within each byte.
func (f *Filter) Bytes() []byte {
	out := make([]byte, len(f.bits))
	copy(out, f.bits)
	return out
}

func (f *Filter) checkShape(other *Filter) error {
	if other == nil {
		return apperrors.New(apperrors.ErrShapeMismatch, "bloom: nil operand")
	}
	if f.shape != other.shape {
		return apperrors.Newf(apperrors.ErrShapeMismatch,
			"bloom: size/hashes %d/%d vs %d/%d",
			f.shape.Size, f.shape.HashCount, other.shape.Size, other.shape.HashCount)
	}
	return nil
}

// digest returns murmur3(key, seed) mod size.
func (f *Filter) digest(key []byte, seed uint32) int {
	return int(murmur3.Sum32WithSeed(key, seed) % f.shape.Size)
}

// itemKey renders item in decimal so ids hash the same way whether they came
// from a generator or from a CSV column.
func itemKey(buf []byte, item uint64) []byte {
	return strconv.AppendUint(buf[:0], item, 10)
}
