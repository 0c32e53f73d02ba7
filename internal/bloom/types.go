package bloom

import "math"

const (
	// MinSize is the smallest bit array a filter may have.
	MinSize uint32 = 1

	// MinHashCount is the smallest number of hash functions a filter may use.
	MinHashCount uint32 = 1

	// MaxSize bounds the bit array so that bit indexes fit an int on every
	// platform.
	MaxSize uint32 = math.MaxInt32
)

// Shape identifies the parameters two filters must share before they can be
// combined.
type Shape struct {
	Size      uint32
	HashCount uint32
}

// Estimate is the result of a cardinality estimation.
type Estimate struct {
	Count uint64

	// Saturated is set when every bit of the filter is set and Count has been
	// clamped to the filter size.
	Saturated bool
}
