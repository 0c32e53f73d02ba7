package bloom

import (
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// CheckParams validates the parameters used to size a filter.
func CheckParams(expectedCount uint64, fpRate float64) error {
	if expectedCount == 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "bloom: expected count must be positive")
	}
	if math.IsNaN(fpRate) || fpRate <= 0 || fpRate >= 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "bloom: false positive rate %v outside (0,1)", fpRate)
	}
	return nil
}

// OptimalSize returns ceil(-(n * ln p) / ln(2)^2), at least MinSize.
//
// The caller is responsible for validating the inputs with CheckParams.
func OptimalSize(expectedCount uint64, fpRate float64) (uint32, error) {
	m := math.Ceil(-(float64(expectedCount) * math.Log(fpRate)) / (math.Ln2 * math.Ln2))
	if m > float64(MaxSize) {
		return 0, apperrors.Newf(apperrors.ErrInvalidConfig,
			"bloom: %d items at rate %v needs %.0f bits, above %d", expectedCount, fpRate, m, MaxSize)
	}
	if m < float64(MinSize) {
		return MinSize, nil
	}
	return uint32(m), nil
}

// OptimalHashCount returns round((size / n) * ln 2), at least MinHashCount.
func OptimalHashCount(size uint32, expectedCount uint64) uint32 {
	k := math.Round(float64(size) / float64(expectedCount) * math.Ln2)
	if k < float64(MinHashCount) {
		return MinHashCount
	}
	return uint32(k)
}

// ShapeFor derives the shape of a filter holding expectedCount items at the
// target false positive rate.
func ShapeFor(expectedCount uint64, fpRate float64) (Shape, error) {
	if err := CheckParams(expectedCount, fpRate); err != nil {
		return Shape{}, err
	}
	size, err := OptimalSize(expectedCount, fpRate)
	if err != nil {
		return Shape{}, err
	}
	return Shape{Size: size, HashCount: OptimalHashCount(size, expectedCount)}, nil
}

// FalsePositiveRate returns the expected false positive probability of a
// filter of the given shape after n distinct insertions:
//
//	(1 - e^(-k*n/m))^k
func (s Shape) FalsePositiveRate(n uint64) float64 {
	k := float64(s.HashCount)
	return math.Pow(1-math.Exp(-k*float64(n)/float64(s.Size)), k)
}

// Validate reports whether the shape can back a filter.
func (s Shape) Validate() error {
	if s.Size < MinSize || s.Size > MaxSize {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "bloom: size %d outside [%d,%d]", s.Size, MinSize, MaxSize)
	}
	if s.HashCount < MinHashCount {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "bloom: hash count %d below %d", s.HashCount, MinHashCount)
	}
	return nil
}
