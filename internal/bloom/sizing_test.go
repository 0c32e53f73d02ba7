package bloom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

func TestShapeFor(t *testing.T) {
	shape, err := ShapeFor(1000, 0.001)
	require.NoError(t, err)
	require.Equal(t, Shape{Size: 14378, HashCount: 10}, shape)

	shape, err = ShapeFor(10, 0.01)
	require.NoError(t, err)
	require.Equal(t, Shape{Size: 96, HashCount: 7}, shape)

	// A loose rate on a single item still yields a usable filter.
	shape, err = ShapeFor(1, 0.99)
	require.NoError(t, err)
	require.Equal(t, MinSize, shape.Size)
	require.Equal(t, MinHashCount, shape.HashCount)
}

func TestCheckParams(t *testing.T) {
	require.NoError(t, CheckParams(1, 0.5))
	require.ErrorIs(t, CheckParams(0, 0.01), apperrors.ErrInvalidConfig)
	require.ErrorIs(t, CheckParams(10, 0), apperrors.ErrInvalidConfig)
	require.ErrorIs(t, CheckParams(10, 1), apperrors.ErrInvalidConfig)
	require.ErrorIs(t, CheckParams(10, -0.1), apperrors.ErrInvalidConfig)
	require.ErrorIs(t, CheckParams(10, math.NaN()), apperrors.ErrInvalidConfig)
}

func TestOptimalSizeOverflow(t *testing.T) {
	_, err := OptimalSize(math.MaxUint32, 1e-12)
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestShapeValidate(t *testing.T) {
	require.NoError(t, Shape{Size: 1000, HashCount: 3}.Validate())
	require.ErrorIs(t, Shape{Size: 0, HashCount: 3}.Validate(), apperrors.ErrInvalidConfig)
	require.ErrorIs(t, Shape{Size: 1000, HashCount: 0}.Validate(), apperrors.ErrInvalidConfig)
}

func TestShapeFalsePositiveRate(t *testing.T) {
	shape, err := ShapeFor(1000, 0.001)
	require.NoError(t, err)
	require.InDelta(t, 0.001, shape.FalsePositiveRate(1000), 0.0002)
	require.Zero(t, shape.FalsePositiveRate(0))
}
