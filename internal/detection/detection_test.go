package detection

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/network"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

func newClock(t *testing.T) *Clock {
	t.Helper()
	c, err := NewClock(config.Default().Epoch)
	require.NoError(t, err)
	return c
}

func TestClock(t *testing.T) {
	c := newClock(t)
	require.Equal(t, 5, c.Length())
	require.Equal(t, 288, c.EpochCount())
	require.Equal(t, 60, c.FirstEpoch())
	require.Equal(t, 276, c.LastReturnEpoch())
	require.Equal(t, 60, c.Epoch(304.9))
	require.Equal(t, 61, c.Epoch(305))
	require.Equal(t, -1, c.Epoch(-0.5))
}

func TestClockLastMinuteWithPartialEpoch(t *testing.T) {
	cases := map[int]struct{ epochs, lastMinute int }{
		5:  {288, 1439},
		7:  {205, 1434},
		50: {28, 1399},
	}
	for length, want := range cases {
		day := config.Default().Epoch
		day.LengthMinutes = length
		c, err := NewClock(day)
		require.NoError(t, err)
		require.Equal(t, want.epochs, c.EpochCount(), "length %d", length)
		require.Equal(t, want.lastMinute, c.LastMinute(), "length %d", length)
		require.Equal(t, c.EpochCount()-1, c.Epoch(float64(c.LastMinute())+0.9))
	}
}

func TestNewClockRejectsBadDay(t *testing.T) {
	day := config.Default().Epoch
	day.LengthMinutes = 0
	_, err := NewClock(day)
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	day = config.Default().Epoch
	day.StartOfDay = day.EndOfDay
	_, err = NewClock(day)
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	day = config.Default().Epoch
	day.StartOfDay = 1000
	day.LengthMinutes = 1000
	_, err = NewClock(day)
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestDetectionValidate(t *testing.T) {
	d := Detection{TravelerID: 7, DepartureEpoch: 70, ArrivalEpoch: 74}
	require.NoError(t, d.Validate(288))

	d.ArrivalEpoch = 69
	require.ErrorIs(t, d.Validate(288), apperrors.ErrInvalidInput)

	d.ArrivalEpoch = 288
	require.ErrorIs(t, d.Validate(288), apperrors.ErrInvalidInput)
}

func twoLocationNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := network.New(2)
	require.NoError(t, n.AddBidirectional(
		network.Link{Src: 0, Dst: 1, MeanDuration: 20, StdDuration: 4},
		network.Link{Src: 1, Dst: 0, MeanDuration: 20, StdDuration: 4},
	))
	return n
}

func TestGenerateTrips(t *testing.T) {
	clock := newClock(t)
	day := clock.Day()
	rng := rand.New(rand.NewPCG(42, 7))
	g := NewGenerator(rng, twoLocationNetwork(t), clock, 0.5)

	trips, err := g.Generate(500)
	require.NoError(t, err)
	require.Equal(t, 500, trips.Travelers)
	require.Len(t, trips.Detections, trips.Travelers+trips.Returners)
	require.Greater(t, trips.Returners, 150)
	require.Less(t, trips.Returners, 350)

	perTraveler := make(map[uint64][]Detection)
	for _, d := range trips.Detections {
		require.NoError(t, d.Validate(clock.EpochCount()))
		require.GreaterOrEqual(t, d.DepartureEpoch, clock.FirstEpoch())
		perTraveler[d.TravelerID] = append(perTraveler[d.TravelerID], d)
	}
	require.Len(t, perTraveler, 500)

	for id, ds := range perTraveler {
		require.LessOrEqual(t, len(ds), 2)
		require.LessOrEqual(t, ds[0].DepartureEpoch, clock.Epoch(float64(day.LastOutwardDeparture)))
		if len(ds) == 2 {
			require.True(t, ds[0].Link.Reverse(ds[1].Link), "traveler %d", id)
			require.LessOrEqual(t, ds[0].ArrivalEpoch, ds[1].DepartureEpoch)
			require.LessOrEqual(t, ds[1].DepartureEpoch, clock.LastReturnEpoch())
		}
	}
}

func TestGenerateStaysInsideWholeEpochs(t *testing.T) {
	for _, length := range []int{7, 50} {
		day := config.Default().Epoch
		day.LengthMinutes = length
		clock, err := NewClock(day)
		require.NoError(t, err)

		rng := rand.New(rand.NewPCG(uint64(length), 9))
		g := NewGenerator(rng, twoLocationNetwork(t), clock, 1)
		trips, err := g.Generate(2000)
		require.NoError(t, err)
		for _, d := range trips.Detections {
			require.NoError(t, d.Validate(clock.EpochCount()), "length %d", length)
		}
	}
}

func TestGenerateWithoutReturns(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	g := NewGenerator(rng, twoLocationNetwork(t), newClock(t), 0)

	trips, err := g.Generate(100)
	require.NoError(t, err)
	require.Zero(t, trips.Returners)
	require.Len(t, trips.Detections, 100)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	g := NewGenerator(rng, twoLocationNetwork(t), newClock(t), 0.5)
	_, err := g.Generate(0)
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	g = NewGenerator(rng, network.New(3), newClock(t), 0.5)
	_, err = g.Generate(10)
	require.ErrorIs(t, err, apperrors.ErrNoLinks)
}

func TestSampleIDsAreDistinct(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	ids := sampleIDs(rng, 50, 50)
	seen := make(map[uint64]bool)
	for _, id := range ids {
		require.Less(t, id, uint64(50))
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Len(t, seen, 50)
}
