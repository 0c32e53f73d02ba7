package matcher

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/detection"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/index"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/network"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

var (
	ab = network.Link{Src: 0, Dst: 1, MeanDuration: 20, StdDuration: 4}
	ba = network.Link{Src: 1, Dst: 0, MeanDuration: 20, StdDuration: 4}
)

func defaultClock(t testing.TB) *detection.Clock {
	t.Helper()
	clock, err := detection.NewClock(config.Default().Epoch)
	require.NoError(t, err)
	return clock
}

func defaultWindows(t testing.TB) TimingWindows {
	return NewTimingWindows(defaultClock(t), config.Default().Timing)
}

// threeCommuters make one round trip each in disjoint epochs.
func threeCommuters() []detection.Detection {
	trip := func(id uint64, l network.Link, dep, arr int) detection.Detection {
		return detection.Detection{TravelerID: id, Link: l, DepartureEpoch: dep, ArrivalEpoch: arr}
	}
	return []detection.Detection{
		trip(1, ab, 96, 100), trip(1, ba, 204, 208),
		trip(2, ab, 84, 88), trip(2, ba, 192, 195),
		trip(3, ab, 114, 118), trip(3, ba, 222, 225),
	}
}

func newMatcher(t testing.TB, ds []detection.Detection, backing tripset.Backing, opts Options) *Matcher {
	t.Helper()
	idx, err := index.Build(ds, index.Options{EpochCount: 288, LocationCount: 2}, backing)
	require.NoError(t, err)
	return New(idx, defaultWindows(t), opts)
}

func TestArrivalWindowInvariant(t *testing.T) {
	for _, length := range []int{1, 2, 5, 10, 15, 30, 60, 120} {
		day := config.Default().Epoch
		day.LengthMinutes = length
		clock, err := detection.NewClock(day)
		require.NoError(t, err)
		w := NewTimingWindows(clock, config.Default().Timing)

		deps := w.Departures()
		for dep := deps.Min; dep < deps.Max; dep++ {
			win := w.Arrivals(dep)
			require.Less(t, dep, win.Min, "length %d dep %d", length, dep)
			require.LessOrEqual(t, win.Min, win.Max, "length %d dep %d", length, dep)
			require.LessOrEqual(t, win.Max, clock.EpochCount(), "length %d dep %d", length, dep)
		}
	}
}

func TestTimingWindows(t *testing.T) {
	w := defaultWindows(t)
	require.Equal(t, Window{Min: 60, Max: 288}, w.Departures())
	require.Equal(t, Window{Min: 97, Max: 105}, w.Arrivals(96))
	require.Equal(t, Window{Min: 288, Max: 288}, w.Arrivals(287))
	require.Equal(t, Window{Min: 101, Max: 276}, w.ReturnDepartures(100))
	require.Zero(t, w.ReturnDepartures(280).Len())
}

func TestFixedWindows(t *testing.T) {
	w := FixedWindows{Span: 9, Epochs: 20}
	require.Equal(t, Window{Min: 0, Max: 20}, w.Departures())
	require.Equal(t, Window{Min: 4, Max: 13}, w.Arrivals(3))
	require.Equal(t, Window{Min: 16, Max: 20}, w.Arrivals(15))
	require.Zero(t, w.Arrivals(19).Len())
	require.Equal(t, Window{Min: 6, Max: 20}, w.ReturnDepartures(5))
}

func TestThreeCommutersExact(t *testing.T) {
	m := newMatcher(t, threeCommuters(), tripset.NewExactBacking(), Options{})

	totals, err := m.AllCommuters(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(3), totals.Coarse)
	require.Equal(t, uint64(3), totals.Mid)
	require.Equal(t, uint64(3), totals.Fine)
	require.False(t, totals.Saturated)
	for _, id := range []uint64{1, 2, 3} {
		require.True(t, totals.Set.Contains(id))
	}
}

func TestThreeCommutersBloom(t *testing.T) {
	backing, err := tripset.NewBloomBacking(1000, 0.001)
	require.NoError(t, err)
	m := newMatcher(t, threeCommuters(), backing, Options{})

	totals, err := m.AllCommuters(context.Background())
	require.NoError(t, err)
	for _, id := range []uint64{1, 2, 3} {
		require.True(t, totals.Set.Contains(id))
	}
	require.InDelta(t, 3, float64(totals.Coarse), 1)
}

func TestTwoWayTripsReportsSaturation(t *testing.T) {
	backing, err := tripset.NewBloomBacking(10, 0.01)
	require.NoError(t, err)
	var ds []detection.Detection
	for id := uint64(0); id < 10_000; id++ {
		ds = append(ds,
			detection.Detection{TravelerID: id, Link: ab, DepartureEpoch: 96, ArrivalEpoch: 100},
			detection.Detection{TravelerID: id, Link: ba, DepartureEpoch: 204, ArrivalEpoch: 208},
		)
	}
	m := newMatcher(t, ds, backing, Options{})

	both, size, saturated, err := m.TwoWayTrips(96, 100, 204, 208)
	require.NoError(t, err)
	require.True(t, saturated)
	n, sat := both.Estimate()
	require.Equal(t, n, size)
	require.True(t, sat)
}

func TestOneAndTwoWayTrips(t *testing.T) {
	m := newMatcher(t, threeCommuters(), tripset.NewExactBacking(), Options{})

	one, err := m.OneWayTrips(96, 100)
	require.NoError(t, err)
	require.True(t, one.Contains(1))
	n, _ := one.Estimate()
	require.Equal(t, uint64(1), n)

	both, size, saturated, err := m.TwoWayTrips(96, 100, 204, 208)
	require.NoError(t, err)
	require.Equal(t, uint64(1), size)
	require.False(t, saturated)
	require.True(t, both.Contains(1))

	_, size, _, err = m.TwoWayTrips(96, 100, 192, 195)
	require.NoError(t, err)
	require.Zero(t, size)

	p, err := m.CommutersForDeparture(context.Background(), 84)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.Sum)
	require.True(t, p.Set.Contains(2))

	p, err = m.CommutersForDeparture(context.Background(), 85)
	require.NoError(t, err)
	require.True(t, p.Set.IsEmpty())
	require.Equal(t, Window{Min: 97, Max: 105}, m.ExpectedArrivalEpochs(96))
}

func TestSingleTrips(t *testing.T) {
	m := newMatcher(t, threeCommuters(), tripset.NewExactBacking(), Options{})

	p, err := m.SingleTripsForDeparture(context.Background(), 96)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.Sum)

	totals, err := m.AllSingleTrips(context.Background())
	require.NoError(t, err)
	// Every traveler made two matching one-way trips.
	require.Equal(t, uint64(3), totals.Coarse)
	require.Equal(t, uint64(6), totals.Mid)
	require.Equal(t, uint64(6), totals.Fine)
}

func generated(t testing.TB, locations, trips int, seed uint64) ([]detection.Detection, detection.Trips) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	net, err := network.Generate(rng, locations, 1.0, config.Default().Timing)
	require.NoError(t, err)
	gen := detection.NewGenerator(rng, net, defaultClock(t), 0.5)
	out, err := gen.Generate(trips)
	require.NoError(t, err)
	return out.Detections, out
}

func travelerEpochs(ds []detection.Detection) map[uint64]map[int]bool {
	out := make(map[uint64]map[int]bool)
	for _, d := range ds {
		if out[d.TravelerID] == nil {
			out[d.TravelerID] = make(map[int]bool)
		}
		out[d.TravelerID][d.DepartureEpoch] = true
		out[d.TravelerID][d.ArrivalEpoch] = true
	}
	return out
}

// bruteCommuters walks every traveler's own epochs instead of intersecting
// buckets.
func bruteCommuters(w Windower, epochs map[uint64]map[int]bool) (coarse, mid, fine uint64) {
	deps := w.Departures()
	for _, seen := range epochs {
		counted := false
		for d1 := deps.Min; d1 < deps.Max; d1++ {
			if !seen[d1] {
				continue
			}
			found := false
			a1w := w.Arrivals(d1)
			for a1 := a1w.Min; a1 < a1w.Max; a1++ {
				if !seen[a1] {
					continue
				}
				rw := w.ReturnDepartures(a1)
				for d2 := rw.Min; d2 < rw.Max; d2++ {
					if !seen[d2] {
						continue
					}
					a2w := w.Arrivals(d2)
					for a2 := a2w.Min; a2 < a2w.Max; a2++ {
						if seen[a2] {
							fine++
							found = true
						}
					}
				}
			}
			if found {
				mid++
				counted = true
			}
		}
		if counted {
			coarse++
		}
	}
	return coarse, mid, fine
}

func TestExactModeMatchesBruteForce(t *testing.T) {
	for _, locations := range []int{2, 4} {
		ds, trips := generated(t, locations, 300, uint64(locations))
		m := newMatcherWithLocations(t, ds, locations, tripset.NewExactBacking(), Options{})

		totals, err := m.AllCommuters(context.Background())
		require.NoError(t, err)

		coarse, mid, fine := bruteCommuters(defaultWindows(t), travelerEpochs(ds))
		require.Equal(t, coarse, totals.Coarse)
		require.Equal(t, mid, totals.Mid)
		require.Equal(t, fine, totals.Fine)
		require.LessOrEqual(t, totals.Coarse, uint64(trips.Returners))
		require.Greater(t, totals.Coarse, uint64(0))
	}
}

func newMatcherWithLocations(t testing.TB, ds []detection.Detection, locations int, backing tripset.Backing, opts Options) *Matcher {
	t.Helper()
	idx, err := index.Build(ds, index.Options{EpochCount: 288, LocationCount: locations}, backing)
	require.NoError(t, err)
	return New(idx, defaultWindows(t), opts)
}

func TestParallelMatchesSequential(t *testing.T) {
	ds, _ := generated(t, 3, 400, 11)
	backing, err := tripset.NewBloomBacking(400, 0.01)
	require.NoError(t, err)

	seq, err := newMatcherWithLocations(t, ds, 3, backing, Options{}).AllCommuters(context.Background())
	require.NoError(t, err)
	par, err := newMatcherWithLocations(t, ds, 3, backing, Options{Parallelism: 4}).AllCommuters(context.Background())
	require.NoError(t, err)

	require.Equal(t, seq.Coarse, par.Coarse)
	require.Equal(t, seq.Mid, par.Mid)
	require.Equal(t, seq.Fine, par.Fine)
	require.Equal(t,
		seq.Set.(*tripset.BloomSet).Filter().Bytes(),
		par.Set.(*tripset.BloomSet).Filter().Bytes())
}

func TestWholeDayPassReleasesRows(t *testing.T) {
	ds, _ := generated(t, 2, 300, 5)
	for _, parallelism := range []int{1, 4} {
		m := newMatcherWithLocations(t, ds, 2, tripset.NewExactBacking(), Options{Parallelism: parallelism})
		want, err := m.AllCommuters(context.Background())
		require.NoError(t, err)

		trips := m.newOneWayTable()
		got, err := m.pass(context.Background(), trips, m.commuters)
		require.NoError(t, err)
		require.Equal(t, want.Coarse, got.Coarse)
		require.Equal(t, want.Mid, got.Mid)
		require.Equal(t, want.Fine, got.Fine)

		require.Zero(t, trips.live, "parallelism %d", parallelism)
		require.Equal(t, len(trips.rows), trips.settled)
		for _, row := range trips.rows {
			require.Nil(t, row)
		}
	}
}

func TestSingleTripPassHoldsOneRow(t *testing.T) {
	ds, _ := generated(t, 2, 300, 6)
	m := newMatcherWithLocations(t, ds, 2, tripset.NewExactBacking(), Options{})

	trips := m.newOneWayTable()
	_, err := m.pass(context.Background(), trips, m.singles)
	require.NoError(t, err)
	require.Equal(t, 1, trips.peak)
	require.Zero(t, trips.live)
}

func TestDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	for _, parallelism := range []int{1, 4} {
		m := newMatcher(t, threeCommuters(), tripset.NewExactBacking(), Options{Parallelism: parallelism})
		_, err := m.AllCommuters(ctx)
		require.ErrorIs(t, err, apperrors.ErrDeadlineExceeded)
		require.Equal(t, apperrors.ExitDeadline, apperrors.ExitCode(err))

		_, err = m.AllSingleTrips(ctx)
		require.ErrorIs(t, err, apperrors.ErrDeadlineExceeded)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := newMatcher(t, threeCommuters(), tripset.NewExactBacking(), Options{})
	_, err := m.AllCommuters(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
