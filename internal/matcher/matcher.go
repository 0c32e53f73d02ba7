// Package matcher finds one-way and round trips by intersecting the epoch
// buckets of a detection index.
//
// A one-way trip departing in epoch d and arriving in epoch a is a traveler
// present in both bucket(d) and bucket(a). A commuter is a traveler with an
// outward one-way trip (d1, a1) and a return one-way trip (d2, a2) where a1
// lies in the arrival window of d1, d2 in the return window of a1 and a2 in
// the arrival window of d2.
//
// Counts are reported at three levels of deduplication:
//
//	coarse  the estimate of the union of every match across the day
//	mid     the sum, over departure epochs, of the estimate of the union of
//	        the matches leaving in that epoch
//	fine    the sum of the estimates of every individual match
//
// With an exact backing, coarse counts each traveler once while mid and fine
// may count a traveler once per matching departure epoch or quadruple.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/index"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/metrics"
)

// Options tunes a Matcher. The zero value runs sequentially without
// metrics.
type Options struct {
	Parallelism int
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Matcher runs trip queries against a read-only index.
type Matcher struct {
	idx         *index.Index
	windows     Windower
	backing     tripset.Backing
	parallelism int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(idx *index.Index, windows Windower, opts Options) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		idx:         idx,
		windows:     windows,
		backing:     idx.Backing(),
		parallelism: max(opts.Parallelism, 1),
		metrics:     opts.Metrics,
		logger:      logger.With("component", "matcher"),
	}
}

// Partial is the result for one departure epoch.
type Partial struct {
	Set tripset.Set
	// Sum adds the size of every match that made up Set.
	Sum       uint64
	Saturated bool
}

// Totals is the result of a whole-day pass.
type Totals struct {
	Set       tripset.Set
	Coarse    uint64
	Mid       uint64
	Fine      uint64
	Saturated bool
}

// ExpectedArrivalEpochs returns the arrival window searched for dep.
func (m *Matcher) ExpectedArrivalEpochs(dep int) Window {
	return m.windows.Arrivals(dep)
}

// OneWayTrips returns the travelers detected in both dep and arr. Against a
// directional index only departures in dep and arrivals in arr match.
func (m *Matcher) OneWayTrips(dep, arr int) (tripset.Set, error) {
	s, err := m.idx.DepartureBucket(dep).Intersect(m.idx.ArrivalBucket(arr))
	if err != nil {
		return nil, fmt.Errorf("one-way trips %d->%d: %w", dep, arr, err)
	}
	return s, nil
}

// TwoWayTrips returns the travelers that made the outward trip
// (depSrc, arrDst) and the return trip (depDst, arrSrc), with its size.
// saturated reports that the size is only a floor.
func (m *Matcher) TwoWayTrips(depSrc, arrDst, depDst, arrSrc int) (set tripset.Set, size uint64, saturated bool, err error) {
	outward, err := m.OneWayTrips(depSrc, arrDst)
	if err != nil {
		return nil, 0, false, err
	}
	back, err := m.OneWayTrips(depDst, arrSrc)
	if err != nil {
		return nil, 0, false, err
	}
	both, err := outward.Intersect(back)
	if err != nil {
		return nil, 0, false, fmt.Errorf("two-way trips %d->%d->%d->%d: %w", depSrc, arrDst, depDst, arrSrc, err)
	}
	size, saturated = both.Estimate()
	if saturated {
		m.metrics.ObserveSaturation()
	}
	return both, size, saturated, nil
}

// CommutersForDeparture returns the commuters whose outward trip departed
// in dep.
func (m *Matcher) CommutersForDeparture(ctx context.Context, dep int) (Partial, error) {
	return m.commuters(ctx, m.newOneWayTable(), dep)
}

// AllCommuters runs CommutersForDeparture for every departure epoch.
func (m *Matcher) AllCommuters(ctx context.Context) (Totals, error) {
	return m.pass(ctx, m.newOneWayTable(), m.commuters)
}

// SingleTripsForDeparture returns the one-way trips that departed in dep,
// with no return leg required.
func (m *Matcher) SingleTripsForDeparture(ctx context.Context, dep int) (Partial, error) {
	return m.singles(ctx, m.newOneWayTable(), dep)
}

// AllSingleTrips runs SingleTripsForDeparture for every departure epoch.
func (m *Matcher) AllSingleTrips(ctx context.Context) (Totals, error) {
	return m.pass(ctx, m.newOneWayTable(), m.singles)
}

// pass shares one table across every departure of a whole-day query and
// lets it release rows as departures finish.
func (m *Matcher) pass(ctx context.Context, trips *oneWayTable, fn func(context.Context, *oneWayTable, int) (Partial, error)) (Totals, error) {
	return m.allDepartures(ctx, func(ctx context.Context, dep int) (Partial, error) {
		p, err := fn(ctx, trips, dep)
		trips.finish(dep)
		return p, err
	})
}

func (m *Matcher) commuters(ctx context.Context, trips *oneWayTable, dep int) (Partial, error) {
	if err := checkContext(ctx, dep); err != nil {
		return Partial{}, err
	}
	var c counter
	acc := m.backing.New()
	var sum uint64
	saturated := false

	arrivals := m.windows.Arrivals(dep)
	for arrDst := arrivals.Min; arrDst < arrivals.Max; arrDst++ {
		outward, err := trips.get(dep, arrDst)
		if err != nil {
			return Partial{}, err
		}
		if outward == nil || outward.IsEmpty() {
			continue
		}
		returns := m.windows.ReturnDepartures(arrDst)
		for depDst := returns.Min; depDst < returns.Max; depDst++ {
			if err := checkContext(ctx, dep); err != nil {
				return Partial{}, err
			}
			back := m.windows.Arrivals(depDst)
			for arrSrc := back.Min; arrSrc < back.Max; arrSrc++ {
				ret, err := trips.get(depDst, arrSrc)
				if err != nil {
					return Partial{}, err
				}
				if ret == nil || ret.IsEmpty() {
					continue
				}
				c.quadruples++
				both, err := outward.Intersect(ret)
				if err != nil {
					return Partial{}, fmt.Errorf("two-way trips %d->%d->%d->%d: %w", dep, arrDst, depDst, arrSrc, err)
				}
				c.intersects++
				if both.IsEmpty() {
					continue
				}
				n, sat := both.Estimate()
				sum += n
				saturated = saturated || sat
				if err := acc.Merge(both); err != nil {
					return Partial{}, err
				}
				c.unions++
			}
		}
	}
	m.record(c)
	m.logger.Debug("departure epoch matched", "epoch", dep, "fine", sum, "quadruples", c.quadruples)
	return Partial{Set: acc, Sum: sum, Saturated: saturated}, nil
}

func (m *Matcher) singles(ctx context.Context, trips *oneWayTable, dep int) (Partial, error) {
	if err := checkContext(ctx, dep); err != nil {
		return Partial{}, err
	}
	var c counter
	acc := m.backing.New()
	var sum uint64
	saturated := false

	arrivals := m.windows.Arrivals(dep)
	for arr := arrivals.Min; arr < arrivals.Max; arr++ {
		trip, err := trips.get(dep, arr)
		if err != nil {
			return Partial{}, err
		}
		if trip == nil || trip.IsEmpty() {
			continue
		}
		n, sat := trip.Estimate()
		sum += n
		saturated = saturated || sat
		if err := acc.Merge(trip); err != nil {
			return Partial{}, err
		}
		c.unions++
	}
	m.record(c)
	m.logger.Debug("departure epoch matched", "epoch", dep, "fine", sum)
	return Partial{Set: acc, Sum: sum, Saturated: saturated}, nil
}

// allDepartures evaluates fn for every departure epoch and folds the
// partials in epoch order, so parallel and sequential passes agree exactly.
func (m *Matcher) allDepartures(ctx context.Context, fn func(context.Context, int) (Partial, error)) (Totals, error) {
	deps := m.windows.Departures()
	partials := make([]Partial, deps.Len())

	if m.parallelism <= 1 {
		for i := range partials {
			p, err := fn(ctx, deps.Min+i)
			if err != nil {
				return Totals{}, err
			}
			partials[i] = p
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.parallelism)
		for i := range partials {
			g.Go(func() error {
				p, err := fn(gctx, deps.Min+i)
				if err != nil {
					return err
				}
				partials[i] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Totals{}, err
		}
	}

	totals := Totals{Set: m.backing.New()}
	for _, p := range partials {
		if p.Set.IsEmpty() {
			continue
		}
		n, sat := p.Set.Estimate()
		if sat {
			m.metrics.ObserveSaturation()
		}
		totals.Mid += n
		totals.Fine += p.Sum
		totals.Saturated = totals.Saturated || sat || p.Saturated
		if err := totals.Set.Merge(p.Set); err != nil {
			return Totals{}, err
		}
	}
	m.metrics.ObserveSetOps(len(partials), 0)

	n, sat := totals.Set.Estimate()
	if sat {
		m.metrics.ObserveSaturation()
		m.logger.Warn("day estimate saturated", "estimate", n)
	}
	totals.Coarse = n
	totals.Saturated = totals.Saturated || sat
	return totals, nil
}

func checkContext(ctx context.Context, dep int) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Newf(apperrors.ErrDeadlineExceeded, "matching stopped at departure epoch %d", dep)
	default:
		return fmt.Errorf("matching stopped at departure epoch %d: %w", dep, err)
	}
}

type counter struct {
	quadruples int
	intersects int
	unions     int
}

func (m *Matcher) record(c counter) {
	m.metrics.ObserveQuadruples(c.quadruples)
	m.metrics.ObserveSetOps(c.unions, c.intersects)
}
