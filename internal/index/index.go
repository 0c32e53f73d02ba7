// Package index holds the per-epoch detection sets a run is matched against.
package index

import (
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/detection"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Options sizes an index. LocationCount 0 builds the per-epoch aggregate
// only.
type Options struct {
	EpochCount    int
	LocationCount int
	// Directional keeps departures and arrivals in separate aggregates, so
	// a one-way trip can only pair a departure with a later arrival.
	Directional bool
}

// Index stores, for every epoch, the travelers detected in that epoch at
// each location and across all locations. It is immutable once built, so
// concurrent readers need no locking. Sets returned by the accessors must
// not be modified.
type Index struct {
	backing    tripset.Backing
	epochCount int
	locations  [][]tripset.Set
	aggregate  []tripset.Set
	arrivals   []tripset.Set
	empty      tripset.Set
	detections int
}

// Build replays detections into a new index. A detection adds its traveler
// to the bucket of its source location at the departure epoch and to the
// bucket of its destination at the arrival epoch. Replay order does not
// affect the result. A directional index adds the departure to the
// departure aggregate and the arrival to the arrival aggregate instead.
func Build(detections []detection.Detection, opts Options, backing tripset.Backing) (*Index, error) {
	if opts.EpochCount <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "epoch count %d must be positive", opts.EpochCount)
	}
	if opts.LocationCount < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "location count %d is negative", opts.LocationCount)
	}

	idx := &Index{
		backing:    backing,
		epochCount: opts.EpochCount,
		aggregate:  newBuckets(backing, opts.EpochCount),
		empty:      backing.New(),
	}
	if opts.Directional {
		idx.arrivals = newBuckets(backing, opts.EpochCount)
	}
	if opts.LocationCount > 0 {
		idx.locations = make([][]tripset.Set, opts.LocationCount)
		for loc := range idx.locations {
			idx.locations[loc] = newBuckets(backing, opts.EpochCount)
		}
	}

	for _, d := range detections {
		if err := d.Validate(opts.EpochCount); err != nil {
			return nil, err
		}
		if err := idx.add(d); err != nil {
			return nil, err
		}
	}

	if idx.locations != nil && idx.arrivals == nil {
		for e := 0; e < idx.epochCount; e++ {
			for _, buckets := range idx.locations {
				if err := idx.aggregate[e].Merge(buckets[e]); err != nil {
					return nil, err
				}
			}
		}
	}
	return idx, nil
}

func newBuckets(backing tripset.Backing, n int) []tripset.Set {
	buckets := make([]tripset.Set, n)
	for i := range buckets {
		buckets[i] = backing.New()
	}
	return buckets
}

func (idx *Index) add(d detection.Detection) error {
	idx.detections++
	switch {
	case idx.arrivals != nil:
		idx.aggregate[d.DepartureEpoch].Insert(d.TravelerID)
		idx.arrivals[d.ArrivalEpoch].Insert(d.TravelerID)
	case idx.locations == nil:
		idx.aggregate[d.DepartureEpoch].Insert(d.TravelerID)
		idx.aggregate[d.ArrivalEpoch].Insert(d.TravelerID)
	}
	if idx.locations == nil {
		return nil
	}
	src, dst := d.Link.Src, d.Link.Dst
	if src < 0 || src >= len(idx.locations) || dst < 0 || dst >= len(idx.locations) {
		return apperrors.Newf(apperrors.ErrInvalidInput,
			"traveler %d: link %d->%d outside %d locations", d.TravelerID, src, dst, len(idx.locations))
	}
	idx.locations[src][d.DepartureEpoch].Insert(d.TravelerID)
	idx.locations[dst][d.ArrivalEpoch].Insert(d.TravelerID)
	return nil
}

// Bucket returns the travelers detected anywhere in epoch. Epochs outside
// the index yield an empty set. A directional index holds only departures
// here.
func (idx *Index) Bucket(epoch int) tripset.Set {
	if epoch < 0 || epoch >= idx.epochCount {
		return idx.empty
	}
	return idx.aggregate[epoch]
}

// DepartureBucket returns the travelers that may have departed in epoch.
func (idx *Index) DepartureBucket(epoch int) tripset.Set {
	return idx.Bucket(epoch)
}

// ArrivalBucket returns the travelers that may have arrived in epoch. It is
// the same set as Bucket unless the index is directional.
func (idx *Index) ArrivalBucket(epoch int) tripset.Set {
	if idx.arrivals == nil {
		return idx.Bucket(epoch)
	}
	if epoch < 0 || epoch >= idx.epochCount {
		return idx.empty
	}
	return idx.arrivals[epoch]
}

// LocationBucket returns the travelers detected at loc in epoch.
func (idx *Index) LocationBucket(loc, epoch int) tripset.Set {
	if loc < 0 || loc >= len(idx.locations) || epoch < 0 || epoch >= idx.epochCount {
		return idx.empty
	}
	return idx.locations[loc][epoch]
}

func (idx *Index) EpochCount() int          { return idx.epochCount }
func (idx *Index) LocationCount() int       { return len(idx.locations) }
func (idx *Index) Backing() tripset.Backing { return idx.backing }
func (idx *Index) DetectionCount() int      { return idx.detections }
func (idx *Index) Directional() bool        { return idx.arrivals != nil }
