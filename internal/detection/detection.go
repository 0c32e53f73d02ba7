// Package detection defines the detection records the index is built from,
// the epoch clock that discretizes the day, and a synthetic trip generator.
package detection

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/network"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Detection is one traveler observed leaving Link.Src in DepartureEpoch and
// reaching Link.Dst in ArrivalEpoch. Detections are never mutated.
type Detection struct {
	TravelerID     uint64       `json:"traveler_id"`
	Link           network.Link `json:"link"`
	DepartureEpoch int          `json:"departure_epoch"`
	ArrivalEpoch   int          `json:"arrival_epoch"`
}

// Validate checks the ordering invariant and the epoch bounds.
func (d Detection) Validate(epochCount int) error {
	if d.DepartureEpoch < 0 || d.ArrivalEpoch >= epochCount {
		return apperrors.Newf(apperrors.ErrInvalidInput,
			"traveler %d: epochs %d..%d outside [0,%d)", d.TravelerID, d.DepartureEpoch, d.ArrivalEpoch, epochCount)
	}
	if d.DepartureEpoch > d.ArrivalEpoch {
		return apperrors.Newf(apperrors.ErrInvalidInput,
			"traveler %d: departure epoch %d after arrival epoch %d", d.TravelerID, d.DepartureEpoch, d.ArrivalEpoch)
	}
	return nil
}

// Clock converts minutes since midnight to epochs for one run.
type Clock struct {
	day config.EpochConfig
}

// NewClock returns a clock over the given day. The epoch length must be
// positive and the day boundaries ordered.
func NewClock(day config.EpochConfig) (*Clock, error) {
	if day.LengthMinutes <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "epoch length %d must be positive", day.LengthMinutes)
	}
	if day.StartOfDay < 0 || day.StartOfDay >= day.EndOfDay {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "day %d..%d is empty", day.StartOfDay, day.EndOfDay)
	}
	c := &Clock{day: day}
	if c.EpochCount() <= c.FirstEpoch() {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig,
			"epoch length %d leaves no epoch between %d and %d", day.LengthMinutes, day.StartOfDay, day.EndOfDay)
	}
	return c, nil
}

// Epoch returns floor(minutes / epoch length).
func (c *Clock) Epoch(minutes float64) int {
	return int(math.Floor(minutes / float64(c.day.LengthMinutes)))
}

func (c *Clock) epochOf(minutes int) int {
	return c.Epoch(float64(minutes))
}

func (c *Clock) Length() int {
	return c.day.LengthMinutes
}

// Day returns the day boundaries the clock was built from.
func (c *Clock) Day() config.EpochConfig {
	return c.day
}

// EpochCount is the number of epoch buckets from midnight to the end of the
// day; valid epochs are [0, EpochCount).
func (c *Clock) EpochCount() int {
	return c.epochOf(c.day.EndOfDay)
}

// LastMinute is the last minute that falls in a whole epoch. When the
// epoch length does not divide the end of day, the minutes after it belong
// to a partial epoch that has no bucket.
func (c *Clock) LastMinute() int {
	return c.EpochCount()*c.day.LengthMinutes - 1
}

// FirstEpoch is the epoch of the start of the day.
func (c *Clock) FirstEpoch() int {
	return c.epochOf(c.day.StartOfDay)
}

// LastReturnEpoch is the epoch of the last return departure. Return trips
// are searched up to, but not including, this epoch.
func (c *Clock) LastReturnEpoch() int {
	return c.epochOf(c.day.LastReturnDeparture)
}
