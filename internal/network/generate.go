package network

import (
	"math/rand/v2"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Generate builds a random undirected network with asymmetric travel times:
// every unordered pair of locations is connected with linkProbability by two
// directed links whose mean durations are drawn independently from
// [MinTripDuration, MaxTripDuration] and whose standard deviation is
// StdFraction of the mean, truncated to whole minutes.
//
// Connectivity is not enforced. It fails with ErrNoLinks only when no link
// at all was drawn.
func Generate(rng *rand.Rand, locationCount int, linkProbability float64, timing config.TimingConfig) (*Network, error) {
	n := New(locationCount)
	for a := 0; a < locationCount; a++ {
		for b := a + 1; b < locationCount; b++ {
			if rng.Float64() >= linkProbability {
				continue
			}
			forward := randomLink(rng, a, b, timing)
			backward := randomLink(rng, b, a, timing)
			if err := n.AddBidirectional(forward, backward); err != nil {
				return nil, err
			}
		}
	}
	if n.LinkCount() == 0 {
		return nil, apperrors.Newf(apperrors.ErrNoLinks, "%d locations at link probability %v", locationCount, linkProbability)
	}
	return n, nil
}

func randomLink(rng *rand.Rand, src, dst int, timing config.TimingConfig) Link {
	mean := timing.MinTripDuration + rng.IntN(timing.MaxTripDuration-timing.MinTripDuration+1)
	return Link{
		Src:          src,
		Dst:          dst,
		MeanDuration: mean,
		StdDuration:  int(timing.StdFraction * float64(mean)),
	}
}
