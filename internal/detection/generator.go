package detection

import (
	"math"
	"math/rand/v2"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/network"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Trips is the output of one generation pass.
type Trips struct {
	Detections []Detection
	// Travelers is the number of outward trips, one per traveler.
	Travelers int
	// Returners is the number of travelers that also made a return trip.
	Returners int
}

// Generator draws random outward and return trips over a network.
type Generator struct {
	rng               *rand.Rand
	net               *network.Network
	clock             *Clock
	returnProbability float64
	idSpace           int
}

// NewGenerator returns a generator that draws traveler ids from
// [0, config.MaxTravelers).
func NewGenerator(rng *rand.Rand, net *network.Network, clock *Clock, returnProbability float64) *Generator {
	return &Generator{
		rng:               rng,
		net:               net,
		clock:             clock,
		returnProbability: returnProbability,
		idSpace:           config.MaxTravelers,
	}
}

// Generate produces tripCount travelers, each with one outward trip from a
// random linked location over one of its links. With the configured return
// probability, and when the outward trip arrives before the last return
// departure, the traveler also returns over the reverse link.
func (g *Generator) Generate(tripCount int) (Trips, error) {
	if tripCount <= 0 || tripCount > g.idSpace {
		return Trips{}, apperrors.Newf(apperrors.ErrInvalidConfig, "trip count %d outside [1,%d]", tripCount, g.idSpace)
	}
	sources := g.net.LinkedLocations()
	if len(sources) == 0 {
		return Trips{}, apperrors.New(apperrors.ErrNoLinks, "no location can start a trip")
	}

	day := g.clock.Day()
	trips := Trips{Detections: make([]Detection, 0, tripCount*2)}
	for _, id := range sampleIDs(g.rng, g.idSpace, tripCount) {
		src := sources[g.rng.IntN(len(sources))]
		links := g.net.OutLinks(src)
		outward := links[g.rng.IntN(len(links))]

		dep := uniform(g.rng, day.StartOfDay, day.LastOutwardDeparture)
		arr := g.arrival(dep, outward)
		trips.Detections = append(trips.Detections, g.detection(id, outward, dep, arr))
		trips.Travelers++

		if g.rng.Float64() >= g.returnProbability || arr >= day.LastReturnDeparture {
			continue
		}
		back, ok := g.net.FindLink(outward.Dst, outward.Src)
		if !ok {
			continue
		}
		retDep := uniform(g.rng, arr, day.LastReturnDeparture)
		retArr := g.arrival(retDep, back)
		trips.Detections = append(trips.Detections, g.detection(id, back, retDep, retArr))
		trips.Returners++
	}
	return trips, nil
}

// arrival draws a normally distributed travel time. Arrivals never precede
// the departure and never pass the last whole epoch of the day.
func (g *Generator) arrival(dep int, l network.Link) int {
	duration := int(math.Round(g.rng.NormFloat64()*float64(l.StdDuration) + float64(l.MeanDuration)))
	arr := dep + max(duration, 0)
	return min(arr, g.clock.LastMinute())
}

func (g *Generator) detection(id uint64, l network.Link, dep, arr int) Detection {
	dep = min(dep, g.clock.LastMinute())
	return Detection{
		TravelerID:     id,
		Link:           l,
		DepartureEpoch: g.clock.epochOf(dep),
		ArrivalEpoch:   g.clock.epochOf(arr),
	}
}

// uniform returns an integer in [lo, hi].
func uniform(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// sampleIDs returns k distinct values from [0, n) using Floyd's algorithm.
func sampleIDs(rng *rand.Rand, n, k int) []uint64 {
	seen := make(map[uint64]struct{}, k)
	ids := make([]uint64, 0, k)
	for j := n - k; j < n; j++ {
		t := uint64(rng.IntN(j + 1))
		if _, dup := seen[t]; dup {
			t = uint64(j)
		}
		seen[t] = struct{}{}
		ids = append(ids, t)
	}
	return ids
}
