package index

import "github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"

// Stats summarizes the aggregate buckets, arrivals included for a
// directional index.
type Stats struct {
	Buckets   int
	NonEmpty  int
	Saturated int
	// MeanFill is the mean bit fill ratio over non-empty buckets, 0 for
	// exact backings.
	MeanFill float64
	MaxFill  float64
}

// Stats walks the aggregate buckets once.
func (idx *Index) Stats() Stats {
	s := Stats{Buckets: len(idx.aggregate) + len(idx.arrivals)}
	var fillSum float64
	for _, buckets := range [][]tripset.Set{idx.aggregate, idx.arrivals} {
		for _, b := range buckets {
			if b.IsEmpty() {
				continue
			}
			s.NonEmpty++
			if _, saturated := b.Estimate(); saturated {
				s.Saturated++
			}
			if fr, ok := b.(tripset.FillReporter); ok {
				fill := fr.FillRatio()
				fillSum += fill
				s.MaxFill = max(s.MaxFill, fill)
			}
		}
	}
	if s.NonEmpty > 0 {
		s.MeanFill = fillSum / float64(s.NonEmpty)
	}
	return s
}
