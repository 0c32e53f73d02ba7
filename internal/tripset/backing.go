package tripset

import (
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/bloom"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
)

// FromConfig resolves the backing selected by cfg.
func FromConfig(cfg config.SetsConfig) (Backing, error) {
	switch {
	case cfg.Exact:
		return NewExactBacking(), nil
	case cfg.Fixed():
		return NewFixedBloomBacking(bloom.Shape{Size: cfg.FixedSize, HashCount: cfg.FixedHashCount})
	default:
		return NewBloomBacking(cfg.MaxDetectionsPerBucket, cfg.FalsePositiveRate)
	}
}
