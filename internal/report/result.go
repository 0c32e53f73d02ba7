// Package report computes estimate accuracy, formats run results and
// publishes them to the configured sinks.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Accuracy is max(1 - |estimate - truth| / truth, 0). A zero truth scores 1
// when the estimate is also zero and 0 otherwise.
func Accuracy(estimate, truth uint64) float64 {
	if truth == 0 {
		if estimate == 0 {
			return 1
		}
		return 0
	}
	diff := math.Abs(float64(estimate) - float64(truth))
	return math.Max(1-diff/float64(truth), 0)
}

// Result is one estimation run, averaged over its repetitions.
type Result struct {
	RunID             string    `json:"run_id"`
	Source            string    `json:"source"`
	Backing           string    `json:"backing"`
	Mode              string    `json:"mode"`
	TripCount         int       `json:"trip_count"`
	EpochLength       int       `json:"epoch_length"`
	MaxDetections     uint64    `json:"max_detections"`
	FalsePositiveRate float64   `json:"false_positive_rate"`
	GroundTruth       uint64    `json:"ground_truth"`
	Coarse            uint64    `json:"coarse"`
	Mid               uint64    `json:"mid"`
	Fine              uint64    `json:"fine"`
	CoarseAccuracy    float64   `json:"coarse_accuracy"`
	MidAccuracy       float64   `json:"mid_accuracy"`
	FineAccuracy      float64   `json:"fine_accuracy"`
	FillRatio         float64   `json:"fill_ratio"`
	Saturated         bool      `json:"saturated"`
	Elapsed           Seconds   `json:"elapsed_seconds"`
	Phases            []Phase   `json:"phases,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Phase is the wall time of one named step of a run.
type Phase struct {
	Name    string  `json:"name"`
	Elapsed Seconds `json:"elapsed_seconds"`
}

// Seconds marshals a duration as fractional seconds.
type Seconds time.Duration

func (s Seconds) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%.6f", time.Duration(s).Seconds())), nil
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding seconds: %w", err)
	}
	*s = Seconds(v * float64(time.Second))
	return nil
}

func (s Seconds) Seconds() float64 {
	return time.Duration(s).Seconds()
}

// Score fills the accuracy fields from the counts and GroundTruth.
func (r *Result) Score() {
	r.CoarseAccuracy = Accuracy(r.Coarse, r.GroundTruth)
	r.MidAccuracy = Accuracy(r.Mid, r.GroundTruth)
	r.FineAccuracy = Accuracy(r.Fine, r.GroundTruth)
}

// Flag is S for exact backings and B for Bloom filters.
func (r Result) Flag() string {
	if r.Backing == "exact" {
		return "S"
	}
	return "B"
}

// Line renders the fixed-width results line, without a trailing newline.
// Accuracies are percentages.
func (r Result) Line() string {
	return fmt.Sprintf("%s%7d%5d%8d%7.4f%7d%7d%8.2f%7d%8.2f%7d%8.2f%12.4f%10.2f",
		r.Flag(),
		r.TripCount,
		r.EpochLength,
		r.MaxDetections,
		r.FalsePositiveRate,
		r.GroundTruth,
		r.Coarse, r.CoarseAccuracy*100,
		r.Mid, r.MidAccuracy*100,
		r.Fine, r.FineAccuracy*100,
		r.FillRatio,
		r.Elapsed.Seconds(),
	)
}
