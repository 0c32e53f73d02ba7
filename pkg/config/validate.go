package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidConfig
}

// Validate checks the parameters that a run depends on and returns a
// ValidationError naming every offending field.
func (c *Config) Validate() error {
	errs := make(map[string]string)

	s := c.Simulation
	if s.LocationCount < 2 {
		errs["simulation.locationCount"] = "must be at least 2"
	}
	if !isProbability(s.LinkProbability) {
		errs["simulation.linkProbability"] = "must be within [0,1]"
	}
	if s.TripCount <= 0 || s.TripCount > MaxTravelers {
		errs["simulation.tripCount"] = fmt.Sprintf("must be within [1,%d]", MaxTravelers)
	}
	if !isProbability(s.ReturnProbability) {
		errs["simulation.returnProbability"] = "must be within [0,1]"
	}
	if s.RunCount <= 0 {
		errs["simulation.runCount"] = "must be positive"
	}
	if s.Mode != ModeCommuters && s.Mode != ModeSingle {
		errs["simulation.mode"] = fmt.Sprintf("must be %q or %q", ModeCommuters, ModeSingle)
	}
	if s.Parallelism < 0 {
		errs["simulation.parallelism"] = "must not be negative"
	}
	if s.Deadline < 0 {
		errs["simulation.deadline"] = "must not be negative"
	}

	c.Epoch.validate(errs)
	c.Timing.validate(errs)
	c.Sets.validate(errs)

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateSmartCard checks the parameters of the CSV pipeline.
func (c *Config) ValidateSmartCard() error {
	errs := make(map[string]string)
	sc := c.SmartCard
	if sc.Path == "" {
		errs["smartcard.path"] = "is required"
	}
	if len([]rune(sc.Delimiter)) != 1 {
		errs["smartcard.delimiter"] = "must be a single character"
	}
	if sc.WindowMinutes <= 0 {
		errs["smartcard.windowMinutes"] = "must be positive"
	}
	if sc.MatchEpochs <= 0 {
		errs["smartcard.matchEpochs"] = "must be positive"
	}
	c.Sets.validate(errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (e EpochConfig) validate(errs map[string]string) {
	if e.LengthMinutes <= 0 {
		errs["epoch.lengthMinutes"] = "must be positive"
		return
	}
	if e.StartOfDay < 0 || e.StartOfDay >= e.EndOfDay {
		errs["epoch.startOfDay"] = "must be non-negative and before endOfDay"
	} else if e.EndOfDay/e.LengthMinutes <= e.StartOfDay/e.LengthMinutes {
		errs["epoch.lengthMinutes"] = "must leave at least one whole epoch between startOfDay and endOfDay"
	}
	if e.LastOutwardDeparture < e.StartOfDay || e.LastOutwardDeparture > e.LastReturnDeparture {
		errs["epoch.lastOutwardDeparture"] = "must be within [startOfDay, lastReturnDeparture]"
	}
	if e.LastReturnDeparture > e.EndOfDay {
		errs["epoch.lastReturnDeparture"] = "must not be after endOfDay"
	}
}

func (t TimingConfig) validate(errs map[string]string) {
	if t.MinTripDuration <= 0 || t.MinTripDuration > t.MaxTripDuration {
		errs["timing.minTripDuration"] = "must be positive and at most maxTripDuration"
	}
	if t.StdFraction < 0 || math.IsNaN(t.StdFraction) {
		errs["timing.stdFraction"] = "must not be negative"
	}
}

func (s SetsConfig) validate(errs map[string]string) {
	if s.Exact {
		return
	}
	if s.Fixed() {
		return
	}
	if s.MaxDetectionsPerBucket == 0 {
		errs["sets.maxDetectionsPerBucket"] = "must be positive"
	}
	if math.IsNaN(s.FalsePositiveRate) || s.FalsePositiveRate <= 0 || s.FalsePositiveRate >= 1 {
		errs["sets.falsePositiveRate"] = "must be within (0,1)"
	}
}

func isProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
