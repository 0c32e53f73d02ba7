package matcher

import (
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/detection"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
)

// Window is the half-open epoch range [Min, Max).
type Window struct {
	Min int
	Max int
}

func (w Window) Len() int {
	return max(w.Max-w.Min, 0)
}

// Windower decides which epochs the matcher pairs up.
type Windower interface {
	// Departures is the range of outward departure epochs searched.
	Departures() Window
	// Arrivals bounds the plausible arrival epochs of a trip departing in dep.
	Arrivals(dep int) Window
	// ReturnDepartures bounds the departure epochs of a return trip whose
	// outward leg arrived in arr.
	ReturnDepartures(arr int) Window
}

// TimingWindows derives windows from the trip duration model.
type TimingWindows struct {
	clock  *detection.Clock
	timing config.TimingConfig
}

func NewTimingWindows(clock *detection.Clock, timing config.TimingConfig) TimingWindows {
	return TimingWindows{clock: clock, timing: timing}
}

// Departures covers the start of the day up to the last epoch.
func (w TimingWindows) Departures() Window {
	return Window{Min: w.clock.FirstEpoch(), Max: w.clock.EpochCount()}
}

// Arrivals widens [dep start + min duration, dep end + max duration] by two
// maximum standard deviations on either side. A trip takes at least one
// epoch, and the window never leaves the day, so
// dep < Min <= Max <= EpochCount holds for every dep in Departures.
func (w TimingWindows) Arrivals(dep int) Window {
	length := float64(w.clock.Length())
	margin := 2 * w.timing.MaxStd()
	end := w.clock.EpochCount()

	lo := w.clock.Epoch(float64(dep)*length + float64(w.timing.MinTripDuration) - margin)
	lo = min(max(lo, dep+1), end)
	hi := w.clock.Epoch(float64(dep+1)*length + float64(w.timing.MaxTripDuration) + margin)
	hi = max(min(hi, end), w.clock.FirstEpoch())
	return Window{Min: lo, Max: max(hi, lo)}
}

// ReturnDepartures starts the epoch after arr, since a return trip never
// leaves in the epoch its outward leg arrived, and ends before the epoch of
// the last return departure.
func (w TimingWindows) ReturnDepartures(arr int) Window {
	last := w.clock.LastReturnEpoch()
	return Window{Min: min(arr+1, last), Max: last}
}

// FixedWindows pairs each epoch with the Span epochs that follow it. It
// serves inputs without a duration model, such as smart-card data bucketed
// into time frames.
type FixedWindows struct {
	Span   int
	Epochs int
}

func (w FixedWindows) Departures() Window {
	return Window{Min: 0, Max: w.Epochs}
}

func (w FixedWindows) Arrivals(dep int) Window {
	lo := min(dep+1, w.Epochs)
	return Window{Min: lo, Max: min(dep+1+w.Span, w.Epochs)}
}

func (w FixedWindows) ReturnDepartures(arr int) Window {
	return Window{Min: min(arr+1, w.Epochs), Max: w.Epochs}
}
