package smartcard

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

const (
	dayStart = 5 * 60
	dayEnd   = 24 * 60
	lastHour = 23
)

// Frame is the half-open time range [Start, End) in minutes since midnight.
type Frame struct {
	Start int
	End   int
}

// TimeFrames cuts 05:00-24:00 into frames. Windows of up to an hour repeat
// inside every hour, so a window that does not divide 60 leaves a shorter
// frame before each full hour. Longer windows take every (window/60)-th
// hour mark. The last frame always ends at 24:00.
func TimeFrames(windowMinutes int) ([]Frame, error) {
	if windowMinutes <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "time window %d must be positive", windowMinutes)
	}

	var marks []int
	if windowMinutes <= 60 {
		perHour := 60 / windowMinutes
		for h := dayStart / 60; h <= lastHour; h++ {
			for j := 0; j < perHour; j++ {
				marks = append(marks, h*60+j*windowMinutes)
			}
		}
	} else {
		step := windowMinutes / 60
		for i, h := 0, dayStart/60; h <= lastHour; i, h = i+1, h+1 {
			if i%step == 0 {
				marks = append(marks, h*60)
			}
		}
	}
	if marks[len(marks)-1] < dayEnd {
		marks = append(marks, dayEnd)
	}

	frames := make([]Frame, len(marks)-1)
	for i := range frames {
		frames[i] = Frame{Start: marks[i], End: marks[i+1]}
	}
	return frames, nil
}

// frameOf returns the index of the frame containing minute, or -1.
func frameOf(frames []Frame, minute int) int {
	i := sort.Search(len(frames), func(i int) bool { return frames[i].End > minute })
	if i == len(frames) || minute < frames[i].Start {
		return -1
	}
	return i
}
