package smartcard

import (
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/detection"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/network"
)

// Dataset is an export bucketed into time frames. Each journey becomes one
// detection whose epochs are frame indexes and whose link joins the
// check-in and check-out stations.
type Dataset struct {
	Detections []detection.Detection
	Frames     []Frame
	Stations   []string
	Cards      int
	// Skipped counts journeys outside the frames or checking out in an
	// earlier frame than they checked in.
	Skipped int
}

// Bucket interns card ids and stations and assigns frames. Card ids are
// numbered in order of first appearance.
func Bucket(records []Record, frames []Frame) Dataset {
	ds := Dataset{Frames: frames}
	cards := make(map[string]uint64)
	stations := make(map[string]int)
	station := func(name string) int {
		i, ok := stations[name]
		if !ok {
			i = len(ds.Stations)
			stations[name] = i
			ds.Stations = append(ds.Stations, name)
		}
		return i
	}

	for _, r := range records {
		dep, arr := frameOf(frames, r.CheckIn), frameOf(frames, r.CheckOut)
		if dep < 0 || arr < dep {
			ds.Skipped++
			continue
		}
		id, ok := cards[r.CardID]
		if !ok {
			id = uint64(len(cards))
			cards[r.CardID] = id
		}
		ds.Detections = append(ds.Detections, detection.Detection{
			TravelerID: id,
			Link: network.Link{
				Src:          station(r.InStation),
				Dst:          station(r.OutStation),
				MeanDuration: r.CheckOut - r.CheckIn,
			},
			DepartureEpoch: dep,
			ArrivalEpoch:   arr,
		})
	}
	ds.Cards = len(cards)
	return ds
}
