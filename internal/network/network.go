// Package network holds the directed link set travelers move over.
package network

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Link is a directed connection between two locations with a normally
// distributed travel time, in minutes.
type Link struct {
	Src          int `json:"src"`
	Dst          int `json:"dst"`
	MeanDuration int `json:"mean_duration"`
	StdDuration  int `json:"std_duration"`
}

// Reverse reports whether l runs opposite to other.
func (l Link) Reverse(other Link) bool {
	return l.Src == other.Dst && l.Dst == other.Src
}

// Network stores outgoing links per location.
type Network struct {
	outLinks [][]Link
}

// New returns a network of locationCount locations and no links.
func New(locationCount int) *Network {
	return &Network{outLinks: make([][]Link, locationCount)}
}

func (n *Network) LocationCount() int {
	return len(n.outLinks)
}

// AddLink appends a directed link.
func (n *Network) AddLink(l Link) error {
	if l.Src < 0 || l.Src >= len(n.outLinks) || l.Dst < 0 || l.Dst >= len(n.outLinks) {
		return apperrors.Newf(apperrors.ErrInvalidInput, "link %d->%d outside %d locations", l.Src, l.Dst, len(n.outLinks))
	}
	if l.Src == l.Dst {
		return apperrors.Newf(apperrors.ErrInvalidInput, "self link at location %d", l.Src)
	}
	if l.MeanDuration <= 0 || l.StdDuration < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "link %d->%d has duration %d/%d", l.Src, l.Dst, l.MeanDuration, l.StdDuration)
	}
	n.outLinks[l.Src] = append(n.outLinks[l.Src], l)
	return nil
}

// AddBidirectional adds both directions between a and b.
func (n *Network) AddBidirectional(forward, backward Link) error {
	if !forward.Reverse(backward) {
		return apperrors.Newf(apperrors.ErrInvalidInput,
			"links %d->%d and %d->%d are not reverses", forward.Src, forward.Dst, backward.Src, backward.Dst)
	}
	if err := n.AddLink(forward); err != nil {
		return err
	}
	return n.AddLink(backward)
}

// OutLinks returns the links leaving src. The slice must not be modified.
func (n *Network) OutLinks(src int) []Link {
	if src < 0 || src >= len(n.outLinks) {
		return nil
	}
	return n.outLinks[src]
}

// FindLink returns the link from src to dst.
func (n *Network) FindLink(src, dst int) (Link, bool) {
	for _, l := range n.OutLinks(src) {
		if l.Dst == dst {
			return l, true
		}
	}
	return Link{}, false
}

// LinkedLocations returns the locations with at least one outgoing link, in
// ascending order.
func (n *Network) LinkedLocations() []int {
	var out []int
	for loc, links := range n.outLinks {
		if len(links) > 0 {
			out = append(out, loc)
		}
	}
	return out
}

// LinkCount returns the number of directed links.
func (n *Network) LinkCount() int {
	total := 0
	for _, links := range n.outLinks {
		total += len(links)
	}
	return total
}
