package matcher

import (
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"
)

// oneWayTable caches OneWayTrips(dep, arr) for the arrival window of each
// departure epoch during one query. The commuter search revisits the same
// return legs for every outward departure; caching them turns each
// quadruple into a single intersection.
//
// Rows are computed on first use. A departure only reads its own row and
// the rows of later epochs, so once every departure up to an epoch has
// finished, that epoch's row is released.
type oneWayTable struct {
	m     *Matcher
	first int
	rows  []*oneWayRow

	mu      sync.Mutex
	done    []bool
	settled int
	live    int
	peak    int
}

type oneWayRow struct {
	once   sync.Once
	built  bool
	window Window
	sets   []tripset.Set
	err    error
}

func (m *Matcher) newOneWayTable() *oneWayTable {
	first := m.windows.Departures().Min
	n := max(m.idx.EpochCount()-first, 0)
	t := &oneWayTable{
		m:     m,
		first: first,
		rows:  make([]*oneWayRow, n),
		done:  make([]bool, n),
	}
	for i := range t.rows {
		t.rows[i] = &oneWayRow{}
	}
	return t
}

// get returns nil when the pair lies outside the table or no traveler
// departed in dep.
func (t *oneWayTable) get(dep, arr int) (tripset.Set, error) {
	i := dep - t.first
	if i < 0 || i >= len(t.rows) {
		return nil, nil
	}
	row := t.rows[i]
	if row == nil {
		return nil, fmt.Errorf("one-way trips from epoch %d read after release", dep)
	}
	row.once.Do(func() { t.build(row, dep) })
	if row.err != nil {
		return nil, row.err
	}
	if arr < row.window.Min || arr >= row.window.Max {
		return nil, nil
	}
	return row.sets[arr-row.window.Min], nil
}

func (t *oneWayTable) build(row *oneWayRow, dep int) {
	m := t.m
	row.window = m.windows.Arrivals(dep)
	row.sets = make([]tripset.Set, row.window.Len())
	intersects := 0
	if !m.idx.DepartureBucket(dep).IsEmpty() {
		for arr := row.window.Min; arr < row.window.Max; arr++ {
			s, err := m.OneWayTrips(dep, arr)
			if err != nil {
				row.err = err
				return
			}
			intersects++
			row.sets[arr-row.window.Min] = s
		}
	}
	m.metrics.ObserveSetOps(0, intersects)

	t.mu.Lock()
	row.built = true
	t.live++
	t.peak = max(t.peak, t.live)
	t.mu.Unlock()
}

// finish marks dep as matched and releases the rows of every epoch whose
// departures, and all earlier ones, have finished.
func (t *oneWayTable) finish(dep int) {
	i := dep - t.first
	if i < 0 || i >= len(t.rows) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done[i] = true
	for t.settled < len(t.rows) && t.done[t.settled] {
		if t.rows[t.settled].built {
			t.live--
		}
		t.rows[t.settled] = nil
		t.settled++
	}
}
