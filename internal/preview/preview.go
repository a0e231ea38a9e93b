// Package preview drives an in-editor playback simulation of a content loop.
// The player owns no timers; position is derived from an injected clock on
// each query, which keeps it deterministic under test and cheap when idle.
package preview

import (
	"time"

	"github.com/edudisplej/loopplan/internal/model"
)

// State names the player's lifecycle phase.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Clock abstracts time for deterministic playback tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Player steps through a loop's items by their effective durations.
type Player struct {
	clock Clock
	items []model.ContentItem
	state State

	index       int
	itemStarted time.Time
	pausedAt    time.Duration
	cycles      int
}

// NewPlayer builds a stopped player over the given loop.
func NewPlayer(clock Clock, items []model.ContentItem) *Player {
	if clock == nil {
		clock = SystemClock
	}
	return &Player{
		clock: clock,
		items: model.CloneItems(items),
	}
}

// Status is a point-in-time view of the player.
type Status struct {
	State         State
	Index         int
	Item          *model.ContentItem
	ElapsedInItem time.Duration
	Cycles        int
}

// Start begins playback from the first item. Starting an empty loop is a
// no-op and the player stays stopped.
func (p *Player) Start() {
	if len(p.items) == 0 {
		return
	}
	p.state = StatePlaying
	p.index = 0
	p.cycles = 0
	p.itemStarted = p.clock.Now()
}

// Pause freezes the current position.
func (p *Player) Pause() {
	if p.state != StatePlaying {
		return
	}
	p.advance(p.clock.Now())
	p.pausedAt = p.clock.Now().Sub(p.itemStarted)
	p.state = StatePaused
}

// Resume continues from where Pause left off.
func (p *Player) Resume() {
	if p.state != StatePaused {
		return
	}
	p.itemStarted = p.clock.Now().Add(-p.pausedAt)
	p.state = StatePlaying
}

// Stop returns the player to the initial state.
func (p *Player) Stop() {
	p.state = StateStopped
	p.index = 0
	p.cycles = 0
	p.pausedAt = 0
}

// Next skips to the following item; from the last item it wraps and counts
// a completed cycle. Elapsed time within the item resets.
func (p *Player) Next() {
	if p.state == StateStopped || len(p.items) == 0 {
		return
	}
	if p.state == StatePlaying {
		p.advance(p.clock.Now())
	}
	p.index++
	if p.index >= len(p.items) {
		p.index = 0
		p.cycles++
	}
	p.itemStarted = p.clock.Now()
	p.pausedAt = 0
}

// Previous steps back one item, wrapping to the last. The cycle count never
// decreases.
func (p *Player) Previous() {
	if p.state == StateStopped || len(p.items) == 0 {
		return
	}
	if p.state == StatePlaying {
		p.advance(p.clock.Now())
	}
	p.index--
	if p.index < 0 {
		p.index = len(p.items) - 1
	}
	p.itemStarted = p.clock.Now()
	p.pausedAt = 0
}

// Status reports the current position, advancing it first when playing.
func (p *Player) Status() Status {
	st := Status{State: p.state, Cycles: p.cycles}
	if p.state == StateStopped || len(p.items) == 0 {
		return st
	}
	switch p.state {
	case StatePlaying:
		p.advance(p.clock.Now())
		st.ElapsedInItem = p.clock.Now().Sub(p.itemStarted)
	case StatePaused:
		st.ElapsedInItem = p.pausedAt
	}
	st.Index = p.index
	st.Cycles = p.cycles
	item := p.items[p.index]
	st.Item = &item
	return st
}

// advance walks the playhead forward over however many items the elapsed
// wall time has consumed since the last observation.
func (p *Player) advance(now time.Time) {
	elapsed := now.Sub(p.itemStarted)
	for {
		dur := time.Duration(p.items[p.index].EffectiveDuration()) * time.Second
		if dur <= 0 {
			dur = time.Second
		}
		if elapsed < dur {
			break
		}
		elapsed -= dur
		p.index++
		if p.index >= len(p.items) {
			p.index = 0
			p.cycles++
		}
	}
	p.itemStarted = now.Add(-elapsed)
}
