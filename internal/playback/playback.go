// Package playback maps a continuous playback clock onto the discrete
// transcript entry sequence and derives display state from it.
package playback

import (
	"sort"

	"github.com/jwulff/relisten/internal/transcript"
)

// State is the playback cursor for one recording. A fresh state sits at
// time zero with no active entry; switching recordings discards the state
// entirely rather than reusing it.
type State struct {
	CurrentSeconds float64
	ActiveIndex    int // -1 when no entry's interval contains the clock
}

// NewState returns the reset state for a freshly selected recording.
func NewState() State {
	return State{CurrentSeconds: 0, ActiveIndex: -1}
}

// ActiveIndex resolves which entry is active at time t. Entry i is active
// while entries[i].Seconds <= t < entries[i+1].Seconds; the last entry is
// unbounded above. Before the first entry the result is -1. The entries'
// Seconds are monotonically non-decreasing, so this is a binary search and
// needs no knowledge of the previously active index.
func ActiveIndex(entries []transcript.Entry, t float64) int {
	if len(entries) == 0 || t < entries[0].Seconds {
		return -1
	}
	// First entry strictly after t; the active one sits just before it.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Seconds > t
	})
	return i - 1
}

// SetTime jumps the clock to t (floored at zero) and recomputes the active
// entry. It reports whether the active entry changed: callers trigger
// scroll and highlight work only on true, so feeding the same time twice
// is observably a no-op.
func (s *State) SetTime(entries []transcript.Entry, t float64) bool {
	if t < 0 {
		t = 0
	}
	s.CurrentSeconds = t
	idx := ActiveIndex(entries, t)
	if idx == s.ActiveIndex {
		return false
	}
	s.ActiveIndex = idx
	return true
}

// Advance moves the clock forward by dt seconds and reports whether the
// active entry changed.
func (s *State) Advance(entries []transcript.Entry, dt float64) bool {
	return s.SetTime(entries, s.CurrentSeconds+dt)
}

// Clamp bounds a seek target to [0, duration]. A non-positive duration
// means the duration is unknown and only the lower bound applies.
func Clamp(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}

// ScrollTarget decides whether a viewport starting at line top with the
// given height must move to keep the active line visible, returning the
// new top. No movement is requested while the line is already fully
// visible, so steady playback inside the viewport never scrolls.
func ScrollTarget(active, top, height int) (int, bool) {
	if active < 0 || height <= 0 {
		return top, false
	}
	if active < top {
		return active, true
	}
	if active >= top+height {
		return active - height + 1, true
	}
	return top, false
}

// ViewState is the derived display state for one frame.
type ViewState struct {
	ActiveIndex int
	Top         int  // first visible transcript line
	Moved       bool // whether the viewport moved this frame
}

// DeriveView computes a frame's display state from the playback state.
// It is a pure function: same inputs, same output, no side effects.
func DeriveView(s State, autoScroll bool, top, height int) ViewState {
	v := ViewState{ActiveIndex: s.ActiveIndex, Top: top}
	if !autoScroll {
		return v
	}
	if newTop, moved := ScrollTarget(s.ActiveIndex, top, height); moved {
		v.Top = newTop
		v.Moved = true
	}
	return v
}
