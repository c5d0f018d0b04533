package app

import "time"

// TickMsg advances the playback clock. At is the tick's wall-clock time;
// the elapsed delta is measured against the previous tick.
type TickMsg struct {
	At time.Time
}

// TranscriptLoadedMsg carries the result of a transcript fetch. It is
// tagged with the recording id it was dispatched for; results arriving
// after the selection has moved on are discarded, not applied.
type TranscriptLoadedMsg struct {
	RecordingID string
	Text        string
	Err         error
}

// PositionLoadedMsg carries a stored playback position, tagged like
// TranscriptLoadedMsg so stale loads are discarded.
type PositionLoadedMsg struct {
	RecordingID string
	Seconds     float64
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
