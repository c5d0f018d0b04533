package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwulff/relisten/internal/library"
	"github.com/jwulff/relisten/internal/transcript"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeSource serves transcripts from a map, keyed by transcript path.
type fakeSource struct {
	texts map[string]string
	err   error
}

func (s *fakeSource) FetchTranscriptText(_ context.Context, id string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.texts[id], nil
}

func (s *fakeSource) FetchAudioPath(_ context.Context, id string) (string, error) {
	return id, nil
}

const sampleTranscript = "Call ID: 1\n---\n[10:00:00   Agent]   Hi\n[10:00:10   Customer]   Hello"

func testRecordings() []library.Recording {
	return []library.Recording{
		{
			ID:             "callA/call.mp3",
			Name:           "call.mp3",
			AudioPath:      "callA/call.mp3",
			TranscriptPath: "callA/va_transcript_1.txt",
			Kind:           library.KindPrimary,
			Duration:       100,
		},
		{
			ID:             "callA/call_2.mp3",
			Name:           "call_2.mp3",
			AudioPath:      "callA/call_2.mp3",
			TranscriptPath: "callA/rt_transcript_1.txt",
			Kind:           library.KindSecondary,
			Duration:       100,
		},
		{
			ID:        "callB/solo.mp3",
			Name:      "solo.mp3",
			AudioPath: "callB/solo.mp3",
			Kind:      library.KindPrimary,
			Duration:  60,
		},
	}
}

func newTestModel() Model {
	src := &fakeSource{texts: map[string]string{
		"callA/va_transcript_1.txt": sampleTranscript,
	}}
	m := New(testRecordings(), Deps{Source: src, Log: zerolog.Nop()}, Options{AutoScroll: true})
	m.width = 100
	m.height = 30
	return m
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

func TestNewModel(t *testing.T) {
	m := newTestModel()

	if m.current != -1 {
		t.Errorf("current = %d, want -1 (nothing loaded)", m.current)
	}
	if m.playing {
		t.Error("new model should not be playing")
	}
	if m.state.ActiveIndex != -1 || m.state.CurrentSeconds != 0 {
		t.Errorf("fresh playback state = %+v, want {0, -1}", m.state)
	}
	if m.focusedPanel != FocusRecordings {
		t.Error("new model should focus the recordings panel")
	}
	if !m.follow {
		t.Error("follow mode should start enabled")
	}
}

func TestSelectRecordingResetsState(t *testing.T) {
	m := newTestModel()

	// Simulate a previous playback session.
	m.current = 1
	m.playing = true
	m.state.SetTime(nil, 0)
	m.state.CurrentSeconds = 42
	m.entries = parseSample(t)
	m.transcriptTop = 5

	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.current != 0 {
		t.Fatalf("current = %d, want 0", m.current)
	}
	if m.state.CurrentSeconds != 0 || m.state.ActiveIndex != -1 {
		t.Errorf("playback state = %+v, want reset {0, -1}", m.state)
	}
	if m.entries != nil {
		t.Error("old entries must be discarded before the new transcript loads")
	}
	if m.playing {
		t.Error("switching recordings should stop playback")
	}
	if !m.transcriptLoading {
		t.Error("transcript should be loading")
	}
	if cmd == nil {
		t.Error("selection should dispatch a fetch command")
	}
}

func TestSelectRecordingWithoutTranscript(t *testing.T) {
	m := newTestModel()
	m.cursor = 2

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.transcriptLoading {
		t.Error("recording without transcript should not be loading")
	}
	view := m.View()
	if !strings.Contains(view, "No synchronized transcript") {
		t.Error("view should say there is no synchronized transcript")
	}
}

func parseSample(t *testing.T) []transcript.Entry {
	t.Helper()
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})
	return m.entries
}

func TestTranscriptLoadedParses(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = applyUpdate(m, TranscriptLoadedMsg{
		RecordingID: "callA/call.mp3",
		Text:        sampleTranscript,
	})

	if m.transcriptLoading {
		t.Error("loading flag should clear")
	}
	if len(m.entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(m.entries))
	}
	if m.entries[0].Seconds != 0 || m.entries[1].Seconds != 10 {
		t.Errorf("seconds = %v,%v, want 0,10", m.entries[0].Seconds, m.entries[1].Seconds)
	}
	// Clock at zero: first entry active.
	if m.state.ActiveIndex != 0 {
		t.Errorf("ActiveIndex = %d, want 0", m.state.ActiveIndex)
	}
}

func TestStaleTranscriptDiscarded(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter}) // select recording 0

	// Switch to recording 1 while recording 0's fetch is in flight.
	m.cursor = 1
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	// Recording 0's fetch resolves late.
	m, _ = applyUpdate(m, TranscriptLoadedMsg{
		RecordingID: "callA/call.mp3",
		Text:        sampleTranscript,
	})

	if len(m.entries) != 0 {
		t.Error("stale fetch result must be discarded")
	}
	if !m.transcriptLoading {
		t.Error("current recording's fetch is still outstanding")
	}

	// The current recording's fetch resolves and applies.
	m, _ = applyUpdate(m, TranscriptLoadedMsg{
		RecordingID: "callA/call_2.mp3",
		Text:        sampleTranscript,
	})
	if len(m.entries) != 2 {
		t.Errorf("got %d entries, want 2 from the current recording", len(m.entries))
	}
}

func TestTranscriptFetchFailureDegrades(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = applyUpdate(m, TranscriptLoadedMsg{
		RecordingID: "callA/call.mp3",
		Err:         errors.New("boom"),
	})

	if m.transcriptLoading {
		t.Error("loading flag should clear on failure")
	}
	if len(m.entries) != 0 {
		t.Error("entries should stay empty on fetch failure")
	}
	view := m.View()
	if !strings.Contains(view, "Transcript unavailable") {
		t.Error("view should degrade to a no-transcript message")
	}
}

func TestLoadingDistinctFromEmpty(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(m.View(), "Loading transcript") {
		t.Error("in-flight fetch should render as loading, not silence")
	}

	m, _ = applyUpdate(m, TranscriptLoadedMsg{
		RecordingID: "callA/call.mp3",
		Text:        "no bracketed lines here",
	})
	if !strings.Contains(m.View(), "No transcript available") {
		t.Error("zero matched lines should render as no transcript available")
	}
}

func TestTickAdvancesClock(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	start := time.Now()
	m.playing = true
	m.lastTick = start

	m, cmd := applyUpdate(m, TickMsg{At: start.Add(12 * time.Second)})

	if m.state.CurrentSeconds != 12 {
		t.Errorf("CurrentSeconds = %v, want 12", m.state.CurrentSeconds)
	}
	if m.state.ActiveIndex != 1 {
		t.Errorf("ActiveIndex = %d, want 1", m.state.ActiveIndex)
	}
	if cmd == nil {
		t.Error("playing model should schedule the next tick")
	}
}

func TestTickIgnoredWhenPaused(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	m, _ = applyUpdate(m, TickMsg{At: time.Now()})

	if m.state.CurrentSeconds != 0 {
		t.Errorf("paused clock moved to %v", m.state.CurrentSeconds)
	}
}

func TestTickStopsAtDuration(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	start := time.Now()
	m.playing = true
	m.lastTick = start

	m, _ = applyUpdate(m, TickMsg{At: start.Add(500 * time.Second)})

	if m.playing {
		t.Error("playback should stop at the end of the recording")
	}
	if m.state.CurrentSeconds != 100 {
		t.Errorf("CurrentSeconds = %v, want clamped to duration 100", m.state.CurrentSeconds)
	}
}

func TestUnchangedActiveEntryDoesNotScroll(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	m.transcriptTop = 0
	start := time.Now()
	m.playing = true
	m.lastTick = start

	// Two ticks inside entry 0's interval: the viewport must not move.
	m, _ = applyUpdate(m, TickMsg{At: start.Add(2 * time.Second)})
	topAfterFirst := m.transcriptTop
	m, _ = applyUpdate(m, TickMsg{At: start.Add(4 * time.Second)})

	if m.transcriptTop != topAfterFirst {
		t.Errorf("viewport moved from %d to %d without an active-entry change",
			topAfterFirst, m.transcriptTop)
	}
}

func TestSeekKeys(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	// Fractional seek: '5' jumps to half the 100s duration.
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'5'}})
	if m.state.CurrentSeconds != 50 {
		t.Errorf("after '5': CurrentSeconds = %v, want 50", m.state.CurrentSeconds)
	}
	if m.state.ActiveIndex != 1 {
		t.Errorf("after '5': ActiveIndex = %d, want 1", m.state.ActiveIndex)
	}

	// Relative seeks.
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRight})
	if m.state.CurrentSeconds != 55 {
		t.Errorf("after right: CurrentSeconds = %v, want 55", m.state.CurrentSeconds)
	}
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.state.CurrentSeconds != 50 {
		t.Errorf("after left: CurrentSeconds = %v, want 50", m.state.CurrentSeconds)
	}

	// Seeking before zero clamps.
	for i := 0; i < 20; i++ {
		m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyLeft})
	}
	if m.state.CurrentSeconds != 0 {
		t.Errorf("seek below zero: CurrentSeconds = %v, want 0", m.state.CurrentSeconds)
	}

	// Seeking past the end clamps to duration.
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'9'}})
	for i := 0; i < 20; i++ {
		m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRight})
	}
	if m.state.CurrentSeconds != 100 {
		t.Errorf("seek past end: CurrentSeconds = %v, want 100", m.state.CurrentSeconds)
	}
}

func TestSeekToEntry(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	m.focusedPanel = FocusTranscript
	m.entryCursor = 1
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.state.CurrentSeconds != 10 {
		t.Errorf("CurrentSeconds = %v, want the entry's offset 10", m.state.CurrentSeconds)
	}
	if m.state.ActiveIndex != 1 {
		t.Errorf("ActiveIndex = %d, want 1", m.state.ActiveIndex)
	}
	if !m.follow {
		t.Error("entry seek should re-enable follow mode")
	}
}

func TestManualScrollSuspendsFollow(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	m.focusedPanel = FocusTranscript
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	if m.follow {
		t.Error("manual navigation should suspend follow mode")
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if !m.follow {
		t.Error("f should re-enable follow mode")
	}
}

func TestStalePositionDiscarded(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	m, _ = applyUpdate(m, PositionLoadedMsg{RecordingID: "callB/solo.mp3", Seconds: 30})

	if m.state.CurrentSeconds != 0 {
		t.Errorf("stale position applied: CurrentSeconds = %v", m.state.CurrentSeconds)
	}
}

func TestPositionLoadedResumes(t *testing.T) {
	m := newTestModel()
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = applyUpdate(m, TranscriptLoadedMsg{RecordingID: "callA/call.mp3", Text: sampleTranscript})

	m, _ = applyUpdate(m, PositionLoadedMsg{RecordingID: "callA/call.mp3", Seconds: 12})

	if m.state.CurrentSeconds != 12 {
		t.Errorf("CurrentSeconds = %v, want 12", m.state.CurrentSeconds)
	}
	if m.state.ActiveIndex != 1 {
		t.Errorf("ActiveIndex = %d, want 1", m.state.ActiveIndex)
	}
}

func TestTabTogglesFocus(t *testing.T) {
	m := newTestModel()

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPanel != FocusTranscript {
		t.Error("tab should switch to the transcript panel")
	}
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPanel != FocusRecordings {
		t.Error("tab again should switch back to recordings")
	}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	m := newTestModel()

	// No recording loaded: space is a no-op.
	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.playing || cmd != nil {
		t.Error("space without a recording should do nothing")
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace})
	if !m.playing {
		t.Error("space should start playback")
	}
	if cmd == nil {
		t.Error("starting playback should schedule a tick")
	}

	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.playing {
		t.Error("space again should pause")
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m := newTestModel()
	view := m.View()
	if view == "" || view == "Initializing..." {
		t.Errorf("view should render with size set, got %q", view)
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(nil, Deps{Source: &fakeSource{}, Log: zerolog.Nop()}, Options{})
	if view := m.View(); view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}
