package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jwulff/relisten/internal/library"
	"github.com/jwulff/relisten/internal/playback"
	"github.com/jwulff/relisten/internal/store"
	"github.com/jwulff/relisten/internal/transcript"
	"github.com/jwulff/relisten/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusRecordings PanelFocus = iota
	FocusTranscript
)

// Deps are the collaborators injected into the model.
type Deps struct {
	Source library.Source
	Store  *store.Store // may be nil; resume is then disabled
	Log    zerolog.Logger
}

// Options are the user-tunable playback settings.
type Options struct {
	TickInterval time.Duration
	AutoScroll   bool
	SeekStep     float64 // seconds per arrow-key seek
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = 250 * time.Millisecond
	}
	if o.SeekStep <= 0 {
		o.SeekStep = 5
	}
	return o
}

// Model is the root bubbletea model for the relisten TUI.
type Model struct {
	deps   Deps
	opts   Options
	parser *transcript.Parser

	// Library
	recordings []library.Recording
	cursor     int // selection in the recordings panel
	current    int // loaded recording index, -1 when none

	// Transcript
	entries           []transcript.Entry
	transcriptLoading bool
	transcriptErr     string
	entryCursor       int // entry selected for click-to-seek

	// Playback
	state    playback.State
	playing  bool
	lastTick time.Time
	follow   bool

	// UI state
	focusedPanel  PanelFocus
	width         int
	height        int
	transcriptTop int // first visible entry in the transcript panel
	seekBar       progress.Model

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string
}

// New creates a Model over the scanned recordings.
func New(recordings []library.Recording, deps Deps, opts Options) Model {
	return Model{
		deps:         deps,
		opts:         opts.withDefaults(),
		parser:       transcript.NewParser(deps.Log),
		recordings:   recordings,
		current:      -1,
		state:        playback.NewState(),
		follow:       opts.AutoScroll,
		focusedPanel: FocusRecordings,
		seekBar:      progress.New(progress.WithDefaultGradient()),
		statusText:   "Select a recording",
	}
}

// Init returns the initial command. Nothing runs until a recording is
// selected.
func (m Model) Init() tea.Cmd {
	return nil
}

// tickCmd schedules the next playback clock tick.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{At: t}
	})
}

// loadTranscriptCmd fetches the transcript for a recording. The result is
// tagged with the recording id for the staleness check on completion.
func (m Model) loadTranscriptCmd(rec library.Recording) tea.Cmd {
	src := m.deps.Source
	return func() tea.Msg {
		text, err := src.FetchTranscriptText(context.Background(), rec.TranscriptPath)
		return TranscriptLoadedMsg{RecordingID: rec.ID, Text: text, Err: err}
	}
}

// loadPositionCmd reads the stored playback position for a recording.
func (m Model) loadPositionCmd(recID string) tea.Cmd {
	st := m.deps.Store
	log := m.deps.Log
	return func() tea.Msg {
		p, err := st.Position(recID)
		if err != nil {
			log.Warn().Err(err).Str("recording", recID).Msg("could not load playback position")
			return nil
		}
		if p == nil {
			return nil
		}
		return PositionLoadedMsg{RecordingID: recID, Seconds: p.PositionSeconds}
	}
}

// savePositionCmd persists the current playback position. Best effort:
// failures are logged, never surfaced.
func (m Model) savePositionCmd() tea.Cmd {
	if m.deps.Store == nil || m.current < 0 {
		return nil
	}
	rec := m.recordings[m.current]
	pos := store.Position{
		RecordingID:     rec.ID,
		PositionSeconds: m.state.CurrentSeconds,
		DurationSeconds: rec.Duration,
	}
	st := m.deps.Store
	log := m.deps.Log
	return func() tea.Msg {
		if err := st.SavePosition(pos); err != nil {
			log.Warn().Err(err).Str("recording", pos.RecordingID).Msg("could not save playback position")
		}
		return nil
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seekBar.Width = max(10, msg.Width-40)
		return m, nil

	case TickMsg:
		return m.handleTick(msg)

	case TranscriptLoadedMsg:
		return m.handleTranscriptLoaded(msg)

	case PositionLoadedMsg:
		if !m.isCurrent(msg.RecordingID) {
			return m, nil
		}
		t := playback.Clamp(msg.Seconds, m.currentDuration())
		if m.state.SetTime(m.entries, t) {
			m.followActive()
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleTick advances the playback clock by the elapsed wall time and
// recomputes the active entry. Scroll work happens only when the active
// entry actually changed.
func (m Model) handleTick(msg TickMsg) (tea.Model, tea.Cmd) {
	if !m.playing {
		// Stale tick from before a pause or recording switch.
		return m, nil
	}

	dt := msg.At.Sub(m.lastTick).Seconds()
	if dt < 0 {
		dt = 0
	}
	m.lastTick = msg.At

	changed := m.state.Advance(m.entries, dt)

	if dur := m.currentDuration(); dur > 0 && m.state.CurrentSeconds >= dur {
		if m.state.SetTime(m.entries, dur) {
			changed = true
		}
		m.playing = false
		m.statusText = "Finished"
	}

	if changed {
		m.followActive()
	}

	if m.playing {
		return m, tickCmd(m.opts.TickInterval)
	}
	return m, m.savePositionCmd()
}

// handleTranscriptLoaded applies a fetched transcript, unless the user has
// switched recordings since the fetch was dispatched.
func (m Model) handleTranscriptLoaded(msg TranscriptLoadedMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.RecordingID) {
		m.deps.Log.Debug().Str("recording", msg.RecordingID).
			Msg("discarding stale transcript fetch")
		return m, nil
	}

	m.transcriptLoading = false
	if msg.Err != nil {
		m.deps.Log.Warn().Err(msg.Err).Str("recording", msg.RecordingID).
			Msg("transcript fetch failed")
		m.transcriptErr = "Transcript unavailable"
		m.entries = nil
		m.errorMessage = "Could not load transcript for " + msg.RecordingID
		m.errorTransient = true
		return m, clearTransientErrorCmd()
	}

	startTime := transcript.ExtractStartTime(msg.Text)
	m.entries = m.parser.Parse(msg.Text, startTime)
	m.transcriptErr = ""
	m.entryCursor = 0
	m.transcriptTop = 0

	// The clock may already be past zero (resumed position); resolve the
	// active entry against the fresh sequence.
	if m.state.SetTime(m.entries, m.state.CurrentSeconds) {
		m.followActive()
	}
	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Sequence(m.savePositionCmd(), tea.Quit)

	case KeyTab:
		if m.focusedPanel == FocusRecordings {
			m.focusedPanel = FocusTranscript
		} else {
			m.focusedPanel = FocusRecordings
		}
		return m, nil

	case KeySpace:
		return m.togglePlayback()

	case KeyJ, KeyDown:
		return m.moveCursor(1), nil

	case KeyK, KeyUp:
		return m.moveCursor(-1), nil

	case KeyEnter:
		if m.focusedPanel == FocusRecordings {
			return m.selectRecording(m.cursor)
		}
		return m.seekToEntry(m.entryCursor), nil

	case KeyLeft:
		return m.seekBy(-m.opts.SeekStep), nil

	case KeyRight:
		return m.seekBy(m.opts.SeekStep), nil

	case KeyFollow, KeyFollowUpper:
		m.follow = !m.follow
		if m.follow {
			m.followActive()
		}
		return m, nil
	}

	// Digits 0-9 seek to that tenth of the recording, the terminal
	// analogue of clicking a progress bar.
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return m.seekToFraction(float64(key[0]-'0') / 10), nil
	}

	return m, nil
}

// togglePlayback starts or pauses the playback clock.
func (m Model) togglePlayback() (tea.Model, tea.Cmd) {
	if m.current < 0 {
		return m, nil
	}
	if m.playing {
		m.playing = false
		m.statusText = "Paused"
		return m, m.savePositionCmd()
	}
	m.playing = true
	m.lastTick = time.Now()
	m.statusText = "Playing"
	return m, tickCmd(m.opts.TickInterval)
}

// moveCursor moves the focused panel's selection by delta.
func (m Model) moveCursor(delta int) Model {
	if m.focusedPanel == FocusRecordings {
		m.cursor = clampInt(m.cursor+delta, 0, len(m.recordings)-1)
		return m
	}

	if len(m.entries) == 0 {
		return m
	}
	// Manual browsing suspends follow mode until re-enabled.
	m.follow = false
	m.entryCursor = clampInt(m.entryCursor+delta, 0, len(m.entries)-1)
	if top, moved := playback.ScrollTarget(m.entryCursor, m.transcriptTop, m.transcriptContentHeight()); moved {
		m.transcriptTop = top
	}
	return m
}

// selectRecording discards the previous playback session and loads the
// recording at index i. No state from the old recording survives.
func (m Model) selectRecording(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.recordings) {
		return m, nil
	}

	var cmds []tea.Cmd
	if cmd := m.savePositionCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}

	rec := m.recordings[i]
	m.current = i
	m.entries = nil
	m.entryCursor = 0
	m.transcriptTop = 0
	m.transcriptErr = ""
	m.state = playback.NewState()
	m.playing = false
	m.follow = m.opts.AutoScroll
	m.statusText = "Paused"

	if rec.TranscriptPath != "" {
		m.transcriptLoading = true
		cmds = append(cmds, m.loadTranscriptCmd(rec))
	} else {
		m.transcriptLoading = false
	}
	if m.deps.Store != nil {
		cmds = append(cmds, m.loadPositionCmd(rec.ID))
	}

	m.deps.Log.Info().Str("recording", rec.ID).Msg("recording selected")
	return m, tea.Batch(cmds...)
}

// seekToEntry jumps the clock to the selected entry's offset.
func (m Model) seekToEntry(i int) Model {
	if m.current < 0 || i < 0 || i >= len(m.entries) {
		return m
	}
	target := playback.Clamp(m.entries[i].Seconds, m.currentDuration())
	if m.state.SetTime(m.entries, target) {
		m.follow = true
		m.followActive()
	}
	return m
}

// seekBy jumps the clock by a relative number of seconds.
func (m Model) seekBy(delta float64) Model {
	if m.current < 0 {
		return m
	}
	target := playback.Clamp(m.state.CurrentSeconds+delta, m.currentDuration())
	if m.state.SetTime(m.entries, target) {
		m.followActive()
	}
	return m
}

// seekToFraction jumps the clock to a fraction of the total duration.
func (m Model) seekToFraction(frac float64) Model {
	dur := m.currentDuration()
	if m.current < 0 || dur <= 0 {
		return m
	}
	target := playback.Clamp(frac*dur, dur)
	if m.state.SetTime(m.entries, target) {
		m.followActive()
	}
	return m
}

// followActive scrolls the transcript viewport to the active entry when
// follow mode is on.
func (m *Model) followActive() {
	v := playback.DeriveView(m.state, m.follow, m.transcriptTop, m.transcriptContentHeight())
	m.transcriptTop = v.Top
	if m.state.ActiveIndex >= 0 {
		m.entryCursor = m.state.ActiveIndex
	}
}

func (m Model) isCurrent(recordingID string) bool {
	return m.current >= 0 && m.recordings[m.current].ID == recordingID
}

func (m Model) currentDuration() float64 {
	if m.current < 0 {
		return 0
	}
	return m.recordings[m.current].Duration
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(1) + divider(1) + error(1) + footer(1) + padding
	reserved := 7
	return max(5, m.height-reserved)
}

// transcriptContentHeight is the entry rows available below the panel header.
func (m Model) transcriptContentHeight() int {
	return max(1, m.transcriptVisibleLines()-1)
}

func (m Model) recordingsPanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(24, m.width*30/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.recordingsPanelWidth()-3)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("RELISTEN")

	var recInfo string
	if m.current >= 0 {
		rec := m.recordings[m.current]
		recInfo = ui.DimStyle.Render(fmt.Sprintf(" — %s [%s]", rec.Name, rec.Kind))
	}

	return title + recInfo
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.playing {
		dot = ui.PlayingDotStyle.Render("▶ PLAY")
	} else {
		dot = ui.PausedDotStyle.Render("■ " + m.statusText)
	}

	dur := m.currentDuration()
	clock := ui.TimestampStyle.Render(
		fmt.Sprintf(" %s / %s ", formatClock(m.state.CurrentSeconds), formatClock(dur)))

	var bar string
	if dur > 0 {
		bar = m.seekBar.ViewAs(m.state.CurrentSeconds / dur)
	} else {
		bar = ui.DimStyle.Render(strings.Repeat("─", max(10, m.seekBar.Width)))
	}

	var badge string
	if m.follow {
		badge = ui.FollowBadgeStyle.Render(" FOLLOW")
	} else {
		badge = ui.ManualBadgeStyle.Render(" MANUAL")
	}

	return dot + clock + bar + badge
}

func (m Model) renderMainContent() string {
	recW := m.recordingsPanelWidth()
	transcriptW := m.transcriptPanelWidth()
	contentH := m.transcriptVisibleLines()

	recPanel := m.renderRecordingsPanel(recW, contentH)
	transcriptPanel := m.renderTranscriptPanel(transcriptW, contentH)

	divider := ui.DividerStyle.Render("│")

	recLines := strings.Split(recPanel, "\n")
	transcriptLines := strings.Split(transcriptPanel, "\n")

	var rows []string
	for i := 0; i < contentH; i++ {
		var left, right string
		if i < len(recLines) {
			left = recLines[i]
		}
		left = padRight(left, recW)
		if i < len(transcriptLines) {
			right = transcriptLines[i]
		}
		rows = append(rows, left+divider+right)
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderRecordingsPanel(width, height int) string {
	var header string
	title := fmt.Sprintf("RECORDINGS (%d)", len(m.recordings))
	if m.focusedPanel == FocusRecordings {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	lines := []string{header}

	if len(m.recordings) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No recordings found"))
		lines = append(lines, ui.DimStyle.Render("  Check the library directory"))
	} else {
		for i, rec := range m.recordings {
			marker := "  "
			if i == m.cursor && m.focusedPanel == FocusRecordings {
				marker = "> "
			}

			label := rec.Name
			if rec.Duration > 0 {
				label += " " + formatClock(rec.Duration)
			}
			if rec.TranscriptPath == "" {
				label += " ∅"
			}

			var line string
			switch {
			case i == m.current:
				line = marker + ui.SelectedStyle.Render(label)
			case i == m.cursor && m.focusedPanel == FocusRecordings:
				line = ui.SelectedStyle.Render(marker) + label
			default:
				line = marker + label
			}
			lines = append(lines, truncateToWidth(line, width))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var badge string
	if m.follow {
		badge = ui.FollowBadgeStyle.Render(" FOLLOW")
	} else {
		badge = ui.ManualBadgeStyle.Render(" MANUAL")
	}

	var header string
	if m.focusedPanel == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT") + badge
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT") + badge
	}

	lines := []string{header}
	contentHeight := height - 1

	switch {
	case m.current < 0:
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Select a recording and press Enter"))

	case m.transcriptLoading:
		// In flight is not the same as empty; say so.
		lines = append(lines, "")
		lines = append(lines, ui.LoadingStyle.Render("  Loading transcript..."))

	case m.transcriptErr != "":
		lines = append(lines, "")
		lines = append(lines, ui.ErrorTextStyle.Render("  "+m.transcriptErr))

	case m.recordings[m.current].TranscriptPath == "":
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  No synchronized transcript for this recording"))

	case len(m.entries) == 0:
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  No transcript available"))

	default:
		lines = append(lines, m.renderEntries(width, contentHeight)...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// renderEntries renders the visible window of transcript entries, one entry
// per row group, with the active entry highlighted.
func (m Model) renderEntries(width, height int) []string {
	// Prefix: "▶ [HH:MM:SS] [AGENT] " = ~22 visible chars
	prefixWidth := 22
	textWidth := max(10, width-prefixWidth-2)
	indent := strings.Repeat(" ", prefixWidth)

	start := clampInt(m.transcriptTop, 0, max(0, len(m.entries)-1))

	var lines []string
	for i := start; i < len(m.entries) && len(lines) < height; i++ {
		e := m.entries[i]
		active := i == m.state.ActiveIndex

		marker := "  "
		if active {
			marker = ui.ActiveEntryStyle.Render("▶ ")
		} else if i == m.entryCursor && m.focusedPanel == FocusTranscript {
			marker = ui.SelectedStyle.Render("> ")
		}

		ts := ui.TimestampStyle.Render("[" + e.Timestamp + "]")
		tag := renderSpeakerTag(e.Speaker)

		wrapped := wrapText(e.Text, textWidth)
		body := wrapped[0]
		if active {
			body = ui.ActiveEntryStyle.Render(body)
		}
		lines = append(lines, marker+ts+" "+tag+" "+body)

		for _, wl := range wrapped[1:] {
			if len(lines) >= height {
				break
			}
			if active {
				wl = ui.ActiveEntryStyle.Render(wl)
			}
			lines = append(lines, indent+wl)
		}
	}
	return lines
}

// renderSpeakerTag styles a speaker label by its classification.
func renderSpeakerTag(speaker string) string {
	tag := "[" + transcript.ClassifySpeaker(speaker).String() + "]"
	switch transcript.ClassifySpeaker(speaker) {
	case transcript.SpeakerBot:
		return ui.SpeakerBotStyle.Render(tag)
	case transcript.SpeakerCustomer:
		return ui.SpeakerCustomerStyle.Render(tag)
	default:
		return ui.SpeakerAgentStyle.Render(tag)
	}
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	if m.current >= 0 {
		if m.playing {
			parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Pause"))
		} else {
			parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Play"))
		}
		parts = append(parts, ui.FooterKeyStyle.Render("←→")+ui.FooterDescStyle.Render(" Seek"))
		parts = append(parts, ui.FooterKeyStyle.Render("0-9")+ui.FooterDescStyle.Render(" Jump"))
		parts = append(parts, ui.FooterKeyStyle.Render("f")+ui.FooterDescStyle.Render(" Follow"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Focus"))
	parts = append(parts, ui.FooterKeyStyle.Render("j/k")+ui.FooterDescStyle.Render(" Nav"))
	parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Select"))
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

// formatClock renders seconds as M:SS or H:MM:SS.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	mnt := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%d:%02d", mnt, s)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
