// Package transcript parses bracketed-timestamp call transcripts into
// timestamped entries offset from the recording start.
package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Entry is one parsed, timestamped transcript line.
type Entry struct {
	Timestamp string  // wall-clock HH:MM:SS as it appeared in the source
	Seconds   float64 // offset from the recording start, never negative
	Speaker   string
	Text      string
	Index     int // position among matched lines; stable identity for display
}

const (
	headerPrefix    = "Call ID:"
	separatorPrefix = "---"

	// DefaultStartTime anchors transcripts that carry no bracketed
	// timestamp at all.
	DefaultStartTime = "00:00:00"

	// driftWarnSeconds is the clamp magnitude above which a parse logs a
	// warning. Small clamps are ordinary clock skew; large ones mean the
	// transcript and recording disagree about when the call started.
	driftWarnSeconds = 5.0
)

var (
	// lineRe matches "[HH:MM:SS   <speaker>]   <text>". The speaker label
	// is non-greedy up to the closing bracket and may be empty.
	lineRe = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2})\s+(.*?)\]\s*(.*)$`)

	// clockRe finds bracketed timestamps anywhere in raw text, used for
	// start-time extraction.
	clockRe = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2})`)
)

// Parser converts raw transcript text into an entry sequence. Parsing has
// no side effects beyond optional logging; the same input always produces
// the same output.
type Parser struct {
	log zerolog.Logger
}

// NewParser returns a Parser that logs through the given logger. Use
// zerolog.Nop() for a silent parser.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{log: log}
}

// Parse converts raw transcript text into entries, with Seconds relative to
// startTime (HH:MM:SS wall clock at playback zero). Header lines, separator
// lines, blanks, and lines that don't match the bracket pattern are skipped.
// Line timestamps earlier than startTime clamp to offset zero. An invalid
// startTime anchors at 00:00:00.
func (p *Parser) Parse(content, startTime string) []Entry {
	base, err := ClockToSeconds(startTime)
	if err != nil {
		base = 0
	}

	var entries []Entry
	var maxClamp float64

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" ||
			strings.HasPrefix(line, headerPrefix) ||
			strings.HasPrefix(line, separatorPrefix) {
			continue
		}

		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		abs, err := ClockToSeconds(m[1])
		if err != nil {
			// Malformed timestamp fails this line only.
			continue
		}

		offset := abs - base
		if offset < 0 {
			if -offset > maxClamp {
				maxClamp = -offset
			}
			offset = 0
		}

		entries = append(entries, Entry{
			Timestamp: m[1],
			Seconds:   offset,
			Speaker:   strings.TrimSpace(m[2]),
			Text:      strings.TrimSpace(m[3]),
			Index:     len(entries),
		})
	}

	if maxClamp > driftWarnSeconds {
		p.log.Warn().
			Float64("maxClampSeconds", maxClamp).
			Str("startTime", startTime).
			Msg("transcript timestamps precede recording start; offsets clamped to zero")
	}

	return entries
}

// ExtractStartTime returns the first bracketed HH:MM:SS timestamp found
// anywhere in the raw text, or DefaultStartTime when none exists.
func ExtractStartTime(content string) string {
	for _, m := range clockRe.FindAllStringSubmatch(content, -1) {
		if _, err := ClockToSeconds(m[1]); err == nil {
			return m[1]
		}
	}
	return DefaultStartTime
}

// ClockToSeconds converts an HH:MM:SS wall-clock string to seconds since
// midnight. Components out of range (e.g. 99:99:99) are an error.
func ClockToSeconds(clock string) (float64, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: want HH:MM:SS", clock)
	}

	var vals [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", clock, err)
		}
		vals[i] = n
	}

	h, m, s := vals[0], vals[1], vals[2]
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("timestamp %q: component out of range", clock)
	}

	return float64(h*3600 + m*60 + s), nil
}
