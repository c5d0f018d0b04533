// Package library discovers call recording sets on disk: audio files paired
// with their transcript files by filename convention.
package library

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind distinguishes the two recording slots of a dual-leg call.
type Kind int

const (
	KindPrimary   Kind = iota // e.g. the virtual-agent leg
	KindSecondary             // e.g. the human-agent leg, marked in the filename
)

// String returns a short display tag for the recording kind.
func (k Kind) String() string {
	if k == KindSecondary {
		return "secondary"
	}
	return "primary"
}

// Recording is one playable audio file with its paired transcript, if any.
// An empty TranscriptPath means the audio is playable but unsynchronized.
type Recording struct {
	ID             string // stable identity, the audio path within the library
	Name           string
	AudioPath      string
	TranscriptPath string
	Kind           Kind
	Duration       float64 // seconds, 0 when unknown
}

// PairConfig holds the filename convention tokens used for pairing.
type PairConfig struct {
	SecondaryMarker           string // audio marker token, e.g. "_2"
	PrimaryTranscriptPrefix   string // e.g. "va_"
	SecondaryTranscriptPrefix string // e.g. "rt_"
}

// DefaultPairConfig returns the conventional tokens.
func DefaultPairConfig() PairConfig {
	return PairConfig{
		SecondaryMarker:           "_2",
		PrimaryTranscriptPrefix:   "va_",
		SecondaryTranscriptPrefix: "rt_",
	}
}

func (c PairConfig) withDefaults() PairConfig {
	def := DefaultPairConfig()
	if c.SecondaryMarker == "" {
		c.SecondaryMarker = def.SecondaryMarker
	}
	if c.PrimaryTranscriptPrefix == "" {
		c.PrimaryTranscriptPrefix = def.PrimaryTranscriptPrefix
	}
	if c.SecondaryTranscriptPrefix == "" {
		c.SecondaryTranscriptPrefix = def.SecondaryTranscriptPrefix
	}
	return c
}

// AudioKind classifies an audio filename: a marker token in the base name
// means secondary, everything else is primary.
func (c PairConfig) AudioKind(path string) Kind {
	c = c.withDefaults()
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if strings.Contains(base, c.SecondaryMarker) {
		return KindSecondary
	}
	return KindPrimary
}

// TranscriptKind classifies a transcript filename by its prefix, returning
// false when the name matches neither category.
func (c PairConfig) TranscriptKind(path string) (Kind, bool) {
	c = c.withDefaults()
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(base, c.PrimaryTranscriptPrefix):
		return KindPrimary, true
	case strings.HasPrefix(base, c.SecondaryTranscriptPrefix):
		return KindSecondary, true
	default:
		return KindPrimary, false
	}
}

// PairDocuments builds recordings from one document set. At most one
// primary and one secondary pairing are made; audio without a matching
// transcript is still listed, just unsynchronized. The classification runs
// once per document set, not per playback tick.
func PairDocuments(audio, transcripts []string, cfg PairConfig) []Recording {
	cfg = cfg.withDefaults()

	// Deterministic output regardless of directory iteration order.
	audio = append([]string(nil), audio...)
	transcripts = append([]string(nil), transcripts...)
	sort.Strings(audio)
	sort.Strings(transcripts)

	byKind := map[Kind]string{}
	for _, t := range transcripts {
		kind, ok := cfg.TranscriptKind(t)
		if !ok {
			continue
		}
		if _, taken := byKind[kind]; !taken {
			byKind[kind] = t
		}
	}

	paired := map[Kind]bool{}
	var recordings []Recording
	for _, a := range audio {
		kind := cfg.AudioKind(a)
		rec := Recording{
			ID:        a,
			Name:      filepath.Base(a),
			AudioPath: a,
			Kind:      kind,
		}
		if tp, ok := byKind[kind]; ok && !paired[kind] {
			rec.TranscriptPath = tp
			paired[kind] = true
		}
		recordings = append(recordings, rec)
	}
	return recordings
}
