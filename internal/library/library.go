package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Library scans a directory tree for recording sets.
type Library struct {
	root string
	pair PairConfig
	log  zerolog.Logger
}

// New returns a Library over the given root directory.
func New(root string, pair PairConfig, log zerolog.Logger) *Library {
	return &Library{root: root, pair: pair.withDefaults(), log: log}
}

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

// Scan walks the library and pairs the documents of each directory into
// recordings. Paths in the result are relative to the library root. Audio
// files that fail duration probing are kept with an unknown duration.
func (l *Library) Scan(ctx context.Context) ([]Recording, error) {
	type docSet struct {
		audio       []string
		transcripts []string
	}
	sets := map[string]*docSet{}

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(rel)
		set := sets[dir]
		if set == nil {
			set = &docSet{}
			sets[dir] = set
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".mp3", ".wav":
			set.audio = append(set.audio, rel)
		case ".txt":
			set.transcripts = append(set.transcripts, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library %s: %w", l.root, err)
	}

	dirs := make([]string, 0, len(sets))
	for dir := range sets {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var recordings []Recording
	for _, dir := range dirs {
		set := sets[dir]
		for _, rec := range PairDocuments(set.audio, set.transcripts, l.pair) {
			dur, err := ProbeDuration(filepath.Join(l.root, rec.AudioPath))
			if err != nil {
				l.log.Warn().Err(err).Str("audio", rec.AudioPath).
					Msg("could not probe audio duration")
			} else {
				rec.Duration = dur
			}
			recordings = append(recordings, rec)
		}
	}

	l.log.Info().Int("recordings", len(recordings)).Str("root", l.root).
		Msg("library scanned")
	return recordings, nil
}

// Source fetches recording content by id. The player does not care whether
// an implementation reads disk, hits the network, or serves fixtures.
type Source interface {
	FetchTranscriptText(ctx context.Context, id string) (string, error)
	FetchAudioPath(ctx context.Context, id string) (string, error)
}

// FSSource serves recording content from the library directory. IDs are
// the library-relative paths produced by Scan.
type FSSource struct {
	root string
}

// NewFSSource returns a Source backed by the given directory.
func NewFSSource(root string) *FSSource {
	return &FSSource{root: root}
}

// FetchTranscriptText reads a transcript file.
func (s *FSSource) FetchTranscriptText(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.root, id))
	if err != nil {
		return "", fmt.Errorf("fetch transcript %s: %w", id, err)
	}
	return string(data), nil
}

// FetchAudioPath resolves an audio id to a playable file path.
func (s *FSSource) FetchAudioPath(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, id)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("fetch audio %s: %w", id, err)
	}
	return path, nil
}
