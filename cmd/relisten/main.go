package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jwulff/relisten/internal/app"
	"github.com/jwulff/relisten/internal/config"
	"github.com/jwulff/relisten/internal/library"
	"github.com/jwulff/relisten/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	libraryDir string
	dbPath     string
	logFile    string
	noFollow   bool
	tickMs     int
)

var rootCmd = &cobra.Command{
	Use:          "relisten [library-dir]",
	Short:        "Replay call recordings with a synchronized transcript",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&libraryDir, "library", "l", "", "recording library directory")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "playback-position database path")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "log file path")
	rootCmd.Flags().BoolVar(&noFollow, "no-follow", false, "start with transcript follow mode disabled")
	rootCmd.Flags().IntVar(&tickMs, "tick-ms", 0, "playback clock cadence in milliseconds")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.LoadOrDefault()

	// Precedence: flag > positional arg > config file.
	if len(args) > 0 {
		cfg.LibraryDir = args[0]
	}
	if libraryDir != "" {
		cfg.LibraryDir = libraryDir
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if tickMs > 0 {
		cfg.TickMs = tickMs
	}
	if noFollow {
		f := false
		cfg.AutoScroll = &f
	}

	if cfg.LibraryDir == "" {
		return fmt.Errorf("no library directory; pass one or set library_dir in %s", config.ConfigFileName)
	}

	log, closeLog := newLogger(cfg.LogFile)
	defer closeLog()

	pair := library.PairConfig{
		SecondaryMarker:           cfg.SecondaryMarker,
		PrimaryTranscriptPrefix:   cfg.PrimaryTranscriptPrefix,
		SecondaryTranscriptPrefix: cfg.SecondaryTranscriptPrefix,
	}
	lib := library.New(cfg.LibraryDir, pair, log)
	recordings, err := lib.Scan(context.Background())
	if err != nil {
		return err
	}

	path := cfg.DBPath
	if path == "" {
		path = store.DefaultDBPath()
	}
	var st *store.Store
	if s, err := store.Open(path); err != nil {
		log.Warn().Err(err).Str("path", path).
			Msg("playback-position store unavailable; resume disabled")
	} else {
		st = s
		defer st.Close()
		if id, err := st.BeginSession(); err == nil {
			defer st.EndSession(id)
		}
	}

	m := app.New(recordings,
		app.Deps{
			Source: library.NewFSSource(cfg.LibraryDir),
			Store:  st,
			Log:    log,
		},
		app.Options{
			TickInterval: cfg.TickInterval(),
			AutoScroll:   cfg.AutoScrollEnabled(),
			SeekStep:     cfg.SeekStepSeconds,
		})

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// newLogger opens a file-backed logger. The TUI owns the terminal, so
// anything that can't log to a file logs nowhere.
func newLogger(path string) (zerolog.Logger, func()) {
	nop := func() {}

	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return zerolog.Nop(), nop
		}
		path = filepath.Join(dir, "relisten.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nop
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nop
	}

	return zerolog.New(f).With().Timestamp().Logger(), func() { f.Close() }
}
