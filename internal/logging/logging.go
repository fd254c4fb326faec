package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File, when set, receives a JSON copy of every record with rotation.
	File    string
	Console io.Writer
	NoColor bool
}

// New builds the root logger: human readable output on the console, teed into
// a rotating JSON file when Options.File is set. The returned closer flushes
// and closes the file.
func New(opts Options) (zerolog.Logger, io.Closer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, NoColor: opts.NoColor}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		}
		writers = append(writers, file)
		closer = file
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
	return logger, closer
}

// ParseLevel maps a level name onto zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return zerolog.WarnLevel
	case "":
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a child logger tagged with comp, the way every package
// receives its logger.
func Component(l zerolog.Logger, comp string) zerolog.Logger {
	return l.With().Str("comp", comp).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
