// Package logging builds the zerolog loggers used across chunkscribe.
//
// Console output is meant for humans watching a run on stderr; JSON output
// (and the optional rotated log file) is meant for machines.
package logging

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Field names shared by all components.
const (
	FieldComponent = "component"
	FieldRun       = "run"
	FieldChunk     = "chunk"
	FieldPath      = "path"
)

// ErrInvalidOptions indicates an unknown level or format.
var ErrInvalidOptions = errors.New("invalid logging options")

var validLevels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

// Options configures a logger.
type Options struct {
	Level  string // trace, debug, info, warn, error, disabled. Default: info.
	Format string // console or json. Default: console.
	// File, when set, receives JSON lines in addition to the primary writer.
	// The file is rotated by size.
	File       string
	MaxSizeMB  int // Default: 50.
	MaxBackups int // Default: 3.
	NoColor    bool
}

// ApplyDefaults fills zero-valued fields.
func (o *Options) ApplyDefaults() {
	if o.Level == "" {
		o.Level = "info"
	}
	if o.Format == "" {
		o.Format = FormatConsole
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 50
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 3
	}
}

// Validate checks level and format.
func (o Options) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(o.Level)) {
		return fmt.Errorf("%w: level must be one of %v (got %q)", ErrInvalidOptions, validLevels, o.Level)
	}
	switch strings.ToLower(o.Format) {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: format must be %s or %s (got %q)", ErrInvalidOptions, FormatConsole, FormatJSON, o.Format)
	}
	return nil
}

// New creates a logger writing to w.
// The returned closer releases the rotated log file, if any; it is never nil.
func New(w io.Writer, opts Options) (zerolog.Logger, io.Closer, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	primary := w
	if strings.ToLower(opts.Format) == FormatConsole {
		primary = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    opts.NoColor,
			TimeFormat: time.Kitchen,
		}
	}

	var closer io.Closer = nopCloser{}
	out := primary
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		closer = rotated
		out = zerolog.MultiLevelWriter(primary, rotated)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
