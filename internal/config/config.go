// Package config loads the sheetconv configuration file.
//
// The file is TOML:
//
//	[dates]
//	extra_patterns   = ["[$-F800]"]
//	exclude_patterns = []
//
//	[csv]
//	delimiter   = ";"
//	bom         = true
//	date_layout = "2006-01-02"
//
//	[log]
//	level  = "info"
//	format = "text"   # or "json"
package config

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/TsubasaBE/go-xlsx/csv"
	"github.com/TsubasaBE/go-xlsx/numfmt"
)

// ErrInvalid is returned for a configuration that parses but cannot be
// applied.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the content of a configuration file.
type Config struct {
	Dates Dates `toml:"dates"`
	CSV   CSV   `toml:"csv"`
	Log   Log   `toml:"log"`
}

// Dates tunes the date-format recogniser.
type Dates struct {
	ExtraPatterns   []string `toml:"extra_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

// CSV holds the defaults for the CSV codec.
type CSV struct {
	Delimiter  string `toml:"delimiter"`
	BOM        bool   `toml:"bom"`
	DateLayout string `toml:"date_layout"`
}

// Log selects the log level and output format.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		CSV: CSV{Delimiter: ","},
		Log: Log{Level: "warning", Format: "text"},
	}
}

// Load reads the file at path over the defaults.  An empty path returns
// Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, finish(md, cfg)
}

// Parse is Load for in-memory content.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, finish(md, cfg)
}

func finish(md toml.MetaData, cfg Config) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	if _, err := cfg.Delimiter(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalid, err)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, cfg.Log.Format)
	}
	return nil
}

// Recognizer returns the date-format recogniser described by [dates].
func (c Config) Recognizer() *numfmt.Recognizer {
	return &numfmt.Recognizer{Extra: c.Dates.ExtraPatterns, Exclude: c.Dates.ExcludePatterns}
}

// Delimiter returns the CSV delimiter as a rune.  It must be exactly one
// character.
func (c Config) Delimiter() (rune, error) {
	d := c.CSV.Delimiter
	if d == "" {
		return ',', nil
	}
	if d == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: csv delimiter %q must be a single character", ErrInvalid, d)
	}
	return r, nil
}

// CSVOptions returns the codec options described by [csv].
func (c Config) CSVOptions() []csv.Option {
	d, _ := c.Delimiter()
	return []csv.Option{
		csv.WithDelimiter(d),
		csv.WithBOM(c.CSV.BOM),
		csv.WithDateLayout(c.CSV.DateLayout),
	}
}

// Logger builds a logger writing to out.  verbose forces the debug level.
func (c Config) Logger(out io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l
}
