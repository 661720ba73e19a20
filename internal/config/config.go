// Package config reads and writes the user configuration file, a plain
// key=value file under the XDG config directory, with environment fallbacks.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Config keys.
const (
	KeyOutputDir        = "output-dir"
	KeyWorkers          = "workers"
	KeySilenceThreshold = "silence-threshold"
	KeySilenceDuration  = "silence-duration"
	KeyEngine           = "engine"
	KeyModel            = "model"
	KeyLanguage         = "language"
	KeyEngineCommand    = "engine-command"
	KeyPrompt           = "prompt"
	KeyLogLevel         = "log-level"
	KeyLogFile          = "log-file"
)

// Keys lists every supported key in display order.
var Keys = []string{
	KeyOutputDir,
	KeyWorkers,
	KeySilenceThreshold,
	KeySilenceDuration,
	KeyEngine,
	KeyModel,
	KeyLanguage,
	KeyEngineCommand,
	KeyPrompt,
	KeyLogLevel,
	KeyLogFile,
}

// envPrefix prefixes the environment fallback of every key.
const envPrefix = "CHUNKSCRIBE_"

// appName names the configuration directory.
const appName = "chunkscribe"

var (
	// ErrUnknownKey indicates a key not listed in Keys.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue indicates a value that cannot be used for its key.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrInvalidKey indicates a key that cannot be written to the file.
	ErrInvalidKey = errors.New("invalid config key syntax")

	// ErrInvalidSyntax indicates a config file line without '='.
	ErrInvalidSyntax = errors.New("invalid config syntax")

	// ErrNotDirectory indicates an output-dir that is a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotWritable indicates an output-dir the user cannot write to.
	ErrNotWritable = errors.New("directory is not writable")
)

// Config holds user configuration loaded from ~/.config/chunkscribe/config.
// Zero values mean "not configured"; callers apply their own defaults.
type Config struct {
	OutputDir        string
	Workers          int
	SilenceThreshold string
	SilenceDuration  float64
	Engine           string
	Model            string
	Language         string
	EngineCommand    string
	Prompt           string
	LogLevel         string
	LogFile          string
}

// EnvName returns the environment variable consulted for key,
// e.g. CHUNKSCRIBE_SILENCE_THRESHOLD for silence-threshold.
func EnvName(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// IsKey reports whether key is a supported config key.
func IsKey(key string) bool {
	return slices.Contains(Keys, key)
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/chunkscribe.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// A key set in the file wins over its environment variable.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		data = make(map[string]string)
	}

	// Environment variable fallback (only if not set in config).
	for _, key := range Keys {
		if data[key] == "" {
			if v := os.Getenv(EnvName(key)); v != "" {
				data[key] = v
			}
		}
	}

	return fromMap(data)
}

// fromMap converts raw values into a Config, validating numeric keys.
func fromMap(data map[string]string) (Config, error) {
	cfg := Config{
		OutputDir:        data[KeyOutputDir],
		SilenceThreshold: data[KeySilenceThreshold],
		Engine:           data[KeyEngine],
		Model:            data[KeyModel],
		Language:         data[KeyLanguage],
		EngineCommand:    data[KeyEngineCommand],
		Prompt:           data[KeyPrompt],
		LogLevel:         data[KeyLogLevel],
		LogFile:          data[KeyLogFile],
	}

	if v := data[KeyWorkers]; v != "" {
		n, err := parseWorkers(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Workers = n
	}
	if v := data[KeySilenceDuration]; v != "" {
		d, err := parseSilenceDuration(v)
		if err != nil {
			return Config{}, err
		}
		cfg.SilenceDuration = d
	}
	return cfg, nil
}

func parseWorkers(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q (want a non-negative integer)", ErrInvalidValue, KeyWorkers, v)
	}
	return n, nil
}

func parseSilenceDuration(v string) (float64, error) {
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q (want seconds > 0)", ErrInvalidValue, KeySilenceDuration, v)
	}
	return d, nil
}

// Validate checks that value can be stored under key.
// Only syntax is checked; engine names and thresholds are checked where used.
func Validate(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	switch key {
	case KeyWorkers:
		_, err := parseWorkers(value)
		return err
	case KeySilenceDuration:
		_, err := parseSilenceDuration(value)
		return err
	case KeyOutputDir:
		return EnsureOutputDir(value)
	}
	return nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w at line %d: %q", ErrInvalidSyntax, lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=#\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value for %s contains a line break", ErrInvalidValue, key)
	}

	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted for stable diffs.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all values stored in the config file.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir checks that d can be used as output-dir, creating it when
// missing. A leading ~/ is expanded.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: output-dir cannot be empty", ErrInvalidValue)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Check if writable by attempting to create a temp file.
	f, err := os.CreateTemp(d, ".chunkscribe-write-test-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	name := f.Name()
	closeErr := f.Close()
	_ = os.Remove(name) // Best effort cleanup, ignore error
	if closeErr != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, closeErr)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

// Path returns the configuration file path.
func Path() (string, error) {
	return path()
}
