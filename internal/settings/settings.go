// Package settings persists the user's preferences as a small JSON document.
//
// Reads never fail: a missing, unreadable or corrupt file yields the
// defaults, and fields absent from the file keep their default values.
// Writes replace the file atomically (temp file + rename) so a crash never
// leaves a half-written document behind.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/logging"
)

// Theme selects the TUI palette.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Settings is the persisted preferences document.
type Settings struct {
	Theme           Theme  `json:"theme"`
	LastSource      string `json:"lastSource"`
	LastDest        string `json:"lastDest"`
	DefaultDelete   bool   `json:"defaultDelete"`
	DefaultDryRun   bool   `json:"defaultDryRun"`
	DefaultChecksum bool   `json:"defaultChecksum"`
	ReduceMotion    bool   `json:"reduceMotion"`
}

// Defaults returns the settings used when nothing has been saved.
func Defaults() Settings {
	return Settings{
		Theme:         ThemeLight,
		DefaultDelete: true,
	}
}

// Validate checks enumerated fields.
func (s Settings) Validate() error {
	switch s.Theme {
	case ThemeDark, ThemeLight:
		return nil
	default:
		return errors.NewValidationError("theme must be dark or light").
			WithField("theme").
			WithValue(s.Theme)
	}
}

// Keys returns the JSON names of every setting, sorted.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, t.Field(i).Tag.Get("json"))
	}
	sort.Strings(keys)
	return keys
}

// FileName is the default name of the settings document.
const FileName = "settings.json"

// Store caches the settings document and writes it back on change.
// It is safe for concurrent use.
type Store struct {
	fs     afero.Fs
	path   string
	logger *logging.Logger
	lock   *fileLock // nil unless fs is the OS filesystem

	mu     sync.RWMutex
	cached Settings
}

// NewStore opens the document at path on fs and loads it.
func NewStore(fs afero.Fs, path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Store{
		fs:     fs,
		path:   path,
		logger: logger.With("component", "settings"),
	}
	if _, ok := fs.(*afero.OsFs); ok {
		s.lock = newFileLock(path)
	}
	s.cached = s.load()
	return s
}

// Path returns the location of the settings document.
func (s *Store) Path() string {
	return s.path
}

// Get returns the cached settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

// Reload re-reads the document from disk and returns the result.
func (s *Store) Reload() Settings {
	next := s.load()
	s.mu.Lock()
	s.cached = next
	s.mu.Unlock()
	return next
}

func (s *Store) load() Settings {
	settings := Defaults()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read settings, using defaults", "path", s.path, "error", err)
		}
		return settings
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		s.logger.Warn("corrupt settings file, using defaults", "path", s.path, "error", err)
		return Defaults()
	}
	if err := settings.Validate(); err != nil {
		s.logger.Warn("invalid settings value, using default", "path", s.path, "error", err)
		settings.Theme = Defaults().Theme
	}
	return settings
}

// SetPatch merges patch into the current settings, saves the result and
// returns it. Keys are the JSON field names; values may be typed or strings
// ("true", "dark"), so CLI input can be passed straight through. Unknown keys
// and invalid values are rejected without touching the document.
func (s *Store) SetPatch(patch map[string]any) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockDocument()
	if err != nil {
		return s.cached, err
	}
	defer unlock()

	next := s.cached
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &next,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return s.cached, err
	}
	if err := decoder.Decode(patch); err != nil {
		return s.cached, errors.NewValidationError(err.Error()).WithValue(patch)
	}
	if err := next.Validate(); err != nil {
		return s.cached, err
	}

	if err := s.save(next); err != nil {
		return s.cached, err
	}
	s.cached = next
	return next, nil
}

// Set updates a single key from its string form.
func (s *Store) Set(key, value string) (Settings, error) {
	if !slices.Contains(Keys(), key) {
		return s.Get(), errors.NewValidationError(fmt.Sprintf("unknown setting %q", key)).WithField(key)
	}
	return s.SetPatch(map[string]any{key: value})
}

// Update applies fn to a copy of the current settings and saves the result.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockDocument()
	if err != nil {
		return s.cached, err
	}
	defer unlock()

	next := s.cached
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.cached, err
	}
	if err := s.save(next); err != nil {
		return s.cached, err
	}
	s.cached = next
	return next, nil
}

// lockDocument takes the cross-process lock and refreshes the cache from
// disk, so a change made by another process is not overwritten. Callers
// hold s.mu and must call the returned function.
func (s *Store) lockDocument() (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	if err := s.lock.Lock(); err != nil {
		return nil, err
	}
	s.cached = s.load()
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release settings lock", "error", err)
		}
	}, nil
}

// save writes next to a temp file beside the document and renames it into
// place. Callers hold s.mu.
func (s *Store) save(next Settings) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
