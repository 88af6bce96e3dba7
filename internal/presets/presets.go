// Package presets persists the named layout presets and the stencil map
// that pairs stencil names with presets. Both are small JSON key-value
// files written atomically; a missing or unreadable file falls back to the
// built-in defaults so the operator always has something to select.
package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"burnloop/internal/catalog"
	"burnloop/internal/logging"
)

// Params is one layout preset. Lengths are millimeters.
type Params struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Font   float64 `json:"font"`
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// Style converts the preset into catalog placement terms.
func (p Params) Style() catalog.Style {
	return catalog.Style{
		X:        p.X,
		Y:        p.Y,
		FontSize: p.Font,
		Offset:   p.Offset,
		Color:    catalog.NormalizeColor(p.Color),
	}
}

const defaultOffset = 26.0

// Defaults returns the built-in presets used when no file exists yet.
func Defaults() map[string]Params {
	return map[string]Params{
		"Preset 1": {X: 50.0, Y: 50.0, Font: 5.0, Offset: defaultOffset, Color: string(catalog.Silver)},
		"Preset 2": {X: 50.0, Y: 52.0, Font: 6.0, Offset: defaultOffset, Color: string(catalog.Brass)},
		"Preset 3": {X: 50.0, Y: 54.0, Font: 7.0, Offset: defaultOffset, Color: string(catalog.Plastic)},
	}
}

// Store provides thread-safe access to the preset file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	items  map[string]Params
}

// NewStore loads the preset file at path, seeding defaults when the file is
// missing or unreadable.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "presets")

	s := &Store{path: path, logger: logger, items: Defaults()}
	if path == "" {
		return s
	}

	if err := s.load(); err != nil {
		logger.Warn("failed to load preset file",
			logging.String(logging.FieldEventType, "presets_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "built-in defaults are in effect"),
			logging.String(logging.FieldImpact, "saved presets unavailable until the file is repaired"))
	}

	return s
}

// Get returns the preset by name.
func (s *Store) Get(name string) (Params, bool) {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[name]
	return p, ok
}

// Put adds or updates a preset and persists the change.
func (s *Store) Put(name string, p Params) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("preset name cannot be empty")
	}
	p.Color = string(catalog.NormalizeColor(p.Color))
	if p.Offset == 0 {
		p.Offset = defaultOffset
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[name] = p

	if err := s.save(); err != nil {
		return fmt.Errorf("persist presets: %w", err)
	}

	s.logger.Debug("stored preset",
		logging.String("preset", name),
		logging.String("color", p.Color))
	return nil
}

// Remove deletes a preset and persists the change.
func (s *Store) Remove(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("preset name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[name]; !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	delete(s.items, name)

	if err := s.save(); err != nil {
		return fmt.Errorf("persist presets: %w", err)
	}
	return nil
}

// Names returns all preset names sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the preset map.
func (s *Store) All() map[string]Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Params, len(s.items))
	for name, p := range s.items {
		out[name] = p
	}
	return out
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read preset file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]Params
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse preset file: %w", err)
	}

	defaults := Defaults()
	items := make(map[string]Params, len(raw))
	for name, p := range raw {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if p.Offset == 0 {
			if d, ok := defaults[name]; ok {
				p.Offset = d.Offset
			} else {
				p.Offset = defaultOffset
			}
		}
		p.Color = string(catalog.NormalizeColor(p.Color))
		items[name] = p
	}
	s.items = items

	s.logger.Debug("loaded presets",
		logging.Int("preset_count", len(items)),
		logging.String("path", s.path))
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}
	return writeAtomic(s.path, data)
}

// writeAtomic persists via a temp file and rename so a crash never leaves a
// truncated file behind.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
