package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"burnloop/internal/logging"
)

// StencilStore maps stencil names to the preset each one uses. Legacy files
// that held a bare list of names are upgraded on load by pairing every name
// with the first default preset.
type StencilStore struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	items  map[string]string
}

// NewStencilStore loads the stencil file at path. A missing or unreadable
// file yields an empty store.
func NewStencilStore(path string, logger *slog.Logger) *StencilStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "stencils")

	s := &StencilStore{path: path, logger: logger, items: make(map[string]string)}
	if path == "" {
		return s
	}

	if err := s.load(); err != nil {
		logger.Warn("failed to load stencil file",
			logging.String(logging.FieldEventType, "stencils_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the store starts empty"),
			logging.String(logging.FieldImpact, "saved stencils unavailable until the file is repaired"))
	}

	return s
}

// Get returns the preset name mapped to a stencil.
func (s *StencilStore) Get(name string) (string, bool) {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	preset, ok := s.items[name]
	return preset, ok
}

// Put adds or updates a stencil mapping and persists the change.
func (s *StencilStore) Put(name, preset string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("stencil name cannot be empty")
	}
	preset = strings.TrimSpace(preset)
	if preset == "" {
		return errors.New("preset name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[name] = preset

	if err := s.save(); err != nil {
		return fmt.Errorf("persist stencils: %w", err)
	}

	s.logger.Debug("stored stencil",
		logging.String("stencil", name),
		logging.String("preset", preset))
	return nil
}

// Remove deletes a stencil mapping and persists the change.
func (s *StencilStore) Remove(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("stencil name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[name]; !ok {
		return fmt.Errorf("stencil %q not found", name)
	}
	delete(s.items, name)

	if err := s.save(); err != nil {
		return fmt.Errorf("persist stencils: %w", err)
	}
	return nil
}

// All returns a copy of the stencil map.
func (s *StencilStore) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.items))
	for name, preset := range s.items {
		out[name] = preset
	}
	return out
}

// Names returns all stencil names sorted.
func (s *StencilStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *StencilStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read stencil file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err == nil {
		items := make(map[string]string, len(raw))
		for name, preset := range raw {
			if strings.TrimSpace(name) != "" {
				items[name] = preset
			}
		}
		s.items = items
		return nil
	}

	// Legacy format: a plain list of stencil names.
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("parse stencil file: %w", err)
	}
	items := make(map[string]string, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			items[name] = "Preset 1"
		}
	}
	s.items = items
	return nil
}

func (s *StencilStore) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stencils: %w", err)
	}
	return writeAtomic(s.path, data)
}
