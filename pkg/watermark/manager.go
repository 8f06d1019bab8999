package watermark

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Manager owns the persisted watermark store for a pipeline run. It is the
// sole writer of the store file; sources read watermarks through Get and
// advance them through Update after a successful extraction.
//
// A missing or corrupt store file is treated as empty state, never as a
// fatal error: the first run of a pipeline has no watermarks by definition.
type Manager struct {
	path  string
	mu    sync.Mutex
	store *Store
}

// NewManager loads the watermark store at path, creating an empty store in
// memory if the file does not exist or cannot be parsed.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("watermark store path cannot be empty")
	}

	m := &Manager{path: path, store: newStore()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		// Unreadable file (permissions, directory). Starting fresh here
		// would silently re-extract everything, so surface it.
		return nil, fmt.Errorf("failed to read watermark store %s: %w", path, err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		log.Printf("[WARN] watermark store %s is corrupted, starting fresh: %v", path, err)
		return m, nil
	}
	if store.Watermarks == nil {
		store.Watermarks = make(map[string]interface{})
	}
	// JSON numbers decode as float64; watermark IDs are int64 on the wire.
	for source, value := range store.Watermarks {
		store.Watermarks[source] = normalize(value)
	}
	m.store = &store
	return m, nil
}

// Get returns the stored watermark for source, or def when none exists.
// Absence of a watermark is not an error: it means first run.
func (m *Manager) Get(source string, def interface{}) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.store.Watermarks[source]; ok {
		return v
	}
	return def
}

// Update overwrites the watermark for source and persists the whole store
// to disk immediately, so a crash after a successful extraction does not
// lose the checkpoint. The full map is written back on every update to
// keep the read-modify-write atomic under the manager's lock.
func (m *Manager) Update(source string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	value = normalize(value)
	if prev, ok := m.store.Watermarks[source]; ok {
		if cmp, comparable := Compare(value, prev); comparable && cmp < 0 {
			log.Printf("[WARN] watermark for %s moving backwards: %v -> %v", source, prev, value)
		}
	}
	m.store.Watermarks[source] = value
	return m.persistLocked()
}

// Reset deletes the watermark for source, forcing the next extraction to
// be a full load. Resetting an unknown source is a no-op.
func (m *Manager) Reset(source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store.Watermarks[source]; !ok {
		return nil
	}
	delete(m.store.Watermarks, source)
	return m.persistLocked()
}

// All returns a copy of the current watermark map.
func (m *Manager) All() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]interface{}, len(m.store.Watermarks))
	for k, v := range m.store.Watermarks {
		out[k] = v
	}
	return out
}

// Path returns the store file location.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) persistLocked() error {
	m.store.UpdatedAt = time.Now().UTC()
	if m.store.Version == "" {
		m.store.Version = StoreVersion
	}

	data, err := json.MarshalIndent(m.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal watermark store: %w", err)
	}

	if err := WriteAtomic(m.path, data); err != nil {
		return fmt.Errorf("failed to write watermark store: %w", err)
	}
	return nil
}

// normalize collapses the numeric types produced by JSON and YAML decoding
// into int64 so stored and extracted watermarks compare cleanly.
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	case float32:
		return normalize(float64(n))
	}
	return v
}

// Compare orders two watermark values. The second return is false when the
// values are not of comparable types (e.g. int64 vs string); callers must
// treat that as "cannot filter", not as equality.
func Compare(a, b interface{}) (int, bool) {
	a, b = normalize(a), normalize(b)

	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			}
			return 0, true
		case float64:
			return Compare(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			}
			return 0, true
		case int64:
			return Compare(av, float64(bv))
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}
