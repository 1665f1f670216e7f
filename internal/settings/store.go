package settings

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/lotas/tabgruppen/internal/storage"
	"github.com/lotas/tabgruppen/internal/types"
)

// Store is the key-value settings store. Load always returns the stored
// values overlaid on Defaults; callers load at the start of every operation
// rather than caching.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, p Patch) error
}

// SQLStore keeps one row per setting key in the sqlite settings table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a Store backed by db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Load overlays every stored key on the defaults.
func (s *SQLStore) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	stored, err := storage.LoadSettings(s.db)
	if err != nil {
		return Settings{}, err
	}
	return overlay(Defaults(), stored)
}

// Save normalizes p and writes each set field as its own key.
func (s *SQLStore) Save(ctx context.Context, p Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values, err := patchValues(p.Normalize())
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return storage.SaveSettings(s.db, values)
}

// Reset deletes every stored key.
func (s *SQLStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storage.DeleteSettings(s.db)
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (m *MemStore) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return overlay(Defaults(), m.values)
}

func (m *MemStore) Save(ctx context.Context, p Patch) error {
	values, err := patchValues(p.Normalize())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// overlay decodes stored raw JSON values over base. A value that does not
// decode into its field is ignored so one bad key cannot wedge every load.
func overlay(base Settings, stored map[string]string) (Settings, error) {
	if len(stored) == 0 {
		return base, nil
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return base, fmt.Errorf("encode defaults: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, fmt.Errorf("decode defaults: %w", err)
	}

	for key, value := range stored {
		if _, known := fields[key]; !known {
			continue
		}
		var probe Settings
		if err := json.Unmarshal([]byte(`{"`+key+`":`+value+`}`), &probe); err != nil {
			continue
		}
		fields[key] = json.RawMessage(value)
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return base, fmt.Errorf("encode settings: %w", err)
	}
	var out Settings
	if err := json.Unmarshal(merged, &out); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}
	if out.ExcludeDomains == nil {
		out.ExcludeDomains = []string{}
	}
	if out.CustomColors == nil {
		out.CustomColors = map[string]types.Color{}
	}
	return out, nil
}

// patchValues flattens a patch into raw JSON values for the fields it sets.
func patchValues(p Patch) (map[string]string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode settings patch: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode settings patch: %w", err)
	}
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		if string(v) == "null" {
			continue
		}
		values[k] = string(v)
	}
	return values, nil
}
