// Package snapshot is the best-effort persistence adapter for the memory
// store: one JSON document per named collection. Loads fall back to
// defaults on missing or malformed data, saves report their error to the
// caller and are never fatal.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	KeyProducts  = "products"
	KeyCustomers = "customers"
	KeySales     = "sales"
	KeyInvoices  = "invoices"
	KeyExpenses  = "expenses"
)

type Adapter interface {
	// Load decodes the named collection into dest. A missing key leaves
	// dest untouched and returns nil; malformed data returns an error the
	// caller may ignore in favor of defaults.
	Load(key string, dest any) error
	// Save persists the named collection. Errors are returned for
	// observability but must not abort the in-memory mutation they follow.
	Save(key string, value any) error
}

type Noop struct{}

func (Noop) Load(string, any) error { return nil }
func (Noop) Save(string, any) error { return nil }

// FileAdapter keeps one <key>.json per collection under a directory.
// Writes go through a temp file and rename so a crash mid-save never
// truncates the previous snapshot.
type FileAdapter struct {
	dir string
}

func NewFileAdapter(dir string) (*FileAdapter, error) {
	if dir == "" {
		return nil, errors.New("snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileAdapter{dir: dir}, nil
}

func (f *FileAdapter) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileAdapter) Load(key string, dest any) error {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (f *FileAdapter) Save(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", key, err)
	}
	return nil
}
