package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File persists the store as a single JSON object on disk so sessions
// survive restarts. Every write replaces the file via rename.
type File struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewFile creates a file-backed store at path. The file is created lazily.
func NewFile(path string, logger *slog.Logger) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("kv state file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger.With("component", "kvstore", "path", path)}, nil
}

// Path returns the backing file location.
func (f *File) Path() string { return f.path }

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.loadLocked(ctx)
	v, ok := data[key]
	return v, ok, nil
}

func (f *File) SetMany(ctx context.Context, entries map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.loadLocked(ctx)
	for k, v := range entries {
		data[k] = v
	}
	return f.persistLocked(data)
}

func (f *File) DeleteMany(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.loadLocked(ctx)
	changed := false
	for _, k := range keys {
		if _, ok := data[k]; ok {
			delete(data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.persistLocked(data)
}

// loadLocked reads the file fresh on every call so out-of-process writers
// are observed. An unreadable document is treated as empty.
func (f *File) loadLocked(ctx context.Context) map[string]string {
	data := make(map[string]string)
	b, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.WarnContext(ctx, "read kv state file failed", "error", err)
		}
		return data
	}
	if len(b) == 0 {
		return data
	}
	if err := json.Unmarshal(b, &data); err != nil {
		f.logger.WarnContext(ctx, "kv state file is corrupt; treating as empty", "error", err)
		return make(map[string]string)
	}
	return data
}

func (f *File) persistLocked(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode kv state file: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir kv state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create kv temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		return errors.Join(fmt.Errorf("write kv temp file: %w", err), tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("close kv temp file: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Join(fmt.Errorf("replace kv state file: %w", err), os.Remove(tmpName))
	}
	return nil
}
