package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

// File stores every entry in one JSON object on disk. Each operation holds
// an advisory lock on "<path>.lock" so separate processes sharing the file
// never interleave a read-modify-write. The flock handle is per process,
// so goroutines of one process serialize on mu first.
type File struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFile prepares a file store at path, creating the parent directory.
// The data file itself is created on first write.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrUnavailable, err)
	}
	return &File{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the data file location.
func (f *File) Path() string {
	return f.path
}

// Available implements Prober by taking and releasing the lock.
func (f *File) Available(ctx context.Context) error {
	return f.withLock(ctx, false, func() error {
		_, err := f.read()
		return err
	})
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var (
		value string
		ok    bool
	)
	err := f.withLock(ctx, false, func() error {
		records, err := f.read()
		if err != nil {
			return err
		}
		value, ok = records[key]
		return nil
	})
	return value, ok, err
}

func (f *File) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return f.withLock(ctx, true, func() error {
		records, err := f.read()
		if err != nil {
			return err
		}
		records[key] = value
		return f.write(records)
	})
}

func (f *File) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return f.withLock(ctx, true, func() error {
		records, err := f.read()
		if err != nil {
			return err
		}
		if _, ok := records[key]; !ok {
			return nil
		}
		delete(records, key)
		return f.write(records)
	})
}

func (f *File) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := f.withLock(ctx, false, func() error {
		records, err := f.read()
		if err != nil {
			return err
		}
		keys = make([]string, 0, len(records))
		for key := range records {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return nil
	})
	return keys, err
}

func (f *File) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = f.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = f.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("%w: lock %s: %v", ErrUnavailable, f.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: lock %s not acquired", ErrUnavailable, f.lock.Path())
	}
	defer func() {
		_ = f.lock.Unlock()
	}()
	return fn()
}

func (f *File) read() (map[string]string, error) {
	payload, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, f.path, err)
	}
	records := map[string]string{}
	if len(payload) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, f.path, err)
	}
	return records, nil
}

// write replaces the data file atomically via a sibling temp file.
func (f *File) write(records map[string]string) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", f.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrUnavailable, tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrUnavailable, f.path, err)
	}
	return nil
}
