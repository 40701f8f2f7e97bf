package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithQuota caps the total bytes of keys plus values. Zero disables the cap.
func WithQuota(bytes int) MemoryOption {
	return func(m *Memory) {
		m.quota = bytes
	}
}

// WithEntries seeds the store.
func WithEntries(entries map[string]string) MemoryOption {
	return func(m *Memory) {
		for key, value := range entries {
			m.records[key] = value
		}
	}
}

// Memory is an in-memory Storage intended for tests, examples and embedding.
// It mirrors browser local storage semantics: string values and an optional
// quota that rejects writes instead of evicting.
type Memory struct {
	mu          sync.RWMutex
	records     map[string]string
	quota       int
	unavailable bool
}

// NewMemory constructs an empty Memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{records: map[string]string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// SetUnavailable toggles a simulated outage; every call then fails with
// ErrUnavailable.
func (m *Memory) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	m.unavailable = unavailable
	m.mu.Unlock()
}

// Available implements Prober.
func (m *Memory) Available(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return ErrUnavailable
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return "", false, ErrUnavailable
	}
	value, ok := m.records[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	if m.quota > 0 {
		used := m.usageLocked()
		if previous, ok := m.records[key]; ok {
			used -= len(key) + len(previous)
		}
		if used+len(key)+len(value) > m.quota {
			return fmt.Errorf("%w: set %q needs %d bytes, %d of %d used", ErrQuotaExceeded, key, len(key)+len(value), used, m.quota)
		}
	}
	m.records[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	delete(m.records, key)
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}
	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot returns a copy of every entry.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.records))
	for key, value := range m.records {
		out[key] = value
	}
	return out
}

func (m *Memory) usageLocked() int {
	total := 0
	for key, value := range m.records {
		total += len(key) + len(value)
	}
	return total
}
