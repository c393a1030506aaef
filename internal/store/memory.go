package store

import (
	"sync"
	"time"
)

// Memory is an in-memory store.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]map[string][]VersionEntry // attempt -> name -> versions, oldest first
	metadata map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]map[string][]VersionEntry),
		metadata: make(map[string]string),
	}
}

// Get retrieves the latest value of name.
func (m *Memory) Get(attempt, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.data[attempt][name]
	if len(versions) == 0 {
		return "", false, nil
	}
	return versions[len(versions)-1].Value, true, nil
}

// Put stores a value. Storing the latest value again is a no-op.
func (m *Memory) Put(attempt, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	names, ok := m.data[attempt]
	if !ok {
		names = make(map[string][]VersionEntry)
		m.data[attempt] = names
	}
	versions := names[name]
	if n := len(versions); n > 0 && versions[n-1].Value == value {
		return nil
	}
	names[name] = append(versions, VersionEntry{
		Version: len(versions) + 1,
		Value:   value,
		Ts:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

// Delete removes every value of an attempt.
func (m *Memory) Delete(attempt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, attempt)
	return nil
}

// GetHistory returns the versions of name, newest first.
func (m *Memory) GetHistory(attempt, name string, limit int) ([]VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.data[attempt][name]
	if len(versions) == 0 {
		return nil, nil
	}
	n := len(versions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]VersionEntry, 0, n)
	for i := len(versions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}
