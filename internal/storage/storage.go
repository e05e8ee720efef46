// Package storage persists the store's collections as independently keyed
// JSON documents under the keys hospitals, doctors, patients, appointments,
// departments and meta.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Keys of the persisted layout.
const (
	KeyHospitals    = "hospitals"
	KeyDoctors      = "doctors"
	KeyPatients     = "patients"
	KeyAppointments = "appointments"
	KeyDepartments  = "departments"
	KeyMeta         = "meta"
)

var ErrNotFound = errors.New("key not found")

// Backend is a flat key/value document store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.docs[key] = v
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return nil }
