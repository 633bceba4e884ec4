// Package schemastore holds the shared schema state exchanged between
// pipeline stages: the process-lifetime catalog overview and per-request
// detailed schemas addressed by schema id.
package schemastore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a key has no value in the store.
var ErrNotFound = errors.New("schemastore: not found")

// Catalog maps database name to table name to column names.
type Catalog map[string]map[string][]string

// Store is the blob contract the activities depend on. The catalog is
// written once at startup; detailed schemas are write-once per schema id.
type Store interface {
	PutCatalog(ctx context.Context, c Catalog) error
	GetCatalog(ctx context.Context) (Catalog, error)
	PutDetailedSchema(ctx context.Context, schemaID string, schema string) error
	GetDetailedSchema(ctx context.Context, schemaID string) (string, error)
}

// Memory is the in-process implementation used by tests and single-node dev.
type Memory struct {
	mu      sync.RWMutex
	catalog Catalog
	schemas map[string]string
}

func NewMemory() *Memory {
	return &Memory{schemas: make(map[string]string)}
}

func (m *Memory) PutCatalog(_ context.Context, c Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = c
	return nil
}

func (m *Memory) GetCatalog(_ context.Context) (Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.catalog == nil {
		return nil, ErrNotFound
	}
	return m.catalog, nil
}

func (m *Memory) PutDetailedSchema(_ context.Context, schemaID string, schema string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.schemas[schemaID]; exists {
		return nil
	}
	m.schemas[schemaID] = schema
	return nil
}

func (m *Memory) GetDetailedSchema(_ context.Context, schemaID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[schemaID]
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}
