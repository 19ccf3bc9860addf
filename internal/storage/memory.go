package storage

import (
	"context"
	"sync/atomic"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

// InMemory keeps the current snapshot behind an atomic pointer. Readers
// never block and always see a whole snapshot.
type InMemory struct {
	current atomic.Pointer[domain.ProjectConfig]
}

// NewInMemory creates an InMemory cache holding EmptyProjectConfig.
func NewInMemory() *InMemory {
	m := &InMemory{}
	m.current.Store(domain.EmptyProjectConfig)
	return m
}

func (m *InMemory) Get(_ context.Context, _ string) *domain.ProjectConfig {
	return m.Local()
}

// Set replaces the snapshot. An empty snapshot never replaces a non-empty
// one.
func (m *InMemory) Set(_ context.Context, _ string, pc *domain.ProjectConfig) {
	m.store(pc)
}

func (m *InMemory) Local() *domain.ProjectConfig {
	return m.current.Load()
}

// store reports whether pc was stored.
func (m *InMemory) store(pc *domain.ProjectConfig) bool {
	if pc == nil {
		pc = domain.EmptyProjectConfig
	}
	for {
		old := m.current.Load()
		if pc.IsEmpty() && !old.IsEmpty() {
			return false
		}
		if m.current.CompareAndSwap(old, pc) {
			return true
		}
	}
}
