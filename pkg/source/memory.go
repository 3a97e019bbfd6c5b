package source

import (
	"context"
	"sync"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
)

// Memory holds the last entity lists pushed to it. It is the Source behind the HTTP API.
type Memory struct {
	mu        sync.RWMutex
	agents    []entity.Entity
	customers []entity.Entity
	version   uint64
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Set(agents, customers []entity.Entity) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents = append([]entity.Entity(nil), agents...)
	m.customers = append([]entity.Entity(nil), customers...)
	m.version++
	return m.version
}

func (m *Memory) Fetch(ctx context.Context) ([]entity.Entity, []entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entity.Entity(nil), m.agents...), append([]entity.Entity(nil), m.customers...), nil
}

// Version increases on every Set.
func (m *Memory) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}
