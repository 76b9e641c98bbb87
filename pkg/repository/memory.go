package repository

import (
	"context"
	"sync"
)

// Memory keeps entities in insertion order. Writes are visible immediately;
// Commit has nothing to flush.
type Memory[T Entity] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func NewMemory[T Entity]() *Memory[T] {
	return &Memory[T]{items: make(map[string]T)}
}

func (m *Memory[T]) Add(_ context.Context, entity T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := entity.EntityID()
	if _, exists := m.items[id]; exists {
		var zero T
		return zero, ErrDuplicate
	}
	m.items[id] = entity
	m.order = append(m.order, id)
	return entity, nil
}

func (m *Memory[T]) GetByID(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entity, ok := m.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return entity, nil
}

func (m *Memory[T]) Find(_ context.Context, predicate func(T) bool) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []T
	for _, id := range m.order {
		if entity := m.items[id]; predicate(entity) {
			result = append(result, entity)
		}
	}
	return result, nil
}

func (m *Memory[T]) All(ctx context.Context) ([]T, error) {
	return m.Find(ctx, func(T) bool { return true })
}

func (m *Memory[T]) Update(_ context.Context, entity T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := entity.EntityID()
	if _, exists := m.items[id]; !exists {
		var zero T
		return zero, ErrNotFound
	}
	m.items[id] = entity
	return entity, nil
}

func (m *Memory[T]) Commit(context.Context) error {
	return nil
}
