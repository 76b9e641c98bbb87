// Package repository defines the persistence contract shared by every
// aggregate store and a generic in-memory implementation of it.
package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")
)

type Entity interface {
	EntityID() string
}

// Repository is the store contract the application layer depends on.
// Commit is the flush point: callers issue it once their writes for an
// operation are complete.
type Repository[T Entity] interface {
	Add(ctx context.Context, entity T) (T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Find(ctx context.Context, predicate func(T) bool) ([]T, error)
	All(ctx context.Context) ([]T, error)
	Update(ctx context.Context, entity T) (T, error)
	Commit(ctx context.Context) error
}

// First returns the first entity matching predicate, or ErrNotFound.
func First[T Entity](ctx context.Context, repo Repository[T], predicate func(T) bool) (T, error) {
	var zero T
	found, err := repo.Find(ctx, predicate)
	if err != nil {
		return zero, err
	}
	if len(found) == 0 {
		return zero, ErrNotFound
	}
	return found[0], nil
}
