package appdata

import (
	"maps"
	"slices"
)

// EntityState is a normalized collection: ordered ids plus an entity map keyed by id.
type EntityState[T any] struct {
	IDs      []string     `json:"ids"`
	Entities map[string]T `json:"entities"`
}

// NewEntityState builds a state from entities in the given order.
func NewEntityState[T any](id func(T) string, items ...T) EntityState[T] {
	s := EntityState[T]{
		IDs:      make([]string, 0, len(items)),
		Entities: make(map[string]T, len(items)),
	}
	for _, item := range items {
		key := id(item)
		s.IDs = append(s.IDs, key)
		s.Entities[key] = item
	}
	return s
}

// Len returns the number of ids.
func (s EntityState[T]) Len() int {
	return len(s.IDs)
}

// Has reports whether id has an entity.
func (s EntityState[T]) Has(id string) bool {
	_, ok := s.Entities[id]
	return ok
}

// Ordered returns the entities in id order, skipping ids without an entity.
func (s EntityState[T]) Ordered() []T {
	out := make([]T, 0, len(s.IDs))
	for _, id := range s.IDs {
		if e, ok := s.Entities[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func cloneState[T any](s EntityState[T], cloneEntity func(T) T) EntityState[T] {
	out := EntityState[T]{IDs: slices.Clone(s.IDs)}
	if s.Entities != nil {
		out.Entities = make(map[string]T, len(s.Entities))
		for k, v := range s.Entities {
			out.Entities[k] = cloneEntity(v)
		}
	}
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
