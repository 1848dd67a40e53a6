package repository

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	"github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
)

// stored is either a flat row that is hydrated into a new instance on every
// read, or a fixture entity that is handed out as is
type stored struct {
	entityType string
	row        map[string]any
	entity     any
}

// InMemory is a Repository over a fixed set of entities, useful for tests and
// for running the service without a database
type InMemory struct {
	mu       sync.RWMutex
	md       metadata.Provider
	pa       accessor.PropertyAccessor
	entities map[string][]stored
}

func NewInMemory(md metadata.Provider, pa accessor.PropertyAccessor) *InMemory {
	return &InMemory{
		md:       md,
		pa:       pa,
		entities: make(map[string][]stored),
	}
}

// Add stores an entity so that it can be found through its own type and any
// type that it extends. Lookups return the very same instance, so callers
// that populate it change the stored fixture. Use AddRow for data that is
// shared between requests.
func (m *InMemory) Add(entity any) error {
	entityType, err := m.md.TypeOf(entity)
	if err != nil {
		return err
	}

	return m.store(stored{entityType: entityType, entity: entity})
}

// AddRow keeps a flat row of column values. Every lookup that matches the row
// hydrates a new instance from it.
func (m *InMemory) AddRow(entityType string, row map[string]any) (any, error) {
	entity, err := Hydrate(m.md, m.pa, entityType, row)
	if err != nil {
		return nil, err
	}

	concreteType, err := m.md.TypeOf(entity)
	if err != nil {
		return nil, err
	}

	return entity, m.store(stored{entityType: concreteType, row: maps.Clone(row)})
}

func (m *InMemory) store(s stored) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entityType := s.entityType

	for entityType != "" {
		m.entities[entityType] = append(m.entities[entityType], s)

		d, err := m.md.Descriptor(entityType)
		if err != nil {
			return err
		}
		entityType = d.Extends
	}

	return nil
}

func (m *InMemory) Find(ctx context.Context, entityType string, id map[string]any) (any, error) {
	return m.FindOneBy(ctx, entityType, id)
}

func (m *InMemory) FindOneBy(ctx context.Context, entityType string, criteria map[string]any) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.entities[entityType] {
		entity := s.entity

		if s.row != nil {
			var err error
			entity, err = Hydrate(m.md, m.pa, s.entityType, s.row)
			if err != nil {
				return nil, err
			}
		}

		if m.matches(entity, criteria) {
			return entity, nil
		}
	}

	return nil, errors.NewNotFoundError(fmt.Sprintf("no %s matching %v", entityType, criteria))
}

func (m *InMemory) matches(entity any, criteria map[string]any) bool {
	for name, expected := range criteria {
		actual, err := m.pa.GetValue(entity, name)
		if err != nil || !SameValue(actual, expected) {
			return false
		}
	}
	return true
}
