package metadata

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/diwise/entity-binder/pkg/binding/errors"
)

// Factory returns a new, empty instance of an entity type
type Factory func() any

type Provider interface {
	Descriptor(entityType string) (*Descriptor, error)
	Supports(entityType string) bool
	TypeOf(entity any) (string, error)
	NewFor(entityType string, discriminator func(column string) (any, bool)) (any, error)
}

// Typed is implemented by entities that know their own type name, such as dynamic records
type Typed interface {
	EntityType() string
}

type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	factories   map[string]Factory
	types       map[reflect.Type]string
}

func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		factories:   make(map[string]Factory),
		types:       make(map[reflect.Type]string),
	}
}

// Register adds a descriptor and the factory used to instantiate it. Abstract
// (polymorphic) types may be registered without a factory.
func (r *Registry) Register(d Descriptor, factory Factory) error {
	if d.Type == "" {
		return fmt.Errorf("descriptor is missing a type name")
	}

	var sample any
	if factory != nil {
		sample = factory()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Type]; exists {
		return fmt.Errorf("entity type %q already registered", d.Type)
	}

	if d.Extends != "" {
		parent, ok := r.descriptors[d.Extends]
		if !ok {
			return fmt.Errorf("entity type %q extends unknown type %q", d.Type, d.Extends)
		}
		d.inherit(parent)
	}

	if factory != nil {
		if sample != nil {
			if _, typed := sample.(Typed); !typed {
				t := reflect.TypeOf(sample)
				if other, taken := r.types[t]; taken {
					return fmt.Errorf("go type %s is already bound to entity type %q", t, other)
				}
				r.types[t] = d.Type
			}
		}
		r.factories[d.Type] = factory
	} else if !d.IsPolymorphic() {
		return fmt.Errorf("entity type %q needs a factory unless it declares a discriminator", d.Type)
	}

	r.descriptors[d.Type] = &d

	return nil
}

// RegisterAll registers descriptors in an order that satisfies their extends clauses
func (r *Registry) RegisterAll(descriptors []Descriptor, factoryFor func(entityType string) Factory) error {
	pending := append([]Descriptor{}, descriptors...)

	for len(pending) > 0 {
		remaining := pending[:0]

		for _, d := range pending {
			if d.Extends != "" && !r.Supports(d.Extends) {
				remaining = append(remaining, d)
				continue
			}

			var factory Factory
			if !d.IsPolymorphic() {
				factory = factoryFor(d.Type)
			}

			if err := r.Register(d, factory); err != nil {
				return err
			}
		}

		if len(remaining) == len(pending) {
			return fmt.Errorf("unable to resolve parent type %q of %q", remaining[0].Extends, remaining[0].Type)
		}

		pending = remaining
	}

	return nil
}

func (r *Registry) Descriptor(entityType string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[entityType]
	if !ok {
		return nil, errors.NewUnknownTypeError(entityType)
	}
	return d, nil
}

func (r *Registry) Supports(entityType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.descriptors[entityType]
	return ok
}

// Types returns the registered type names in alphabetical order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Registry) TypeOf(entity any) (string, error) {
	if typed, ok := entity.(Typed); ok {
		return typed.EntityType(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t := reflect.TypeOf(entity)
	if name, ok := r.types[t]; ok {
		return name, nil
	}

	return "", errors.NewUnknownTypeError(fmt.Sprintf("%T", entity))
}

func (r *Registry) New(entityType string) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[entityType]
	r.mu.RUnlock()

	if !ok {
		if !r.Supports(entityType) {
			return nil, errors.NewUnknownTypeError(entityType)
		}
		return nil, fmt.Errorf("entity type %s is abstract and cannot be instantiated", entityType)
	}

	return factory(), nil
}

// NewFor instantiates entityType, resolving polymorphic types to the concrete
// subtype selected by the discriminator value returned from lookup.
func (r *Registry) NewFor(entityType string, lookup func(column string) (any, bool)) (any, error) {
	d, err := r.Descriptor(entityType)
	if err != nil {
		return nil, err
	}

	if !d.IsPolymorphic() {
		return r.New(entityType)
	}

	value, ok := lookup(d.Discriminator.Column)
	if !ok || value == nil {
		return nil, errors.NewDiscriminatorMissingError(entityType, d.Discriminator.Column)
	}

	concrete, ok := d.Discriminator.Map[fmt.Sprint(value)]
	if !ok {
		return nil, errors.NewDiscriminatorUnknownError(entityType, value)
	}

	return r.New(concrete)
}

// Validate checks that every reference between registered descriptors resolves
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, d := range r.descriptors {
		for _, id := range d.Identifiers {
			if _, ok := d.Field(id); !ok {
				return fmt.Errorf("identifier %q of %s is not a declared field", id, name)
			}
		}

		for _, f := range d.Fields {
			if f.Kind == 0 {
				return fmt.Errorf("field %s.%s has no type", name, f.Name)
			}
			if f.Kind == Enum && len(f.Values) == 0 {
				return fmt.Errorf("enum field %s.%s declares no values", name, f.Name)
			}
		}

		for _, a := range d.Associations {
			if _, ok := r.descriptors[a.TargetType]; !ok {
				return fmt.Errorf("association %s.%s targets unknown type %q", name, a.Name, a.TargetType)
			}
			if a.Cardinality != One && a.Cardinality != Many {
				return fmt.Errorf("association %s.%s has no cardinality", name, a.Name)
			}
		}

		if d.IsPolymorphic() {
			for value, concrete := range d.Discriminator.Map {
				if _, ok := r.factories[concrete]; !ok {
					return fmt.Errorf("discriminator value %q of %s maps to %q which cannot be instantiated", value, name, concrete)
				}
			}
		}
	}

	return nil
}
