package repository

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
)

// Repository looks up persisted entities. Implementations return an error
// matching errors.ErrNotFound when nothing matches.
type Repository interface {
	Find(ctx context.Context, entityType string, id map[string]any) (any, error)
	FindOneBy(ctx context.Context, entityType string, criteria map[string]any) (any, error)
}

// Hydrate builds an entity instance from a flat row of column values. Polymorphic
// types are resolved through the discriminator column of the row.
func Hydrate(md metadata.Provider, pa accessor.PropertyAccessor, entityType string, row map[string]any) (any, error) {
	entity, err := md.NewFor(entityType, func(column string) (any, bool) {
		v, ok := row[column]
		return v, ok
	})
	if err != nil {
		return nil, err
	}

	concreteType, err := md.TypeOf(entity)
	if err != nil {
		return nil, err
	}

	d, err := md.Descriptor(concreteType)
	if err != nil {
		return nil, err
	}

	for _, f := range d.Fields {
		raw, ok := row[f.ColumnName()]
		if !ok || !pa.IsWritable(entity, f.Name) {
			continue
		}

		value, err := f.Coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate %s: %w", concreteType, err)
		}

		if err = pa.SetValue(entity, f.Name, value); err != nil {
			return nil, fmt.Errorf("failed to hydrate %s: %w", concreteType, err)
		}
	}

	return entity, nil
}

// Columns maps field names in criteria to the columns that store them
func Columns(d *metadata.Descriptor, criteria map[string]any) (map[string]any, error) {
	columns := make(map[string]any, len(criteria))

	for name, value := range criteria {
		f, ok := d.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s has no field named %s", d.Type, name)
		}
		columns[f.ColumnName()] = value
	}

	return columns, nil
}

// SameValue compares two property values loosely, so that a request value such
// as the string "7" matches a stored int64 7
func SameValue(a, b any) bool {
	a, b = deref(a), deref(b)

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}

	return fmt.Sprint(a) == fmt.Sprint(b)
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if !rv.IsValid() {
		return nil
	}

	return rv.Interface()
}
