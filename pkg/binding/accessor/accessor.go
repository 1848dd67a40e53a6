package accessor

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/diwise/entity-binder/pkg/binding/errors"
)

// PropertyAccessor reads and writes named properties on entity instances
type PropertyAccessor interface {
	IsReadable(entity any, property string) bool
	IsWritable(entity any, property string) bool
	GetValue(entity any, property string) (any, error)
	SetValue(entity any, property string, value any) error
}

type reflectionAccessor struct {
	mu     sync.RWMutex
	fields map[reflect.Type]map[string][]int
}

// New returns a PropertyAccessor for struct pointers and *Record entities.
// Struct fields are matched by an `entity` tag, then by the name in a `json`
// tag, and last by a case insensitive field name.
func New() PropertyAccessor {
	return &reflectionAccessor{
		fields: make(map[reflect.Type]map[string][]int),
	}
}

func (a *reflectionAccessor) IsReadable(entity any, property string) bool {
	if _, ok := entity.(*Record); ok {
		return true
	}

	_, ok := a.field(entity, property)
	return ok
}

func (a *reflectionAccessor) IsWritable(entity any, property string) bool {
	if _, ok := entity.(*Record); ok {
		return true
	}

	f, ok := a.field(entity, property)
	return ok && f.CanSet()
}

func (a *reflectionAccessor) GetValue(entity any, property string) (any, error) {
	if r, ok := entity.(*Record); ok {
		v, _ := r.Get(property)
		return v, nil
	}

	f, ok := a.field(entity, property)
	if !ok {
		return nil, errors.NewNotReadableError(fmt.Sprintf("%T", entity), property)
	}

	switch f.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if f.IsNil() {
			return nil, nil
		}
	}

	if !f.CanInterface() {
		return nil, errors.NewNotReadableError(fmt.Sprintf("%T", entity), property)
	}

	return f.Interface(), nil
}

func (a *reflectionAccessor) SetValue(entity any, property string, value any) error {
	if r, ok := entity.(*Record); ok {
		r.Set(property, value)
		return nil
	}

	f, ok := a.field(entity, property)
	if !ok || !f.CanSet() {
		return errors.NewNotWritableError(fmt.Sprintf("%T", entity), property)
	}

	if value == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}

	if err := assign(f, reflect.ValueOf(value)); err != nil {
		return errors.NewInvalidFieldValueError(property, err)
	}

	return nil
}

func (a *reflectionAccessor) field(entity any, property string) (reflect.Value, bool) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	v = v.Elem()

	index, ok := a.index(v.Type())[strings.ToLower(property)]
	if !ok {
		return reflect.Value{}, false
	}

	f, err := v.FieldByIndexErr(index)
	if err != nil {
		// a nil embedded pointer is in the way
		return reflect.Value{}, false
	}

	return f, true
}

func (a *reflectionAccessor) index(t reflect.Type) map[string][]int {
	a.mu.RLock()
	idx, ok := a.fields[t]
	a.mu.RUnlock()

	if ok {
		return idx
	}

	idx = buildIndex(t)

	a.mu.Lock()
	a.fields[t] = idx
	a.mu.Unlock()

	return idx
}

func buildIndex(t reflect.Type) map[string][]int {
	byTag := map[string][]int{}
	byJSON := map[string][]int{}
	byName := map[string][]int{}

	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous || !sf.IsExported() {
			continue
		}

		if tag := tagName(sf, "entity"); tag != "" {
			byTag[strings.ToLower(tag)] = sf.Index
		}
		if tag := tagName(sf, "json"); tag != "" {
			byJSON[strings.ToLower(tag)] = sf.Index
		}
		byName[strings.ToLower(sf.Name)] = sf.Index
	}

	idx := make(map[string][]int, len(byName))
	for _, m := range []map[string][]int{byName, byJSON, byTag} {
		for name, i := range m {
			idx[name] = i
		}
	}

	return idx
}

func tagName(f reflect.StructField, key string) string {
	tag := f.Tag.Get(key)
	if tag == "" || tag == "-" {
		return ""
	}

	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}

	return tag
}

func assign(dst, src reflect.Value) error {
	if src.Kind() == reflect.Interface && !src.IsNil() {
		src = src.Elem()
	}

	st, dt := src.Type(), dst.Type()

	switch {
	case st.AssignableTo(dt):
		dst.Set(src)
		return nil

	case st.Kind() == reflect.Pointer && src.IsNil():
		dst.Set(reflect.Zero(dt))
		return nil

	case dt.Kind() == reflect.Pointer:
		elem := reflect.New(dt.Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil

	case st.Kind() == reflect.Pointer:
		return assign(dst, src.Elem())

	case dt.Kind() == reflect.Slice && (st.Kind() == reflect.Slice || st.Kind() == reflect.Array):
		s := reflect.MakeSlice(dt, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			item := src.Index(i)
			if item.Kind() == reflect.Interface && item.IsNil() {
				continue
			}
			if err := assign(s.Index(i), item); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		dst.Set(s)
		return nil

	case convertible(st, dt):
		dst.Set(src.Convert(dt))
		return nil
	}

	return fmt.Errorf("cannot assign a value of type %s to %s", st, dt)
}

// convertible excludes the integer to string conversion that reflect allows
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}

	if to.Kind() == reflect.String {
		return from.Kind() == reflect.String
	}

	return true
}

// Elements returns the members of a slice or array valued property
func Elements(collection any) []any {
	if collection == nil {
		return nil
	}

	if items, ok := collection.([]any); ok {
		return items
	}

	v := reflect.ValueOf(collection)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return []any{collection}
	}

	items := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		items = append(items, v.Index(i).Interface())
	}

	return items
}
