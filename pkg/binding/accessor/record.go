package accessor

import (
	"encoding/json"
	"sort"
)

// Record is a dynamic entity for types that are only known through their
// descriptor. Any property can be read or written. A Record is not safe for
// concurrent use.
type Record struct {
	entityType  string
	identifiers []string
	values      map[string]any
}

// NewRecord creates an empty record. The identifier names are used to refer back
// to a record that appears more than once on the same path when it is marshalled.
func NewRecord(entityType string, identifiers ...string) *Record {
	return &Record{
		entityType:  entityType,
		identifiers: identifiers,
		values:      make(map[string]any),
	}
}

func (r *Record) EntityType() string {
	return r.entityType
}

func (r *Record) Get(property string) (any, bool) {
	v, ok := r.values[property]
	return v, ok
}

func (r *Record) Set(property string, value any) {
	r.values[property] = value
}

// Properties returns the names of all properties that have been set, in alphabetical order
func (r *Record) Properties() []string {
	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toMap(map[*Record]bool{}))
}

func (r *Record) toMap(path map[*Record]bool) map[string]any {
	if path[r] {
		// break the cycle created by back references and only emit the identity
		ref := make(map[string]any, len(r.identifiers))
		for _, id := range r.identifiers {
			ref[id] = r.values[id]
		}
		return ref
	}

	path[r] = true
	defer delete(path, r)

	m := make(map[string]any, len(r.values))
	for name, v := range r.values {
		m[name] = toJSONValue(v, path)
	}

	return m
}

func toJSONValue(v any, path map[*Record]bool) any {
	switch value := v.(type) {
	case *Record:
		if value == nil {
			return nil
		}
		return value.toMap(path)
	case []any:
		items := make([]any, len(value))
		for i, item := range value {
			items[i] = toJSONValue(item, path)
		}
		return items
	}

	return v
}
