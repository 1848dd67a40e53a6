package metadata

import (
	"fmt"
	"strings"
)

type FieldKind int

const (
	_ FieldKind = iota // zero value is an invalid kind

	Integer
	Float
	Boolean
	String
	Date
	DateTime
	Enum
	UUID
)

var kindNames = map[FieldKind]string{
	Integer:  "integer",
	Float:    "float",
	Boolean:  "boolean",
	String:   "string",
	Date:     "date",
	DateTime: "datetime",
	Enum:     "enum",
	UUID:     "uuid",
}

var kindAliases = map[string]FieldKind{
	"integer":            Integer,
	"int":                Integer,
	"smallint":           Integer,
	"bigint":             Integer,
	"float":              Float,
	"decimal":            Float,
	"number":             Float,
	"boolean":            Boolean,
	"bool":               Boolean,
	"string":             String,
	"text":               String,
	"date":               Date,
	"date_immutable":     Date,
	"datetime":           DateTime,
	"datetime_immutable": DateTime,
	"datetimetz":         DateTime,
	"enum":               Enum,
	"uuid":               UUID,
	"guid":               UUID,
}

func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// ParseFieldKind maps a declared column type onto the kind used to coerce request values
func ParseFieldKind(s string) (FieldKind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unsupported field type %q", s)
	}
	return kind, nil
}

func (k *FieldKind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	kind, err := ParseFieldKind(s)
	if err != nil {
		return err
	}

	*k = kind
	return nil
}

type Cardinality int

const (
	One Cardinality = iota + 1
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

func (c *Cardinality) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	switch strings.ToLower(s) {
	case "one", "single", "manytoone", "onetoone":
		*c = One
	case "many", "collection", "onetomany", "manytomany":
		*c = Many
	default:
		return fmt.Errorf("unsupported association cardinality %q", s)
	}

	return nil
}
