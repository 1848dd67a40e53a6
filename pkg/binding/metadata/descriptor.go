package metadata

type Field struct {
	Name   string    `yaml:"name"`
	Column string    `yaml:"column,omitempty"`
	Kind   FieldKind `yaml:"type"`
	Values []string  `yaml:"values,omitempty"`
}

// ColumnName returns the storage column backing this field
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

type Association struct {
	Name        string      `yaml:"name"`
	TargetType  string      `yaml:"target"`
	Cardinality Cardinality `yaml:"cardinality"`
	Inverse     bool        `yaml:"inverse,omitempty"`
	MappedBy    string      `yaml:"mappedBy,omitempty"`
}

func (a Association) IsCollection() bool {
	return a.Cardinality == Many
}

type Discriminator struct {
	Column string            `yaml:"column"`
	Map    map[string]string `yaml:"map"`
}

// Descriptor holds the persistence metadata of a single entity type
type Descriptor struct {
	Type          string         `yaml:"type"`
	Table         string         `yaml:"table,omitempty"`
	Extends       string         `yaml:"extends,omitempty"`
	Identifiers   []string       `yaml:"identifiers"`
	Fields        []Field        `yaml:"fields"`
	Associations  []Association  `yaml:"associations,omitempty"`
	Discriminator *Discriminator `yaml:"discriminator,omitempty"`
}

func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (d *Descriptor) Association(name string) (Association, bool) {
	for _, a := range d.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

func (d *Descriptor) IsPolymorphic() bool {
	return d.Discriminator != nil && len(d.Discriminator.Map) > 0
}

func (d *Descriptor) IsIdentifier(name string) bool {
	for _, id := range d.Identifiers {
		if id == name {
			return true
		}
	}
	return false
}

func (d *Descriptor) inherit(parent *Descriptor) {
	if len(d.Identifiers) == 0 {
		d.Identifiers = append([]string{}, parent.Identifiers...)
	}

	if d.Table == "" {
		d.Table = parent.Table
	}

	fields := make([]Field, 0, len(parent.Fields)+len(d.Fields))
	for _, f := range parent.Fields {
		if _, overridden := d.Field(f.Name); !overridden {
			fields = append(fields, f)
		}
	}
	d.Fields = append(fields, d.Fields...)

	associations := make([]Association, 0, len(parent.Associations)+len(d.Associations))
	for _, a := range parent.Associations {
		if _, overridden := d.Association(a.Name); !overridden {
			associations = append(associations, a)
		}
	}
	d.Associations = append(associations, d.Associations...)
}
