package entitybinder

import (
	"io"

	"github.com/diwise/entity-binder/pkg/binding/metadata"
	yaml "gopkg.in/yaml.v2"
)

// ExposedType makes an entity type available for binding over the API. Lookup
// lists the properties used to locate an existing entity, and defaults to the
// identifiers of the type.
type ExposedType struct {
	Type   string   `yaml:"type"`
	Lookup []string `yaml:"lookup,omitempty"`
}

type Config struct {
	Entities []metadata.Descriptor `yaml:"entities"`
	Expose   []ExposedType         `yaml:"expose"`

	// Seed holds rows, keyed by entity type, that are loaded into the in memory repository
	Seed map[string][]map[string]any `yaml:"seed,omitempty"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}
