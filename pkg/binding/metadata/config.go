package metadata

import (
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v2"
)

type descriptorFile struct {
	Entities []Descriptor `yaml:"entities"`
}

// LoadDescriptors reads a list of entity descriptors from a yaml document with
// a top level entities key
func LoadDescriptors(data io.Reader) ([]Descriptor, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	f := &descriptorFile{}
	err = yaml.Unmarshal(buf, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity descriptors: %w", err)
	}

	return f.Entities, nil
}
