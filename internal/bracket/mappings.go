package bracket

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MappingFile is the YAML layout accepted by LoadMappings:
//
//	mappings:
//	  - tag: PYE
//	    system: true
//	  - tag: PlanName
//	    path: plan.name
type MappingFile struct {
	Mappings []Mapping `yaml:"mappings"`
}

// LoadMappings reads and validates a bracket mapping seed file.
func LoadMappings(r io.Reader) ([]Mapping, error) {
	var file MappingFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return []Mapping{}, nil
		}
		return nil, fmt.Errorf("decode bracket mappings: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Mappings))
	for i, m := range file.Mappings {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}
		if _, dup := seen[m.TagName]; dup {
			return nil, fmt.Errorf("mapping %d: duplicate tag %q", i, m.TagName)
		}
		seen[m.TagName] = struct{}{}
	}
	if file.Mappings == nil {
		return []Mapping{}, nil
	}
	return file.Mappings, nil
}

// Validate reports whether the mapping can be stored.
func (m Mapping) Validate() error {
	switch {
	case m.TagName == "":
		return errors.New("tag is required")
	case !m.IsSystemTag && m.ObjectPath == "":
		return fmt.Errorf("tag %q needs a path", m.TagName)
	}
	return nil
}
