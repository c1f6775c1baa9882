package settings

import (
	"fmt"
	"sort"
)

// FieldDescriptor describes one recognized setting key: its inferred type,
// its default value, and whether it belongs to the core tier. Settings UIs
// render the namespace from these.
type FieldDescriptor struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Default any    `json:"default"`
	Core    bool   `json:"core,omitempty"`
}

// Schema derives descriptors for every key in the default tables, sorted by
// key so output is stable for docs and snapshot tests.
func (s *Store) Schema() []FieldDescriptor {
	descriptors := make([]FieldDescriptor, 0, len(s.defaults))
	for key, value := range s.defaults {
		_, isCore := s.coreKeys[key]
		descriptors = append(descriptors, FieldDescriptor{
			Key:     key,
			Type:    typeName(value),
			Default: value,
			Core:    isCore,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Key < descriptors[j].Key
	})
	return descriptors
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}
