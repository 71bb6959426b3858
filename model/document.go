package model

import (
	"gopkg.in/yaml.v3"
)

// Document is the tree form of a configuration file: string keys mapping to
// scalars, slices or nested maps. Sections unknown to Config are kept.
type Document map[string]interface{}

// Section returns the named top-level section if it is a map.
func (d Document) Section(name string) (map[string]interface{}, bool) {
	section, ok := d[name].(map[string]interface{})
	return section, ok
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(CloneMap(d))
}

// Config decodes the document into its typed view. Keys that do not belong to
// Config are ignored.
func (d Document) Config() (Config, error) {
	var cfg Config
	marshal, err := yaml.Marshal(map[string]interface{}(d))
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(marshal, &cfg)
	return cfg, err
}

// CloneMap deep-copies a map tree.
func CloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices; scalars are returned as is.
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CloneMap(t)
	case Document:
		return CloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}
