package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Codec converts between file content and a Document.
type Codec interface {
	Decode(data []byte) (model.Document, error)
	Encode(doc model.Document) ([]byte, error)
}

var codecs = map[string]Codec{
	".yaml": yamlCodec{},
	".yml":  yamlCodec{},
	".toml": tomlCodec{},
	".json": jsonCodec{},
}

// IsConfigFile reports whether name has an extension a Codec exists for.
func IsConfigFile(name string) bool {
	_, ok := codecs[strings.ToLower(filepath.Ext(name))]
	return ok
}

// CodecFor returns the codec for the file extension of name. Unknown
// extensions are treated as YAML.
func CodecFor(name string) Codec {
	if c, ok := codecs[strings.ToLower(filepath.Ext(name))]; ok {
		return c
	}
	return yamlCodec{}
}

type yamlCodec struct{}

func (yamlCodec) Decode(data []byte) (model.Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return toDocument(raw)
}

// Encode writes sections and keys in the order of the default document, with
// keys it does not know following in alphabetical order.
func (yamlCodec) Encode(doc model.Document) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(map[string]interface{}(doc)); err != nil {
		return nil, err
	}
	var schema yaml.Node
	if err := schema.Encode(model.DefaultConfig()); err != nil {
		return nil, err
	}
	orderNode(&node, &schema)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orderNode(n, schema *yaml.Node) {
	if n.Kind != yaml.MappingNode || schema.Kind != yaml.MappingNode {
		return
	}
	rank := make(map[string]int, len(schema.Content)/2)
	values := make(map[string]*yaml.Node, len(schema.Content)/2)
	for i := 0; i+1 < len(schema.Content); i += 2 {
		rank[schema.Content[i].Value] = i / 2
		values[schema.Content[i].Value] = schema.Content[i+1]
	}

	type pair struct{ key, value *yaml.Node }
	pairs := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, pair{n.Content[i], n.Content[i+1]})
	}
	position := func(p pair) int {
		if r, ok := rank[p.key.Value]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(pairs, func(i, j int) bool { return position(pairs[i]) < position(pairs[j]) })

	n.Content = n.Content[:0]
	for _, p := range pairs {
		if s, ok := values[p.key.Value]; ok {
			orderNode(p.value, s)
		}
		n.Content = append(n.Content, p.key, p.value)
	}
}

type tomlCodec struct{}

func (tomlCodec) Decode(data []byte) (model.Document, error) {
	raw := map[string]interface{}{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return toDocument(raw)
}

func (tomlCodec) Encode(doc model.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]interface{}(doc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// jsonCodec accepts JSON with comments and trailing commas.
type jsonCodec struct{}

func (jsonCodec) Decode(data []byte) (model.Document, error) {
	var raw interface{}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Document{}, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, err
	}
	return toDocument(raw)
}

func (jsonCodec) Encode(doc model.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// toDocument normalizes a decoded value and requires it to be a mapping.
// An empty file decodes to an empty document.
func toDocument(raw interface{}) (model.Document, error) {
	if raw == nil {
		return model.Document{}, nil
	}
	m, ok := Normalize(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("top level is %s, not a mapping", kindOf(Normalize(raw)))
	}
	return model.Document(m), nil
}

// Normalize converts decoder-specific shapes into the ones Merge expects:
// string-keyed maps, []interface{} lists, and int for every integral number.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case model.Document:
		return Normalize(map[string]interface{}(t))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case int64:
		return int(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int(t)
		}
		return t
	default:
		return v
	}
}
