package settings

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sardine-ai/dmx-artnet-checker/model"
)

// Conflict is a path whose value in the source document does not have the
// kind the base document expects there.
type Conflict struct {
	Path     string
	Expected string
	Got      string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", c.Path, c.Expected, c.Got)
}

// ConflictError wraps the conflicts found while merging a document that had
// to be accepted as is.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return "type mismatch at " + strings.Join(parts, "; ")
}

// Is reports ErrValidation so callers can use errors.Is.
func (e *ConflictError) Is(target error) bool {
	return target == ErrValidation
}

// Merge overlays src onto base and returns a new document; neither input is
// modified. base acts as the schema: maps are merged key by key, and a value
// in src whose kind differs from the base value at the same path keeps the
// base value and is reported as a Conflict. Keys absent from base are copied
// from src unchanged. A nil value in src counts as absent.
func Merge(base, src model.Document) (model.Document, []Conflict) {
	var conflicts []Conflict
	merged := mergeMap(base, src, "", &conflicts)
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
	return model.Document(merged), conflicts
}

func mergeMap(base, src map[string]interface{}, prefix string, conflicts *[]Conflict) map[string]interface{} {
	result := model.CloneMap(base)
	for key, sv := range src {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		bv, known := base[key]
		if !known {
			result[key] = model.CloneValue(sv)
			continue
		}
		if sv == nil {
			continue
		}
		if bm, ok := asMap(bv); ok {
			sm, ok := asMap(sv)
			if !ok {
				*conflicts = append(*conflicts, Conflict{Path: path, Expected: kindOf(bv), Got: kindOf(sv)})
				continue
			}
			result[key] = mergeMap(bm, sm, path, conflicts)
			continue
		}
		value, ok := coerce(bv, sv)
		if !ok {
			*conflicts = append(*conflicts, Conflict{Path: path, Expected: kindOf(bv), Got: kindOf(sv)})
			continue
		}
		result[key] = value
	}
	return result
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case model.Document:
		return m, true
	}
	return nil, false
}

// coerce returns sv converted to the kind of bv, or false when it cannot be
// represented that way without losing information.
func coerce(bv, sv interface{}) (interface{}, bool) {
	switch bv.(type) {
	case int:
		switch n := sv.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if n == math.Trunc(n) && n >= math.MinInt && n < math.MaxInt {
				return int(n), true
			}
		}
		return nil, false
	case float64:
		switch n := sv.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return nil, false
	case string:
		s, ok := sv.(string)
		return s, ok
	case bool:
		b, ok := sv.(bool)
		return b, ok
	case []interface{}:
		l, ok := sv.([]interface{})
		return model.CloneValue(l), ok
	default:
		return model.CloneValue(sv), true
	}
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}, model.Document:
		return "object"
	case []interface{}:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64:
		return "integer"
	case float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
