// Package repair parses and coerces near-miss structured provider output
// into a strict per-stage schema. The upstream generator is free-form text
// generation constrained only by instruction; it reliably produces near-miss
// shapes (wrong container type, prose wrapping the object) that a strict
// parser would reject, discarding otherwise-usable output.
package repair

import (
	"encoding/json"
	"fmt"
)

// FieldType is the declared type of a schema field.
type FieldType string

// Field type constants.
const (
	TypeString     FieldType = "string"
	TypeNumber     FieldType = "number"
	TypeBool       FieldType = "bool"
	TypeStringList FieldType = "[]string"
	TypeObject     FieldType = "object"
	TypeObjectList FieldType = "[]object"
)

// Field declares one field of a stage output schema.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	// FallbackAttr names the attribute a bare URL string is promoted into
	// when the field expects an object (e.g. "url" for sources, "source"
	// for hiring contacts). Empty means URL strings are not coercible for
	// this field.
	FallbackAttr string
}

// Schema declares a stage's structured output contract. Declared once per
// stage, never mutated at runtime.
type Schema struct {
	Name   string
	Fields []Field
}

// Default returns the declared default value for a field type.
func (f Field) Default() any {
	switch f.Type {
	case TypeString:
		return ""
	case TypeNumber:
		return float64(0)
	case TypeBool:
		return false
	case TypeStringList:
		return []any{}
	case TypeObject:
		return map[string]any{}
	case TypeObjectList:
		return []any{}
	default:
		return nil
	}
}

// JSONSchema compiles the declared schema into a JSON Schema document
// suitable for gojsonschema validation.
func (s Schema) JSONSchema() (string, error) {
	properties := make(map[string]any, len(s.Fields))
	var required []string

	for _, f := range s.Fields {
		var prop map[string]any
		switch f.Type {
		case TypeString:
			prop = map[string]any{"type": "string"}
		case TypeNumber:
			prop = map[string]any{"type": "number"}
		case TypeBool:
			prop = map[string]any{"type": "boolean"}
		case TypeStringList:
			prop = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		case TypeObject:
			prop = map[string]any{"type": "object"}
		case TypeObjectList:
			prop = map[string]any{"type": "array", "items": map[string]any{"type": "object"}}
		default:
			return "", fmt.Errorf("schema %s: field %s has unknown type %q", s.Name, f.Name, f.Type)
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      s.Name,
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON schema for %s: %w", s.Name, err)
	}
	return string(data), nil
}
