package repair

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/llm"
)

// Result is the outcome of parsing raw provider text against a schema.
type Result struct {
	Artifact artifact.Artifact
	// Repaired is false only when the raw text parsed directly and every
	// field conformed without coercion or default filling.
	Repaired bool
	Warnings []string
}

// variant classifies a raw JSON value destined for an object-typed field.
// Every coercion path maps a variant explicitly, keeping the repair logic
// exhaustive rather than duck-typed.
type variant int

const (
	variantConforming variant = iota
	variantCoercibleString
	variantUnrecognized
)

func classify(v any) variant {
	switch val := v.(type) {
	case map[string]any:
		return variantConforming
	case string:
		if strings.HasPrefix(val, "http://") || strings.HasPrefix(val, "https://") {
			return variantCoercibleString
		}
		return variantUnrecognized
	default:
		return variantUnrecognized
	}
}

// Parse parses raw provider text into an artifact conforming to schema.
//
// Steps:
//  1. Direct structured parse (after stripping markdown fences).
//  2. On failure, recover the first balanced top-level object span and retry.
//  3. Walk the schema and coerce known malformed shapes into the declared
//     type; non-coercible list elements are dropped with a warning rather
//     than failing the whole field.
//  4. Fill absent required fields with declared defaults, appending a
//     warning — the artifact is still valid.
//
// Returns UnparseableOutputError only when no structural recovery succeeds.
func Parse(raw string, schema Schema) (*Result, error) {
	cleaned := llm.CleanJSONBlock(raw)

	var decoded map[string]any
	repaired := false

	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		span := ExtractObjectSpan(raw)
		if span == "" {
			return nil, &UnparseableOutputError{
				Schema:  schema.Name,
				Message: "no JSON object found in output",
				Cause:   err,
			}
		}
		if err := json.Unmarshal([]byte(span), &decoded); err != nil {
			return nil, &UnparseableOutputError{
				Schema:  schema.Name,
				Message: "recovered object span is not valid JSON",
				Cause:   err,
			}
		}
		repaired = true
	}

	result := &Result{Artifact: artifact.New(), Repaired: repaired}

	for _, field := range schema.Fields {
		value, present := decoded[field.Name]
		if !present || value == nil {
			if field.Required {
				result.Artifact[field.Name] = field.Default()
				result.warnf("field %q missing, filled with default", field.Name)
				result.Repaired = true
			}
			continue
		}
		coerced, ok := result.coerceField(field, value)
		if !ok {
			// Unusable shape: treat like absence so required fields
			// still end up typed.
			if field.Required {
				result.Artifact[field.Name] = field.Default()
				result.Repaired = true
			}
			continue
		}
		result.Artifact[field.Name] = coerced
	}

	result.checkAgainstJSONSchema(schema)

	return result, nil
}

// coerceField maps a decoded value onto the declared field type. The second
// return is false when the value cannot be used at all.
func (r *Result) coerceField(field Field, value any) (any, bool) {
	switch field.Type {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, true
		}
		if f, ok := value.(float64); ok {
			r.markCoerced("field %q arrived as number, converted to string", field.Name)
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		r.warnf("field %q has unusable type, expected string", field.Name)
		return nil, false

	case TypeNumber:
		if f, ok := value.(float64); ok {
			return f, true
		}
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				r.markCoerced("field %q arrived as string, converted to number", field.Name)
				return f, true
			}
		}
		r.warnf("field %q has unusable type, expected number", field.Name)
		return nil, false

	case TypeBool:
		if b, ok := value.(bool); ok {
			return b, true
		}
		r.warnf("field %q has unusable type, expected bool", field.Name)
		return nil, false

	case TypeStringList:
		list, ok := value.([]any)
		if !ok {
			if s, isStr := value.(string); isStr {
				r.markCoerced("field %q arrived as bare string, wrapped in list", field.Name)
				return []any{s}, true
			}
			r.warnf("field %q has unusable type, expected list of strings", field.Name)
			return nil, false
		}
		out := make([]any, 0, len(list))
		for _, el := range list {
			if s, isStr := el.(string); isStr {
				out = append(out, s)
			} else {
				r.markCoerced("dropped non-string element from field %q", field.Name)
			}
		}
		return out, true

	case TypeObject:
		switch classify(value) {
		case variantConforming:
			return value, true
		case variantCoercibleString:
			r.markCoerced("field %q arrived as bare URL, promoted to object", field.Name)
			return promote(value.(string), field.FallbackAttr), true
		default:
			r.warnf("field %q has unusable type, expected object", field.Name)
			return nil, false
		}

	case TypeObjectList:
		list, ok := value.([]any)
		if !ok {
			r.warnf("field %q has unusable type, expected list of objects", field.Name)
			return nil, false
		}
		out := make([]any, 0, len(list))
		for _, el := range list {
			switch classify(el) {
			case variantConforming:
				out = append(out, el)
			case variantCoercibleString:
				r.markCoerced("element of field %q arrived as bare URL, promoted to object", field.Name)
				out = append(out, promote(el.(string), field.FallbackAttr))
			default:
				r.markCoerced("dropped unrecognized element from field %q", field.Name)
			}
		}
		return out, true
	}

	return nil, false
}

// promote builds a minimal object holding a bare URL string under the
// field's designated fallback attribute.
func promote(url, fallbackAttr string) map[string]any {
	if fallbackAttr == "" {
		fallbackAttr = "url"
	}
	return map[string]any{fallbackAttr: url}
}

// checkAgainstJSONSchema validates the repaired artifact against the
// compiled JSON Schema. Coercion should already have settled the structure,
// so residual mismatches surface as warnings, never hard failures.
func (r *Result) checkAgainstJSONSchema(schema Schema) {
	doc, err := schema.JSONSchema()
	if err != nil {
		r.warnf("schema %s could not be compiled: %v", schema.Name, err)
		return
	}
	data, err := r.Artifact.JSON()
	if err != nil {
		r.warnf("artifact for %s could not be encoded for validation: %v", schema.Name, err)
		return
	}
	outcome, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(doc),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		r.warnf("schema validation for %s failed to run: %v", schema.Name, err)
		return
	}
	for _, desc := range outcome.Errors() {
		r.warnf("schema %s: %s: %s", schema.Name, desc.Field(), desc.Description())
	}
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) markCoerced(format string, args ...any) {
	r.Repaired = true
	r.warnf(format, args...)
}

// ExtractObjectSpan returns the first balanced top-level JSON object within
// text, scanning from the first '{' to its matching closing brace. Braces
// inside strings are ignored. Returns "" when no balanced object exists.
func ExtractObjectSpan(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
