// Package artifact provides the structured record threaded through pipeline stages.
package artifact

import (
	"encoding/json"
	"fmt"
)

// Artifact is a growing mapping from field name to value. Stages receive it
// read-only and produce new fields; enrichment always goes through Merge so
// an artifact accepted by one stage is never mutated by a later one.
type Artifact map[string]any

// New returns an empty artifact.
func New() Artifact {
	return Artifact{}
}

// FromJSON decodes a JSON object into an artifact.
func FromJSON(data []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return a, nil
}

// JSON encodes the artifact as a JSON object.
func (a Artifact) JSON() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	return data, nil
}

// Has reports whether a field is present.
func (a Artifact) Has(field string) bool {
	_, ok := a[field]
	return ok
}

// Missing returns the subset of fields not present in the artifact.
func (a Artifact) Missing(fields []string) []string {
	var missing []string
	for _, f := range fields {
		if !a.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Merge returns a new artifact with fields from other laid on top of a.
// Existing fields are overwritten by other, never deleted; neither input is
// modified (copy-on-enrich).
func (a Artifact) Merge(other Artifact) Artifact {
	merged := make(Artifact, len(a)+len(other))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy of the artifact.
func (a Artifact) Clone() Artifact {
	return Artifact{}.Merge(a)
}

// String returns the string value of a field, or "" if absent or not a string.
func (a Artifact) String(field string) string {
	s, _ := a[field].(string)
	return s
}

// Float returns the numeric value of a field. JSON numbers decode as float64.
func (a Artifact) Float(field string) float64 {
	f, _ := a[field].(float64)
	return f
}

// Map returns a nested object field, or nil if absent or not an object.
func (a Artifact) Map(field string) map[string]any {
	m, _ := a[field].(map[string]any)
	return m
}

// List returns a list field, or nil if absent or not a list.
func (a Artifact) List(field string) []any {
	l, _ := a[field].([]any)
	return l
}

// StringList returns a list field with every string element, dropping others.
func (a Artifact) StringList(field string) []string {
	var out []string
	for _, v := range a.List(field) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ObjectList returns a list field with every object element, dropping others.
func (a Artifact) ObjectList(field string) []map[string]any {
	var out []map[string]any
	for _, v := range a.List(field) {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
