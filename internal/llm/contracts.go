package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is the declared type of an extracted field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
)

// FieldSpec declares one field the caller wants extracted from document text.
type FieldSpec struct {
	Key         string    `json:"key"`
	Type        FieldType `json:"type"`
	DisplayName string    `json:"display_name"`
}

// FieldSpecSet is an ordered set of field declarations. Keys are unique;
// declaration order is preserved in the output record.
type FieldSpecSet []FieldSpec

// Generator issues one request to the generation API and returns the raw
// reply text. Implementations do exactly one network attempt per call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func (s FieldSpecSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, f := range s {
		keys = append(keys, f.Key)
	}
	return keys
}

func (s FieldSpecSet) Lookup(key string) (FieldSpec, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks key uniqueness and declared types.
func (s FieldSpecSet) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("field set is empty")
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if strings.TrimSpace(f.Key) == "" {
			return fmt.Errorf("field key is empty")
		}
		if _, dup := seen[f.Key]; dup {
			return fmt.Errorf("duplicate field key %q", f.Key)
		}
		seen[f.Key] = struct{}{}
		switch f.Type {
		case FieldString, FieldInteger:
		default:
			return fmt.Errorf("field %q has unknown type %q", f.Key, f.Type)
		}
	}
	return nil
}

// MarshalJSON encodes the set as a JSON object keyed by field key, in
// declaration order.
func (s FieldSpecSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(struct {
			Type        FieldType `json:"type"`
			DisplayName string    `json:"display_name"`
		}{f.Type, f.DisplayName})
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keyed by field key, preserving the
// order keys appear in the document.
func (s *FieldSpecSet) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected JSON object")
	}
	out := FieldSpecSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var body struct {
			Type        FieldType `json:"type"`
			DisplayName string    `json:"display_name"`
		}
		if err := dec.Decode(&body); err != nil {
			return fmt.Errorf("fields: decode %q: %w", key, err)
		}
		out = append(out, FieldSpec{Key: key, Type: body.Type, DisplayName: body.DisplayName})
	}
	*s = out
	return nil
}

// ValueKind tags a value recovered from the model's reply.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindOther
)

// Value is the tagged variant for untyped values parsed out of the model
// reply. Text or Number is meaningful depending on Kind.
type Value struct {
	Kind   ValueKind
	Text   string
	Number json.Number
}

// Record is the final key->value mapping returned to callers. Its keys are
// exactly the declared field keys; values are nil, string, or int64.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates a record with one nil entry per declared field.
func NewRecord(fields FieldSpecSet) Record {
	r := Record{
		keys:   fields.Keys(),
		values: make(map[string]any, len(fields)),
	}
	for _, k := range r.keys {
		r.values[k] = nil
	}
	return r
}

// Set assigns a value; keys outside the declared set are ignored.
func (r Record) Set(key string, v any) {
	if _, ok := r.values[key]; ok {
		r.values[key] = v
	}
}

func (r Record) Get(key string) any {
	return r.values[key]
}

func (r Record) Keys() []string {
	return r.keys
}

// AllNull reports whether every declared field is nil. This is the trigger
// condition for the fallback scan.
func (r Record) AllNull() bool {
	for _, k := range r.keys {
		if r.values[k] != nil {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as a JSON object in declaration order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
