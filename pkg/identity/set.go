package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Set is an insertion-ordered map of identity key to evidence record.
// Re-adding an existing key replaces the record but keeps its position.
type Set struct {
	byKey map[string]Record
	keys  []string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byKey: make(map[string]Record)}
}

// Put stores a record under key.
func (s *Set) Put(key string, r Record) {
	if s.byKey == nil {
		s.byKey = make(map[string]Record)
	}
	if _, ok := s.byKey[key]; !ok {
		s.keys = append(s.keys, key)
	}
	if r.Version == 0 {
		r.Version = RecordVersion
	}
	s.byKey[key] = r
}

// Get returns the record stored under key.
func (s *Set) Get(key string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	r, ok := s.byKey[key]
	return r, ok
}

// Len returns the number of identities.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns identity keys in insertion order.
func (s *Set) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// All iterates over identities in insertion order.
func (s *Set) All() iter.Seq2[string, Record] {
	return func(yield func(string, Record) bool) {
		if s == nil {
			return
		}
		for _, k := range s.keys {
			if !yield(k, s.byKey[k]) {
				return
			}
		}
	}
}

// MarshalJSON writes the set as a JSON object in insertion order.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		rb, err := json.Marshal(s.byKey[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(rb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving key order.
func (s *Set) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("identity set: expected JSON object")
	}
	*s = Set{byKey: make(map[string]Record)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("identity set: unexpected key %v", tok)
		}
		var r Record
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("identity %q: %w", key, err)
		}
		s.Put(key, r)
	}
	_, err = dec.Token()
	return err
}

// UnmarshalYAML reads a YAML mapping, preserving key order.
func (s *Set) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errors.New("identity set: expected YAML mapping")
	}
	*s = Set{byKey: make(map[string]Record)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		var r Record
		if err := value.Content[i+1].Decode(&r); err != nil {
			return fmt.Errorf("identity %q: %w", key, err)
		}
		s.Put(key, r)
	}
	return nil
}

// MarshalYAML writes the set as an ordered YAML mapping.
func (s *Set) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for k, r := range s.All() {
		var v yaml.Node
		if err := v.Encode(r); err != nil {
			return nil, fmt.Errorf("identity %q: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &v)
	}
	return node, nil
}
