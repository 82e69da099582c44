package course

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that keeps its keys in document order, so a record
// read from disk and written back produces a reviewable diff. The zero value
// is an empty object.
type Object[V any] struct {
	m *orderedmap.OrderedMap[string, V]
}

// Len returns the number of keys.
func (o Object[V]) Len() int {
	if o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Keys returns the keys in order. The slice is a copy.
func (o Object[V]) Keys() []string {
	out := make([]string, 0, o.Len())
	for p := o.oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Get returns the value for key.
func (o Object[V]) Get(key string) (V, bool) {
	if o.m == nil {
		var zero V
		return zero, false
	}
	return o.m.Get(key)
}

// Has reports whether key is present.
func (o Object[V]) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (o *Object[V]) Set(key string, v V) {
	if o.m == nil {
		o.m = orderedmap.New[string, V]()
	}
	o.m.Set(key, v)
}

// Delete removes key if present.
func (o *Object[V]) Delete(key string) {
	if o.m != nil {
		o.m.Delete(key)
	}
}

// Clone returns a copy with its own ordering. Values are copied by assignment.
func (o Object[V]) Clone() Object[V] {
	var out Object[V]
	for p := o.oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, p.Value)
	}
	return out
}

func (o Object[V]) oldest() *orderedmap.Pair[string, V] {
	if o.m == nil {
		return nil
	}
	return o.m.Oldest()
}

// MarshalJSON writes the members in key order, without HTML escaping.
func (o Object[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for p := o.oldest(); p != nil; p = p.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, recording key order. A JSON null yields an empty object.
func (o *Object[V]) UnmarshalJSON(data []byte) error {
	o.m = nil
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if jsonKind(data) != '{' {
		return fmt.Errorf("expected JSON object, got %s", data)
	}
	m := orderedmap.New[string, V]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	o.m = m
	return nil
}

// jsonKind returns the first byte of a JSON value: '{', '[', '"', 'n' and so on.
func jsonKind(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

// member is one key/value pair of a struct rendered as an ordered object.
type member struct {
	key string
	val any
}

// writeObject renders members and extra keys. Keys listed in order come first,
// in that order; remaining members follow in declaration order, then remaining
// extra keys.
func writeObject(order []string, members []member, extra Object[json.RawMessage]) ([]byte, error) {
	byKey := make(map[string]any, len(members))
	for _, m := range members {
		byKey[m.key] = m.val
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	written := make(map[string]bool, len(members)+extra.Len())
	emit := func(k string, v any) error {
		if written[k] {
			return nil
		}
		if len(written) > 0 {
			buf.WriteByte(',')
		}
		written[k] = true
		return writeMember(&buf, k, v)
	}

	for _, k := range order {
		if v, ok := byKey[k]; ok {
			if err := emit(k, v); err != nil {
				return nil, err
			}
		} else if v, ok := extra.Get(k); ok {
			if err := emit(k, v); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range members {
		if err := emit(m.key, m.val); err != nil {
			return nil, err
		}
	}
	for p := extra.oldest(); p != nil; p = p.Next() {
		if err := emit(p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, val any) error {
	kb, err := encode(key)
	if err != nil {
		return err
	}
	vb, err := encode(val)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
	return nil
}

// encode marshals v without HTML escaping; course text routinely contains '&' and '<'.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// splitKnown separates the known keys of an object from the rest.
func splitKnown(obj Object[json.RawMessage], known ...string) (map[string]json.RawMessage, Object[json.RawMessage]) {
	isKnown := make(map[string]bool, len(known))
	for _, k := range known {
		isKnown[k] = true
	}
	found := make(map[string]json.RawMessage)
	var extra Object[json.RawMessage]
	for p := obj.oldest(); p != nil; p = p.Next() {
		if isKnown[p.Key] {
			found[p.Key] = p.Value
			continue
		}
		extra.Set(p.Key, p.Value)
	}
	return found, extra
}

// rawString decodes a raw JSON string. Missing and null values yield "".
func rawString(raw json.RawMessage, field string) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: expected string: %w", field, err)
	}
	return s, nil
}

// rawStrings decodes a raw JSON string array. Missing values yield nil; null yields nil.
func rawStrings(raw json.RawMessage, field string) ([]string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: expected string array: %w", field, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func cloneRaw(o Object[json.RawMessage]) Object[json.RawMessage] {
	var out Object[json.RawMessage]
	for p := o.oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, append(json.RawMessage(nil), p.Value...))
	}
	return out
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
