package course

import (
	"encoding/json"
)

// Fields is a free-form JSON object (course metadata, one locale of i18n).
// Values are kept raw; typed accessors decode on demand.
type Fields struct {
	Object[json.RawMessage]
}

// String returns the string stored under key, or "" if absent or not a string.
func (f Fields) String(key string) string {
	raw, ok := f.Get(key)
	if !ok {
		return ""
	}
	s, err := rawString(raw, key)
	if err != nil {
		return ""
	}
	return s
}

// Strings returns the string array stored under key, or nil if absent or not a string array.
func (f Fields) Strings(key string) []string {
	raw, ok := f.Get(key)
	if !ok {
		return nil
	}
	s, err := rawStrings(raw, key)
	if err != nil {
		return nil
	}
	return s
}

// IsString reports whether key holds a non-empty JSON string.
func (f Fields) IsString(key string) bool {
	raw, ok := f.Get(key)
	if !ok {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && s != ""
}

// IsArray reports whether key holds a JSON array.
func (f Fields) IsArray(key string) (length int, ok bool) {
	raw, present := f.Get(key)
	if !present {
		return 0, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || arr == nil {
		return 0, false
	}
	return len(arr), true
}

// SetStrings stores a string array under key.
func (f *Fields) SetStrings(key string, values []string) {
	if values == nil {
		values = []string{}
	}
	raw, _ := encode(values)
	f.Set(key, raw)
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	return Fields{Object: cloneRaw(f.Object)}
}
