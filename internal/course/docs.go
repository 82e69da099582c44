package course

import (
	"encoding/json"
)

// Document entry type tags.
const (
	DocTypeGoogleDoc = "google-doc"
	DocTypeManual    = "manual"
)

// DocEntry is one long-form document bound to a docs key.
type DocEntry struct {
	Type        string
	ID          string
	Title       string
	Content     *string // null until first successful fetch
	LastSynced  *string
	Name        string
	MimeType    string
	DownloadURL string
	Extra       Object[json.RawMessage]

	order []string
}

var docKeys = []string{"type", "id", "title", "content", "lastSynced", "name", "mimeType", "downloadUrl"}

// Remote reports whether the entry is bound to a remote document.
func (d *DocEntry) Remote() bool {
	return d != nil && d.Type != DocTypeManual && d.ID != ""
}

// Clone returns a deep copy. A nil entry clones to nil.
func (d *DocEntry) Clone() *DocEntry {
	if d == nil {
		return nil
	}
	out := *d
	out.Content = cloneStringPtr(d.Content)
	out.LastSynced = cloneStringPtr(d.LastSynced)
	out.Extra = cloneRaw(d.Extra)
	out.order = cloneStrings(d.order)
	return &out
}

// NewDocEntry returns an entry whose type, id, title, content and lastSynced
// keys are always written.
func NewDocEntry(typ, id, title string) *DocEntry {
	return &DocEntry{Type: typ, ID: id, Title: title, order: cloneStrings(docKeys[:5])}
}

// Canonicalize makes the type, id, title, content and lastSynced keys present
// in the output. Other keys keep their position.
func (d *DocEntry) Canonicalize() {
	for _, k := range docKeys[:5] {
		if !hasKey(d.order, k) {
			d.order = append(d.order, k)
		}
	}
}

// MarshalJSON writes type, id, title, content, lastSynced, then the fetched
// fields, then extra keys. A key is written when set or when it was present
// when read. Keys keep the order they were read in.
func (d DocEntry) MarshalJSON() ([]byte, error) {
	var members []member
	for _, f := range []member{{"type", d.Type}, {"id", d.ID}, {"title", d.Title}} {
		if f.val.(string) != "" || hasKey(d.order, f.key) {
			members = append(members, f)
		}
	}
	if d.Content != nil || hasKey(d.order, "content") {
		members = append(members, member{"content", d.Content})
	}
	if d.LastSynced != nil || hasKey(d.order, "lastSynced") {
		members = append(members, member{"lastSynced", d.LastSynced})
	}
	for _, f := range []member{{"name", d.Name}, {"mimeType", d.MimeType}, {"downloadUrl", d.DownloadURL}} {
		if f.val.(string) != "" || hasKey(d.order, f.key) {
			members = append(members, f)
		}
	}
	return writeObject(d.order, members, d.Extra)
}

// UnmarshalJSON reads a document entry, keeping unknown keys in Extra.
func (d *DocEntry) UnmarshalJSON(data []byte) error {
	var obj Object[json.RawMessage]
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	known, extra := splitKnown(obj, docKeys...)

	out := DocEntry{Extra: extra, order: obj.Keys()}
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"type", &out.Type},
		{"id", &out.ID},
		{"title", &out.Title},
		{"name", &out.Name},
		{"mimeType", &out.MimeType},
		{"downloadUrl", &out.DownloadURL},
	} {
		if *f.dst, err = rawString(known[f.key], f.key); err != nil {
			return err
		}
	}
	if out.Content, err = rawStringPtr(known["content"], "content"); err != nil {
		return err
	}
	if out.LastSynced, err = rawStringPtr(known["lastSynced"], "lastSynced"); err != nil {
		return err
	}
	*d = out
	return nil
}

func rawStringPtr(raw json.RawMessage, field string) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	s, err := rawString(raw, field)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
