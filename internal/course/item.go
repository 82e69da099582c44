package course

import (
	"encoding/json"
	"fmt"
)

// Item is one resolved remote object, or one curator-supplied entry in a manual list.
type Item struct {
	ID          string
	Name        string
	MimeType    string
	Tags        []string // nil omits the key
	DownloadURL string
	PreviewURL  string
	IsPDF       bool
	ViewerURL   string
	Extra       Object[json.RawMessage]

	order []string
	bare  bool // read from a bare JSON string
}

var itemKeys = []string{"id", "name", "mimeType", "tags", "downloadUrl", "previewUrl", "isPdf", "viewerUrl"}

// NewItem builds the item for a remote object. name is the display name as
// listed remotely; the extension is stripped. PDFs get the inline viewer URL.
func NewItem(id, name, mimeType string, tags []string) Item {
	if name == "" {
		name = id
	}
	it := Item{
		ID:          id,
		Name:        StripExt(name),
		MimeType:    mimeType,
		Tags:        tags,
		DownloadURL: ViewURL(id),
		PreviewURL:  PreviewURL(id),
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
	if mimeType == MimePDF {
		it.IsPDF = true
		it.ViewerURL = it.PreviewURL
	}
	return it
}

// Expanded returns the item with its bare-string form dropped, so it is
// written as an object.
func (it Item) Expanded() Item {
	it.bare = false
	return it
}

// idOnly reports whether nothing but the id is set.
func (it Item) idOnly() bool {
	return it.Name == "" && it.MimeType == "" && it.Tags == nil && it.DownloadURL == "" &&
		it.PreviewURL == "" && !it.IsPDF && it.ViewerURL == "" && it.Extra.Len() == 0
}

// Clone returns a deep copy.
func (it Item) Clone() Item {
	out := it
	out.Tags = cloneStrings(it.Tags)
	out.Extra = cloneRaw(it.Extra)
	out.order = cloneStrings(it.order)
	return out
}

// CloneItems deep-copies a slice of items. nil stays nil.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// MarshalJSON writes the fields that are set or were present when read, then
// extra keys. An item read from a bare string is written back as one while
// only its id is set.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.bare && it.idOnly() {
		return encode(it.ID)
	}
	var members []member
	add := func(k, v string) {
		if v != "" || hasKey(it.order, k) {
			members = append(members, member{k, v})
		}
	}
	add("id", it.ID)
	add("name", it.Name)
	add("mimeType", it.MimeType)
	if it.Tags != nil || hasKey(it.order, "tags") {
		members = append(members, member{"tags", it.Tags})
	}
	add("downloadUrl", it.DownloadURL)
	add("previewUrl", it.PreviewURL)
	if it.IsPDF || hasKey(it.order, "isPdf") {
		members = append(members, member{"isPdf", it.IsPDF})
	}
	add("viewerUrl", it.ViewerURL)
	return writeObject(it.order, members, it.Extra)
}

// UnmarshalJSON reads an item. A bare JSON string is read as {"id": <string>}.
func (it *Item) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*it = Item{ID: bare, bare: true}
		return nil
	}

	var obj Object[json.RawMessage]
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	known, extra := splitKnown(obj, itemKeys...)

	out := Item{Extra: extra, order: obj.Keys()}
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"id", &out.ID},
		{"name", &out.Name},
		{"mimeType", &out.MimeType},
		{"downloadUrl", &out.DownloadURL},
		{"previewUrl", &out.PreviewURL},
		{"viewerUrl", &out.ViewerURL},
	} {
		if *f.dst, err = rawString(known[f.key], f.key); err != nil {
			return err
		}
	}
	if out.Tags, err = rawStrings(known["tags"], "tags"); err != nil {
		return err
	}
	if raw, ok := known["isPdf"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &out.IsPDF); err != nil {
			return fmt.Errorf("isPdf: %w", err)
		}
	}
	*it = out
	return nil
}
