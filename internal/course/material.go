package course

import (
	"encoding/json"
	"fmt"
)

// Material entry type tags as written in course records.
const (
	TypeDriveFolder = "drive-folder"
	TypeDriveFile   = "drive-file"
	TypeLegacyPDF   = "pdf" // older alias of drive-file
	TypeYouTube     = "youtube"
	TypeManual      = "manual"
)

// Source is the remote binding of a material entry. The set of variants is
// closed: DriveFolder, DriveFile, YouTube and Manual.
type Source interface {
	// Type is the tag written to the record's "type" field.
	Type() string
	// RemoteID is the identifier of the bound remote object, if any.
	RemoteID() string
	isSource()
}

// DriveFolder binds an entry to every accepted object in a remote folder.
type DriveFolder struct {
	ID string
}

// DriveFile binds an entry to a single remote object.
type DriveFile struct {
	ID string
	// LegacyPDF marks entries written with the older "pdf" type tag; the tag is preserved.
	LegacyPDF bool
}

// YouTube binds an entry to a video id. It is not verified remotely during sync.
type YouTube struct {
	ID string
}

// Manual entries are owned by the curator and never touched by sync.
type Manual struct {
	ID string
	// RawType preserves an unrecognised type tag; such entries are treated as manual.
	RawType string
}

func (DriveFolder) Type() string { return TypeDriveFolder }
func (f DriveFile) Type() string {
	if f.LegacyPDF {
		return TypeLegacyPDF
	}
	return TypeDriveFile
}
func (YouTube) Type() string { return TypeYouTube }
func (m Manual) Type() string {
	if m.RawType != "" {
		return m.RawType
	}
	return TypeManual
}

func (s DriveFolder) RemoteID() string { return s.ID }
func (s DriveFile) RemoteID() string   { return s.ID }
func (s YouTube) RemoteID() string     { return s.ID }
func (s Manual) RemoteID() string      { return s.ID }

func (DriveFolder) isSource() {}
func (DriveFile) isSource()   {}
func (YouTube) isSource()     {}
func (Manual) isSource()      {}

// SourceVisitor handles every Source variant. Adding a variant adds a method
// here, so every visitor stops compiling until it handles the new case.
type SourceVisitor[T any] interface {
	DriveFolder(DriveFolder) T
	DriveFile(DriveFile) T
	YouTube(YouTube) T
	Manual(Manual) T
}

// Visit dispatches s to the matching visitor method. A nil source is treated as Manual.
func Visit[T any](s Source, v SourceVisitor[T]) T {
	switch src := s.(type) {
	case DriveFolder:
		return v.DriveFolder(src)
	case DriveFile:
		return v.DriveFile(src)
	case YouTube:
		return v.YouTube(src)
	case Manual:
		return v.Manual(src)
	case nil:
		return v.Manual(Manual{})
	default:
		panic(fmt.Sprintf("course: unhandled source variant %T", s))
	}
}

// ParseSource builds the Source variant for a type tag and id.
func ParseSource(typ, id string) Source {
	switch typ {
	case TypeDriveFolder:
		return DriveFolder{ID: id}
	case TypeDriveFile:
		return DriveFile{ID: id}
	case TypeLegacyPDF:
		return DriveFile{ID: id, LegacyPDF: true}
	case TypeYouTube:
		return YouTube{ID: id}
	case TypeManual, "":
		return Manual{ID: id}
	default:
		return Manual{ID: id, RawType: typ}
	}
}

// MaterialEntry is one remote source bound to a material category.
type MaterialEntry struct {
	Source     Source
	Title      string
	Tags       []string // nil omits the key
	Items      []Item
	LastSynced string // empty omits the key
	Extra      Object[json.RawMessage]

	order []string // key order as read
}

var entryKeys = []string{"type", "id", "title", "tags", "items", "lastSynced"}

// Clone returns a deep copy; the copy shares no slices with e.
func (e MaterialEntry) Clone() MaterialEntry {
	out := e
	out.Tags = cloneStrings(e.Tags)
	out.Items = CloneItems(e.Items)
	out.Extra = cloneRaw(e.Extra)
	out.order = cloneStrings(e.order)
	return out
}

// NewEntry returns an entry whose type, title and items keys are always
// written, and id whenever the source has one.
func NewEntry(src Source, title string, items []Item) MaterialEntry {
	if items == nil {
		items = []Item{}
	}
	order := []string{"type", "title", "items"}
	if src != nil && src.RemoteID() != "" {
		order = []string{"type", "id", "title", "items"}
	}
	return MaterialEntry{Source: src, Title: title, Items: items, order: order}
}

// MarshalJSON writes type, id, title, tags, items, lastSynced, then extra keys.
// Optional keys are written when set or when they were present when read, so
// an entry read and written back keeps its bytes.
func (e MaterialEntry) MarshalJSON() ([]byte, error) {
	src := e.Source
	if src == nil {
		src = Manual{}
	}
	var members []member
	if typ := src.Type(); typ != TypeManual || hasKey(e.order, "type") || len(e.order) == 0 {
		members = append(members, member{"type", typ})
	}
	if id := src.RemoteID(); id != "" || hasKey(e.order, "id") {
		members = append(members, member{"id", id})
	}
	if e.Title != "" || hasKey(e.order, "title") {
		members = append(members, member{"title", e.Title})
	}
	if e.Tags != nil || hasKey(e.order, "tags") {
		members = append(members, member{"tags", e.Tags})
	}
	if e.Items != nil || hasKey(e.order, "items") {
		items := e.Items
		if items == nil {
			items = []Item{}
		}
		members = append(members, member{"items", items})
	}
	if e.LastSynced != "" || hasKey(e.order, "lastSynced") {
		members = append(members, member{"lastSynced", e.LastSynced})
	}
	return writeObject(e.order, members, e.Extra)
}

// UnmarshalJSON reads an entry, keeping unknown keys in Extra.
func (e *MaterialEntry) UnmarshalJSON(data []byte) error {
	var obj Object[json.RawMessage]
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	known, extra := splitKnown(obj, entryKeys...)

	typ, err := rawString(known["type"], "type")
	if err != nil {
		return err
	}
	id, err := rawString(known["id"], "id")
	if err != nil {
		return err
	}
	title, err := rawString(known["title"], "title")
	if err != nil {
		return err
	}
	tags, err := rawStrings(known["tags"], "tags")
	if err != nil {
		return err
	}
	lastSynced, err := rawString(known["lastSynced"], "lastSynced")
	if err != nil {
		return err
	}
	var items []Item
	if raw, ok := known["items"]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("items: %w", err)
		}
	}

	*e = MaterialEntry{
		Source:     ParseSource(typ, id),
		Title:      title,
		Tags:       tags,
		Items:      items,
		LastSynced: lastSynced,
		Extra:      extra,
		order:      obj.Keys(),
	}
	return nil
}
