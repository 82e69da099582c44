package course

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Root keys of a course record.
const (
	KeySlug      = "slug"
	KeyHeroImage = "hero_image"
	KeyMetadata  = "metadata"
	KeyI18n      = "i18n"
	KeyMaterial  = "material"
	KeyDocs      = "docs"
)

// CommentPrefix marks root keys that carry curator notes. They are always preserved.
const CommentPrefix = "_comment"

// AllowedRootKeys lists the root keys of the current record shape, in write order.
var AllowedRootKeys = []string{KeySlug, KeyHeroImage, KeyMetadata, KeyI18n, KeyMaterial, KeyDocs}

// IsAllowedRootKey reports whether key may appear at the root of a record.
func IsAllowedRootKey(key string) bool {
	return strings.HasPrefix(key, CommentPrefix) || hasKey(AllowedRootKeys, key)
}

// Course is one course record. Root keys keep the order they were read in;
// keys outside the known set (legacy fields, comments) are carried verbatim.
type Course struct {
	Slug      string
	HeroImage string
	Metadata  Fields
	I18n      Object[Fields]
	Material  Object[[]MaterialEntry]
	Docs      Object[*DocEntry]

	order []string
	extra Object[json.RawMessage]
	// Members of material that are not entry lists, and of docs that are not
	// entry objects, such as curator notes. They are written back in place.
	materialRaw passthrough
	docsRaw     passthrough
}

// passthrough keeps the raw members of a keyed section that did not decode as
// the typed value, and the section's key order as read.
type passthrough struct {
	order []string
	raw   Object[json.RawMessage]
}

func (p passthrough) clone() passthrough {
	return passthrough{order: cloneStrings(p.order), raw: cloneRaw(p.raw)}
}

// New returns an empty record whose root keys are written in canonical order.
func New() *Course {
	return &Course{order: cloneStrings(AllowedRootKeys)}
}

// Extra returns the raw value of a root key outside the known set.
func (c *Course) Extra(key string) (json.RawMessage, bool) {
	return c.extra.Get(key)
}

// SetExtra stores a raw root value under a key outside the known set.
func (c *Course) SetExtra(key string, raw json.RawMessage) {
	c.extra.Set(key, raw)
}

// ExtraKeys returns the root keys outside the known set, in order.
func (c *Course) ExtraKeys() []string {
	return c.extra.Keys()
}

// PassThroughKeys returns the members of the material or docs section that
// synchronization skips: material values that are not entry lists and docs
// values that are not entry objects.
func (c *Course) PassThroughKeys(root string) []string {
	switch root {
	case KeyMaterial:
		return c.materialRaw.raw.Keys()
	case KeyDocs:
		return c.docsRaw.raw.Keys()
	}
	return nil
}

// UnknownKeys returns the root keys that are neither known nor comments.
func (c *Course) UnknownKeys() []string {
	var out []string
	for _, k := range c.extra.Keys() {
		if !IsAllowedRootKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// DropUnknown removes every root key that is neither known nor a comment.
func (c *Course) DropUnknown() {
	for _, k := range c.UnknownKeys() {
		c.extra.Delete(k)
	}
}

// Canonicalize drops unknown root keys and makes every known key present in
// the output. Keys already present keep their position; missing known keys
// are appended in canonical order.
func (c *Course) Canonicalize() {
	c.DropUnknown()
	order := make([]string, 0, len(c.order)+len(AllowedRootKeys))
	for _, k := range c.order {
		if IsAllowedRootKey(k) {
			order = append(order, k)
		}
	}
	for _, k := range AllowedRootKeys {
		if !hasKey(order, k) {
			order = append(order, k)
		}
	}
	c.order = order
}

// Clone returns a deep copy.
func (c *Course) Clone() *Course {
	out := &Course{
		Slug:      c.Slug,
		HeroImage: c.HeroImage,
		Metadata:  c.Metadata.Clone(),
		order:     cloneStrings(c.order),
		extra:     cloneRaw(c.extra),

		materialRaw: c.materialRaw.clone(),
		docsRaw:     c.docsRaw.clone(),
	}
	for _, k := range c.I18n.Keys() {
		v, _ := c.I18n.Get(k)
		out.I18n.Set(k, v.Clone())
	}
	for _, k := range c.Material.Keys() {
		entries, _ := c.Material.Get(k)
		out.Material.Set(k, CloneEntries(entries))
	}
	for _, k := range c.Docs.Keys() {
		d, _ := c.Docs.Get(k)
		out.Docs.Set(k, d.Clone())
	}
	return out
}

// CloneEntries deep-copies a material entry list. nil stays nil.
func CloneEntries(entries []MaterialEntry) []MaterialEntry {
	if entries == nil {
		return nil
	}
	out := make([]MaterialEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// MarshalJSON writes the root object. Known keys that were never present are
// written only when set.
func (c Course) MarshalJSON() ([]byte, error) {
	var members []member
	add := func(key string, set bool, v any) {
		if set || hasKey(c.order, key) {
			members = append(members, member{key, v})
		}
	}
	add(KeySlug, c.Slug != "", c.Slug)
	add(KeyHeroImage, c.HeroImage != "", c.HeroImage)
	add(KeyMetadata, c.Metadata.Len() > 0, c.Metadata)
	add(KeyI18n, c.I18n.Len() > 0, c.I18n)
	material, err := encodeSection(c.Material, c.materialRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyMaterial, err)
	}
	add(KeyMaterial, c.Material.Len() > 0 || c.materialRaw.raw.Len() > 0, material)
	docs, err := encodeSection(c.Docs, c.docsRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyDocs, err)
	}
	add(KeyDocs, c.Docs.Len() > 0 || c.docsRaw.raw.Len() > 0, docs)
	return writeObject(c.order, members, c.extra)
}

// encodeSection writes typed members and pass-through members in the order
// they were read. Members added since then follow.
func encodeSection[V any](typed Object[V], pt passthrough) (json.RawMessage, error) {
	members := make([]member, 0, typed.Len())
	for p := typed.oldest(); p != nil; p = p.Next() {
		members = append(members, member{p.Key, p.Value})
	}
	b, err := writeObject(pt.order, members, pt.raw)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// decodeSection reads a keyed section into dst. Values whose JSON kind is not
// kind are kept raw.
func decodeSection[V any](data json.RawMessage, kind byte, dst *Object[V]) (passthrough, error) {
	var obj Object[json.RawMessage]
	if err := json.Unmarshal(data, &obj); err != nil {
		return passthrough{}, err
	}
	pt := passthrough{order: obj.Keys()}
	var typed Object[V]
	for p := obj.oldest(); p != nil; p = p.Next() {
		if jsonKind(p.Value) != kind {
			pt.raw.Set(p.Key, p.Value)
			continue
		}
		var v V
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return passthrough{}, fmt.Errorf("key %q: %w", p.Key, err)
		}
		typed.Set(p.Key, v)
	}
	*dst = typed
	return pt, nil
}

// UnmarshalJSON reads a course record.
func (c *Course) UnmarshalJSON(data []byte) error {
	var obj Object[json.RawMessage]
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	known, extra := splitKnown(obj, AllowedRootKeys...)

	out := Course{order: obj.Keys(), extra: extra}
	var err error
	if out.Slug, err = rawString(known[KeySlug], KeySlug); err != nil {
		return err
	}
	if out.HeroImage, err = rawString(known[KeyHeroImage], KeyHeroImage); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		dst any
	}{
		{KeyMetadata, &out.Metadata},
		{KeyI18n, &out.I18n},
	} {
		raw, ok := known[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	if raw, ok := known[KeyMaterial]; ok {
		if out.materialRaw, err = decodeSection(raw, '[', &out.Material); err != nil {
			return fmt.Errorf("%s: %w", KeyMaterial, err)
		}
	}
	if raw, ok := known[KeyDocs]; ok {
		if out.docsRaw, err = decodeSection(raw, '{', &out.Docs); err != nil {
			return fmt.Errorf("%s: %w", KeyDocs, err)
		}
	}
	*c = out
	return nil
}

// Parse decodes a course record from JSON.
func Parse(data []byte) (*Course, error) {
	c := &Course{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode renders a record the way it is stored: two-space indentation, no HTML
// escaping, trailing newline.
func Encode(c *Course) ([]byte, error) {
	b, err := MarshalIndent(c)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// MarshalIndent renders v with two-space indentation and no HTML escaping.
func MarshalIndent(v any) ([]byte, error) {
	compact, err := encode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
