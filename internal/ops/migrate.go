package ops

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/fileio"
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/tags"
)

// Legacy root keys read by the migrator.
const (
	legacyDriveFolders  = "drive_folders"
	legacyFiles         = "files"
	legacyGoogleDocs    = "google_docs"
	legacyYouTubeVideos = "youtube_videos"
	legacyTags          = "tags"
)

// folderCategories maps legacy drive_folders keys to material categories.
var folderCategories = map[string]string{
	"workbook_photos":         "workbook_photos",
	"blackboard":              "blackboard",
	"photos":                  "photos",
	"performance":             "scripts_photos",
	"scripts_and_performance": "scripts_photos",
	"songs_audio":             "songs_audio",
}

// fileCategories maps legacy files keys to material categories.
var fileCategories = map[string]string{
	"workbook_pdfs":   "workbook_pdfs",
	"play_scripts":    "play_scripts",
	"sheet_music":     "sheet_music",
	"workbook_photos": "workbook_photos",
	"blackboard":      "blackboard",
	"photos":          "photos",
	"scripts_photos":  "scripts_photos",
	"songs":           "songs_audio",
}

// docTitles are the default titles of well-known docs keys.
var docTitles = map[string]string{
	"course_description": "課程介紹",
	"play_script":        "劇本",
	"story":              "故事稿",
}

// ManualTitlePrefix prefixes the title of manual entries built from legacy files.
const ManualTitlePrefix = "手動素材："

// MigrateCourse converts a record from the legacy flat shape to the
// material/docs shape and returns the result. The input is not modified.
// A non-empty material map is kept as is; existing docs keep their fields
// and only get a missing type or title filled in. Running MigrateCourse on
// its own output returns an equal record.
func MigrateCourse(in *course.Course) (*course.Course, error) {
	c := in.Clone()

	if c.Material.Len() == 0 {
		material, err := migrateMaterial(in)
		if err != nil {
			return nil, err
		}
		c.Material = material
	}

	docs, err := migrateDocs(in)
	if err != nil {
		return nil, err
	}
	c.Docs = docs

	if raw, ok := in.Extra(legacyTags); ok {
		var legacy []string
		if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy) > 0 {
			merged := tags.Union(c.Metadata.Strings(legacyTags), legacy)
			if len(merged) > 0 {
				c.Metadata.SetStrings(legacyTags, merged)
			}
		}
	}

	c.Canonicalize()
	return c, nil
}

func migrateMaterial(in *course.Course) (course.Object[[]course.MaterialEntry], error) {
	var material course.Object[[]course.MaterialEntry]
	add := func(category string, e course.MaterialEntry) {
		entries, _ := material.Get(category)
		material.Set(category, append(entries, e))
	}

	folders, err := legacyObject(in, legacyDriveFolders)
	if err != nil {
		return material, err
	}
	for _, key := range folders.Keys() {
		category, ok := folderCategories[key]
		if !ok {
			continue
		}
		if _, exists := material.Get(category); !exists {
			material.Set(category, []course.MaterialEntry{})
		}
		raw, _ := folders.Get(key)
		for _, ref := range folderRefs(raw) {
			add(category, course.NewEntry(course.DriveFolder{ID: ref.id}, ref.title, nil))
		}
	}

	files, err := legacyObject(in, legacyFiles)
	if err != nil {
		return material, err
	}
	for _, key := range files.Keys() {
		category, ok := fileCategories[key]
		if !ok {
			continue
		}
		raw, _ := files.Get(key)
		var items []course.Item
		if err := json.Unmarshal(listOf(raw), &items); err != nil {
			return material, errors.NewSchemaViolation(legacyFiles+"."+key, "legacy file list is malformed: "+err.Error())
		}
		if len(items) == 0 {
			continue
		}
		for i := range items {
			items[i] = items[i].Expanded()
		}
		add(category, course.NewEntry(course.Manual{}, ManualTitlePrefix+category, items))
	}

	videos, err := legacyObject(in, legacyYouTubeVideos)
	if err != nil {
		return material, err
	}
	for _, key := range videos.Keys() {
		raw, _ := videos.Get(key)
		id := trimmedString(raw)
		if id == "" {
			continue
		}
		add(VideoCategory, course.NewEntry(course.YouTube{ID: id}, strings.ReplaceAll(key, "_", " "), nil))
	}
	return material, nil
}

func migrateDocs(in *course.Course) (course.Object[*course.DocEntry], error) {
	var docs course.Object[*course.DocEntry]
	for _, key := range in.Docs.Keys() {
		d, _ := in.Docs.Get(key)
		if d == nil {
			continue
		}
		d = d.Clone()
		if d.Type == "" {
			d.Type = course.DocTypeGoogleDoc
		}
		if d.Title == "" {
			d.Title = docTitle(key)
		}
		d.Canonicalize()
		docs.Set(key, d)
	}

	legacy, err := legacyObject(in, legacyGoogleDocs)
	if err != nil {
		return docs, err
	}
	for _, key := range legacy.Keys() {
		raw, _ := legacy.Get(key)
		id := trimmedString(raw)
		if id == "" {
			continue
		}
		d, ok := docs.Get(key)
		if !ok {
			docs.Set(key, course.NewDocEntry(course.DocTypeGoogleDoc, id, docTitle(key)))
			continue
		}
		if d.ID == "" {
			d.ID = id
		}
	}
	return docs, nil
}

func docTitle(key string) string {
	if t, ok := docTitles[key]; ok {
		return t
	}
	return key
}

type folderRef struct {
	id    string
	title string
}

// folderRefs reads a legacy drive_folders value: an id string, an object
// with id and name or title, or an array of either.
func folderRefs(raw json.RawMessage) []folderRef {
	var list []json.RawMessage
	if err := json.Unmarshal(listOf(raw), &list); err != nil {
		return nil
	}
	var out []folderRef
	for _, v := range list {
		if id := trimmedString(v); id != "" {
			out = append(out, folderRef{id: id})
			continue
		}
		var obj struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(v, &obj); err != nil || obj.ID == "" {
			continue
		}
		title := obj.Name
		if title == "" {
			title = obj.Title
		}
		out = append(out, folderRef{id: obj.ID, title: title})
	}
	return out
}

// listOf wraps a non-array value in a one-element array. Null and empty values become [].
func listOf(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")), bytes.Equal(trimmed, []byte(`""`)), bytes.Equal(trimmed, []byte("false")):
		return json.RawMessage("[]")
	case trimmed[0] == '[':
		return trimmed
	default:
		return json.RawMessage("[" + string(trimmed) + "]")
	}
}

func trimmedString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// legacyObject decodes a legacy root map. A missing key or a non-object value is empty.
func legacyObject(c *course.Course, key string) (course.Object[json.RawMessage], error) {
	var obj course.Object[json.RawMessage]
	raw, ok := c.Extra(key)
	if !ok {
		return obj, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return obj, nil
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return obj, errors.NewSchemaViolation(key, "legacy map is malformed: "+err.Error())
	}
	return obj, nil
}

// MigrateInput names the course files to migrate.
type MigrateInput struct {
	Paths []string `json:"paths"`
	// DryRun reports what would change without writing.
	DryRun bool `json:"dry_run,omitempty"`
	// AllowedDirs, when set, confines every path to these course directories.
	AllowedDirs []string `json:"-"`
}

// MigrateResult is the outcome for one file.
type MigrateResult struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Error   string `json:"error,omitempty"`
}

// MigrateOutput summarizes a migration batch.
type MigrateOutput struct {
	Results  []MigrateResult `json:"results"`
	Migrated int             `json:"migrated"`
	Failed   int             `json:"failed"`
}

// MigrateFile migrates one course file in place and reports whether its
// bytes changed. An unchanged file is not rewritten.
func MigrateFile(path string, dryRun bool) (bool, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return false, err
	}
	c, err := course.Parse(data)
	if err != nil {
		return false, errors.NewParseFailed(filepath.Base(path), err)
	}
	migrated, err := MigrateCourse(c)
	if err != nil {
		return false, err
	}
	out, err := course.Encode(migrated)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	if bytes.Equal(out, data) {
		return false, nil
	}
	if dryRun {
		return true, nil
	}
	if err := fileio.WriteAtomic(path, out, 0644); err != nil {
		return true, err
	}
	return true, nil
}

// Migrate migrates each path in turn, continuing past failures.
func Migrate(input MigrateInput, log *logger.Logger) (*MigrateOutput, error) {
	if len(input.Paths) == 0 {
		return nil, errors.NewInvalidRequest("at least one course file is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	out := &MigrateOutput{Results: make([]MigrateResult, 0, len(input.Paths))}
	for _, p := range input.Paths {
		res := MigrateResult{Path: p}
		var (
			changed bool
			err     error
		)
		if len(input.AllowedDirs) > 0 {
			err = ValidateCoursePath(p, input.AllowedDirs)
		}
		if err == nil {
			changed, err = MigrateFile(p, input.DryRun)
		}
		res.Changed = changed
		switch {
		case err != nil:
			log.Error("migration failed", "path", p, "error", err)
			res.Error = err.Error()
			out.Failed++
		case changed:
			log.Info("migrated course record", "path", p, "dry_run", input.DryRun)
			out.Migrated++
		default:
			log.Info("course record already migrated", "path", p)
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}
