package pdfcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/fileio"
	"github.com/hpungsan/coursesync/internal/logger"
)

// SkipEnv disables LoadAll when set to "1", for fast local site builds.
const SkipEnv = "SKIP_PDF_CACHE"

// Entry is the cached text of one remote file.
type Entry struct {
	Name       string `json:"name"`
	Text       string `json:"text"`
	LastSynced string `json:"lastSynced"`
}

// Record is one course's cache: category key -> file id -> entry.
type Record = course.Object[course.Object[Entry]]

// Cache stores one <slug>.json per course under dir.
type Cache struct {
	dir string
	log *logger.Logger
	now func() time.Time
}

// NewCache creates a cache rooted at dir. The directory is created on first write.
func NewCache(dir string, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{dir: dir, log: log, now: time.Now}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns the cache file of a course.
func (c *Cache) Path(slug string) string {
	return filepath.Join(c.dir, slug+".json")
}

// Put merges one file's text into the course cache and rewrites the whole
// file. A corrupt existing cache is replaced, with a warning. Empty text is
// not cached.
func (c *Cache) Put(slug, category, fileID, name, text string) error {
	if err := checkSlug(slug); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	rec, err := c.Load(slug)
	if err != nil {
		if !errors.Is(err, errors.ErrParseFailed) {
			return err
		}
		c.log.Warn("pdf cache unreadable, starting fresh", "course", slug, "path", c.Path(slug), "error", err)
		rec = Record{}
	}

	files, _ := rec.Get(category)
	files.Set(fileID, Entry{Name: name, Text: text, LastSynced: course.Timestamp(c.now())})
	rec.Set(category, files)

	data, err := course.MarshalIndent(rec)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := fileio.WriteAtomic(c.Path(slug), data, 0644); err != nil {
		return err
	}
	c.log.Info("cached pdf text", "course", slug, "category", category, "file_id", fileID, "name", name)
	return nil
}

// Load reads a course cache. A missing file is an empty record; a malformed
// one is PARSE_FAILED.
func (c *Cache) Load(slug string) (Record, error) {
	if err := checkSlug(slug); err != nil {
		return Record{}, err
	}
	data, err := fileio.ReadFile(c.Path(slug))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return Record{}, nil
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.NewParseFailed(filepath.Base(c.Path(slug)), err)
	}
	return rec, nil
}

// LoadAll reads every course cache in the directory, keyed by slug.
// Unreadable files are skipped with a warning. A missing directory, or
// SKIP_PDF_CACHE=1, yields an empty map.
func (c *Cache) LoadAll() (map[string]Record, error) {
	out := map[string]Record{}
	if os.Getenv(SkipEnv) == "1" {
		c.log.Info("pdf cache loading skipped", "env", SkipEnv)
		return out, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, errors.NewInternal(err)
	}

	var slugs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		rec, err := c.Load(slug)
		if err != nil {
			c.log.Warn("skipping unreadable pdf cache", "course", slug, "error", err)
			continue
		}
		out[slug] = rec
	}
	return out, nil
}

func checkSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) {
		return errors.NewInvalidRequest("invalid course slug for pdf cache: " + slug)
	}
	return nil
}
