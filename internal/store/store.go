// Package store persists course records: one JSON file per course, written
// whole, with a one-time backup of the original content.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hpungsan/coursesync/internal/config"
	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/fileio"
)

// BackupSuffix is appended to a record's file name to name its backup.
const BackupSuffix = ".orig"

// Store is the course record store contract. Names are file base names such as "course_4a.json".
type Store interface {
	// List returns the record names eligible for batch operations, sorted.
	List() ([]string, error)
	// Load reads and parses a record. Malformed JSON is PARSE_FAILED.
	Load(name string) (*course.Course, error)
	// ReadRaw returns a record's bytes unparsed.
	ReadRaw(name string) ([]byte, error)
	// Save replaces a record as a whole; readers see the old or the new file, never a mix.
	Save(name string, c *course.Course) error
	// Selectable rejects a name that batch operations never pick up: one not
	// named course_*.json, or the template. It does not check existence.
	Selectable(name string) error
	// Backup copies a record's current bytes to its backup path once. It never
	// overwrites an existing backup and reports whether one was written.
	Backup(name string) (bool, error)
}

// FileStore is a Store over a directory.
type FileStore struct {
	dir       string
	backupDir string
	template  string
}

var _ Store = (*FileStore)(nil)

// New creates a FileStore. Nothing is created on disk until the first write.
func New(dir, backupDir, template string) *FileStore {
	return &FileStore{dir: dir, backupDir: backupDir, template: template}
}

// FromConfig creates the FileStore for the configured directories.
func FromConfig(cfg *config.Config) *FileStore {
	return New(cfg.CoursesPath(), cfg.BackupPath(), cfg.TemplateFile)
}

// Dir returns the record directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file path of a record.
func (s *FileStore) Path(name string) string { return filepath.Join(s.dir, name) }

// BackupPath returns where a record's backup lives.
func (s *FileStore) BackupPath(name string) string {
	return filepath.Join(s.backupDir, name+BackupSuffix)
}

// IsTemplate reports whether name is the reserved template record.
func (s *FileStore) IsTemplate(name string) bool { return name == s.template }

// List returns course_*.json names in the directory, excluding the template.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(s.dir)
		}
		return nil, errors.NewInternal(err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !IsCourseFile(name) || s.IsTemplate(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IsCourseFile reports whether name follows the course_<slug>.json naming.
func IsCourseFile(name string) bool {
	return strings.HasPrefix(name, "course_") && strings.HasSuffix(name, ".json")
}

func (s *FileStore) Selectable(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if !IsCourseFile(name) {
		return errors.NewInvalidRequest("not a course file: " + name)
	}
	if s.IsTemplate(name) {
		return errors.NewInvalidRequest("the template record is never synced: " + name)
	}
	return nil
}

func (s *FileStore) ReadRaw(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return fileio.ReadFile(s.Path(name))
}

func (s *FileStore) Load(name string) (*course.Course, error) {
	data, err := s.ReadRaw(name)
	if err != nil {
		return nil, err
	}
	c, err := course.Parse(data)
	if err != nil {
		return nil, errors.NewParseFailed(name, err)
	}
	return c, nil
}

func (s *FileStore) Save(name string, c *course.Course) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := course.Encode(c)
	if err != nil {
		return errors.NewInternal(err)
	}
	return fileio.WriteAtomic(s.Path(name), data, 0644)
}

// Backup is a no-op for the template record.
func (s *FileStore) Backup(name string) (bool, error) {
	if s.IsTemplate(name) {
		return false, nil
	}
	data, err := s.ReadRaw(name)
	if err != nil {
		return false, err
	}
	return fileio.CreateExclusive(s.BackupPath(name), data, 0644)
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return errors.NewInvalidRequest("invalid course file name: " + name)
	}
	return nil
}
