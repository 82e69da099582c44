// Package ops implements the coursesync operations: synchronization of
// course records against the drive, schema migration, validation, backups,
// and read access to the sync journal and PDF text cache. The CLI and the
// MCP server are thin layers over these functions.
package ops

import (
	"github.com/hpungsan/coursesync/internal/errors"
)

// Operation kinds recorded in the sync journal.
const (
	KindSync = "sync"
)

// CourseGlob describes the files batch operations pick up.
const CourseGlob = "course_*.json"

// errNoCourses is returned by batch operations that found nothing to do.
func errNoCourses() error {
	return errors.NewNotFound(CourseGlob)
}
