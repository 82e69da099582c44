package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/store"
)

// ValidateCoursePath checks a course file path supplied by a caller that may
// only touch the course directories in allowedDirs. The file must be named
// course_*.json, sit directly in an allowed directory (no subdirectories),
// exist, and not be a symlink.
func ValidateCoursePath(path string, allowedDirs []string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !store.IsCourseFile(filepath.Base(cleaned)) {
		return errors.NewInvalidRequest("path must name a course_*.json file")
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	dirs, err := resolveDirs(allowedDirs)
	if err != nil {
		return err
	}
	parentDir := filepath.Dir(absPath)
	if !isDirectlyInAllowedDir(parentDir, dirs) {
		return errors.NewInvalidRequest(fmt.Sprintf("file must be directly in a course directory; allowed: %v", dirs))
	}

	info, err := os.Lstat(absPath)
	if os.IsNotExist(err) {
		return errors.NewNotFound(path)
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// resolveDirs returns the allowed directories as absolute, symlink-resolved paths.
func resolveDirs(dirs []string) ([]string, error) {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid course directory: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve course directory: %v", err))
			}
			abs = resolved
		}
		out = append(out, abs)
	}
	return out, nil
}

func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// containsTraversal reports whether any path component is "..".
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
