// Package fileio holds the whole-file write primitives shared by the course
// store and the PDF text cache.
package fileio

import (
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/coursesync/internal/errors"
)

// WriteAtomic replaces path with data. The content goes to a temp file in the
// same directory, is synced, then renamed over path, so readers only ever see
// the old or the new complete file. The parent directory is created if missing.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create directory: %w", err))
	}

	// Check if destination is a symlink (os.Rename would replace the link, not the target)
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("cannot write to symlink: " + path)
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create temp file: %w", err))
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close temp file: %w", err))
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err))
	}
	success = true
	return nil
}

// CreateExclusive writes data to path only if path does not exist yet.
// It reports created=false, with no error, when the file is already there.
func CreateExclusive(path string, data []byte, perm os.FileMode) (created bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, errors.NewInternal(fmt.Errorf("failed to create directory: %w", err))
	}

	file, err := openFileNoFollow(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		if stderrors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return false, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return false, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ReadFile reads a whole file without following a symlink in the final component.
// A missing file is NOT_FOUND.
func ReadFile(path string) ([]byte, error) {
	file, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// Exists reports whether path exists (without following a final symlink).
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
