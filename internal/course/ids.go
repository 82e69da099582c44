package course

import (
	"regexp"
	"strings"
	"time"
)

// Remote mime types that change how an object is handled.
const (
	MimePDF       = "application/pdf"
	MimeGoogleDoc = "application/vnd.google-apps.document"
	MimeShortcut  = "application/vnd.google-apps.shortcut"
	MimeAudio     = "application/vnd.google-apps.audio"
	MimeFolder    = "application/vnd.google-apps.folder"
)

// TimeLayout is the ISO-8601 UTC form, with milliseconds, used for lastSynced stamps.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var (
	driveIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{28,50}$`)
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// IsDriveID reports whether id has the remote object identifier format.
func IsDriveID(id string) bool { return driveIDPattern.MatchString(id) }

// IsVideoID reports whether id has the video identifier format.
func IsVideoID(id string) bool { return videoIDPattern.MatchString(id) }

// Timestamp formats t for a lastSynced field.
func Timestamp(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ViewURL is the canonical browser link for a remote object.
func ViewURL(id string) string { return "https://drive.google.com/file/d/" + id + "/view" }

// PreviewURL is the embeddable preview link for a remote object.
func PreviewURL(id string) string { return "https://drive.google.com/file/d/" + id + "/preview" }

// StripExt removes everything from the last '.' on.
func StripExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}
