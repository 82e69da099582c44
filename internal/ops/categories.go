package ops

import (
	"strings"

	"github.com/hpungsan/coursesync/internal/course"
)

// Material categories with a mime-type allow-list. Categories outside these
// sets accept any non-empty mime type.
var (
	imageCategories = map[string]bool{"workbook_photos": true, "photos": true, "blackboard": true, "scripts_photos": true}
	audioCategories = map[string]bool{"songs_audio": true}
	pdfCategories   = map[string]bool{"syllabus": true, "worksheet": true, "play_scripts": true, "sheet_music": true, "workbook_pdfs": true}
)

// VideoCategory holds youtube entries.
const VideoCategory = "videos"

// Accepts reports whether a listed object of mimeType belongs in category.
func Accepts(category, mimeType string) bool {
	if mimeType == "" {
		return false
	}
	switch {
	case imageCategories[category]:
		return strings.HasPrefix(mimeType, "image/") ||
			(category == "workbook_photos" && mimeType == course.MimePDF)
	case audioCategories[category]:
		return strings.HasPrefix(mimeType, "audio/") || mimeType == course.MimeAudio
	case pdfCategories[category]:
		return mimeType == course.MimePDF || mimeType == course.MimeGoogleDoc
	default:
		return true
	}
}

// IsPDFCategory reports whether category holds PDF-bearing documents.
func IsPDFCategory(category string) bool { return pdfCategories[category] }

// IsKnownCategory reports whether category is one the site renders.
func IsKnownCategory(category string) bool {
	return imageCategories[category] || audioCategories[category] || pdfCategories[category] || category == VideoCategory
}
