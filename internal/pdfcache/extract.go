// Package pdfcache extracts text from remote PDF-like objects and keeps it in
// one side file per course, apart from the course record.
package pdfcache

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/logger"
)

// Extractor pulls plain text out of remote documents and PDFs.
type Extractor struct {
	remote drive.Remote
	log    *logger.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(remote drive.Remote, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{remote: remote, log: log}
}

// ExtractText returns the trimmed text of a remote object. Editable documents
// are exported as plain text; native PDFs are downloaded and parsed.
//
// ok is false when there is nothing to cache: an unsupported type, a PDF with
// no text layer, or any failure. Failures are logged as warnings; an empty text
// layer is logged at info level since scanned PDFs are expected.
func (e *Extractor) ExtractText(ctx context.Context, id, name string) (text string, ok bool) {
	log := e.log.With("file_id", id, "name", name)

	meta, err := e.remote.GetMetadata(ctx, id)
	if err != nil {
		log.Warn("pdf text extraction failed", "stage", "metadata", "error", err)
		return "", false
	}

	switch meta.MimeType {
	case course.MimeGoogleDoc:
		exported, err := e.remote.ExportText(ctx, id)
		if err != nil {
			log.Warn("pdf text extraction failed", "stage", "export", "error", err)
			return "", false
		}
		text = strings.TrimSpace(exported)
		if text == "" {
			log.Info("no text extracted", "reason", "empty_export")
			return "", false
		}
		log.Info("extracted document text", "chars", len([]rune(text)))
		return text, true

	case course.MimePDF:
		b, err := e.remote.DownloadBinary(ctx, id)
		if err != nil {
			log.Warn("pdf text extraction failed", "stage", "download", "error", err)
			return "", false
		}
		text, pages, err := ParsePDF(b)
		if err != nil {
			log.Warn("pdf text extraction failed", "stage", "parse", "error", err)
			return "", false
		}
		if text == "" {
			log.Info("no text extracted", "reason", "no_text_layer", "pages", pages)
			return "", false
		}
		log.Info("extracted pdf text", "chars", len([]rune(text)), "pages", pages, "bytes", len(b))
		return text, true

	default:
		log.Info("no text extracted", "reason", "unsupported_type", "mime_type", meta.MimeType)
		return "", false
	}
}

// ParsePDF extracts the text layer of a PDF, page by page, joined by blank
// lines and trimmed. Unreadable pages are skipped. Malformed input is an error.
func ParsePDF(content []byte) (text string, pages int, err error) {
	if len(content) == 0 {
		return "", 0, fmt.Errorf("empty PDF content")
	}
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}
	return strings.TrimSpace(sb.String()), pages, nil
}
