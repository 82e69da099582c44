package pdfcache

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/drive/drivetest"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/logger"
)

// buildPDF assembles a one-page PDF whose content stream is contents.
func buildPDF(contents string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(contents)+1, contents),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestParsePDF(t *testing.T) {
	text, pages, err := ParsePDF(buildPDF("BT /F1 12 Tf 72 712 Td (Hello Workbook) Tj ET"))
	require.NoError(t, err)
	require.Equal(t, 1, pages)
	require.Contains(t, text, "Hello Workbook")
}

func TestParsePDF_NoTextLayer(t *testing.T) {
	text, pages, err := ParsePDF(buildPDF("0 0 m 100 100 l S"))
	require.NoError(t, err)
	require.Equal(t, 1, pages)
	require.Empty(t, text)
}

func TestParsePDF_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("<html>nope</html>")},
		{"truncated", buildPDF("BT (x) Tj ET")[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParsePDF(tt.data)
			require.Error(t, err)
		})
	}
}

func TestExtractText(t *testing.T) {
	const (
		docID     = "doc-1"
		pdfID     = "pdf-1"
		scanID    = "scan-1"
		brokenID  = "broken-1"
		imageID   = "image-1"
		missingID = "missing-1"
	)
	remote := drivetest.New().
		AddObject(drive.Object{ID: docID, Name: "劇本", MimeType: "application/vnd.google-apps.document"}).
		SetExport(docID, "\n  第一幕  \n").
		AddObject(drive.Object{ID: pdfID, Name: "worksheet.pdf", MimeType: "application/pdf"}).
		SetBinary(pdfID, buildPDF("BT /F1 12 Tf 72 712 Td (Worksheet One) Tj ET")).
		AddObject(drive.Object{ID: scanID, Name: "scan.pdf", MimeType: "application/pdf"}).
		SetBinary(scanID, buildPDF("0 0 m 10 10 l S")).
		AddObject(drive.Object{ID: brokenID, Name: "broken.pdf", MimeType: "application/pdf"}).
		SetBinary(brokenID, []byte("%PDF-1.4 garbage")).
		AddObject(drive.Object{ID: imageID, Name: "a.jpg", MimeType: "image/jpeg"})

	tests := []struct {
		name     string
		id       string
		wantText string
		wantOK   bool
		wantWarn bool
		reason   string
	}{
		{name: "document export", id: docID, wantText: "第一幕", wantOK: true},
		{name: "native pdf", id: pdfID, wantText: "Worksheet One", wantOK: true},
		{name: "scanned pdf", id: scanID, reason: "no_text_layer"},
		{name: "malformed pdf", id: brokenID, wantWarn: true},
		{name: "unsupported type", id: imageID, reason: "unsupported_type"},
		{name: "metadata failure", id: missingID, wantWarn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := logger.NewObserved(zapcore.InfoLevel)
			ex := NewExtractor(remote, log)

			text, ok := ex.ExtractText(context.Background(), tt.id, tt.name)

			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Contains(t, text, tt.wantText)
			} else {
				require.Empty(t, text)
			}
			warns := logs.FilterLevelExact(zapcore.WarnLevel).Len()
			if tt.wantWarn {
				require.Equal(t, 1, warns)
			} else {
				require.Zero(t, warns, "expected no warnings")
			}
			if tt.reason != "" {
				entries := logs.FilterField(zapcore.Field{Key: "reason", Type: zapcore.StringType, String: tt.reason}).All()
				require.Len(t, entries, 1)
				require.Equal(t, zapcore.InfoLevel, entries[0].Level)
			}
		})
	}
}

func TestExtractText_ForbiddenDownload(t *testing.T) {
	remote := drivetest.New().
		AddObject(drive.Object{ID: "p", Name: "p.pdf", MimeType: "application/pdf"}).
		Fail("download", "p", errors.NewForbidden("p"))
	log, logs := logger.NewObserved(zapcore.InfoLevel)

	_, ok := NewExtractor(remote, log).ExtractText(context.Background(), "p", "p.pdf")

	require.False(t, ok)
	entries := logs.FilterMessage("pdf text extraction failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "download", entries[0].ContextMap()["stage"])
}
