package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestSyncError_Error(t *testing.T) {
	err := &SyncError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "not found: abc",
	}

	expected := "NOT_FOUND: not found: abc"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConfig(t *testing.T) {
	err := NewConfig("GOOGLE_API_KEY is not set")

	if err.Code != ErrConfig {
		t.Errorf("Code = %q, want %q", err.Code, ErrConfig)
	}
	if err.Message != "GOOGLE_API_KEY is not set" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("file-1")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "file-1" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "file-1")
	}
}

func TestNewForbidden(t *testing.T) {
	err := NewForbidden("file-1")

	if err.Code != ErrForbidden {
		t.Errorf("Code = %q, want %q", err.Code, ErrForbidden)
	}
	if err.Status != 403 {
		t.Errorf("Status = %d, want 403", err.Status)
	}
}

func TestNewListingFailed(t *testing.T) {
	err := NewListingFailed("folder-1", 404, `{"error":"File not found"}`)

	if err.Code != ErrListingFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrListingFailed)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["folder_id"] != "folder-1" {
		t.Errorf("Details[folder_id] = %v", err.Details["folder_id"])
	}
	if !strings.Contains(err.Message, "404") || !strings.Contains(err.Message, "File not found") {
		t.Errorf("Message = %q, want status and excerpt", err.Message)
	}
}

func TestNewListingFailed_TruncatesBody(t *testing.T) {
	body := strings.Repeat("x", 1000)
	err := NewListingFailed("folder-1", 500, body)

	excerpt, _ := err.Details["excerpt"].(string)
	if len(excerpt) != MaxExcerpt+len("...") {
		t.Errorf("excerpt length = %d, want %d", len(excerpt), MaxExcerpt+3)
	}
}

func TestExcerpt_KeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("教", 100) // 300 bytes
	got := Excerpt(body)

	trimmed := strings.TrimSuffix(got, "...")
	if len(trimmed)%3 != 0 {
		t.Errorf("excerpt split a rune: %d bytes", len(trimmed))
	}
	if len(trimmed) > MaxExcerpt {
		t.Errorf("excerpt too long: %d", len(trimmed))
	}
}

func TestNewFetchFailed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   string
	}{
		{name: "status only", status: 500, want: "fetch id-1 failed: status 500"},
		{name: "error only", err: fmt.Errorf("boom"), want: "fetch id-1 failed: boom"},
		{name: "neither", want: "fetch id-1 failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFetchFailed("id-1", tt.status, tt.err)
			if err.Message != tt.want {
				t.Errorf("Message = %q, want %q", err.Message, tt.want)
			}
			if err.Code != ErrFetchFailed {
				t.Errorf("Code = %q, want %q", err.Code, ErrFetchFailed)
			}
		})
	}
}

func TestNewParseFailed(t *testing.T) {
	err := NewParseFailed("course_a.json", fmt.Errorf("unexpected EOF"))

	if err.Code != ErrParseFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrParseFailed)
	}
	if err.Details["source"] != "course_a.json" {
		t.Errorf("Details[source] = %v", err.Details["source"])
	}
}

func TestNewSchemaViolation(t *testing.T) {
	err := NewSchemaViolation("files", "unknown root key: files")

	if err.Code != ErrSchemaViolation {
		t.Errorf("Code = %q, want %q", err.Code, ErrSchemaViolation)
	}
	if err.Details["field"] != "files" {
		t.Errorf("Details[field] = %v", err.Details["field"])
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("x")

	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = false, want true")
	}
	if Is(err, ErrForbidden) {
		t.Error("Is(err, ErrForbidden) = true, want false")
	}
	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is(plain, ErrNotFound) = true, want false")
	}
}

func TestIs_Wrapped(t *testing.T) {
	err := fmt.Errorf("syncing entry: %w", NewListingFailed("f", 403, "denied"))

	if !Is(err, ErrListingFailed) {
		t.Error("Is(wrapped, ErrListingFailed) = false, want true")
	}
	sErr, ok := As(err)
	if !ok {
		t.Fatal("As(wrapped) = false, want true")
	}
	if sErr.Status != 403 {
		t.Errorf("Status = %d, want 403", sErr.Status)
	}
}
