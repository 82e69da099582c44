package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/errors"
)

// DocResult is the outcome of synchronizing one document entry.
type DocResult struct {
	Key     string `json:"key"`
	ID      string `json:"id,omitempty"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// SyncDocs returns a synchronized copy of docs. Entries that are manual or
// carry no id are copied unchanged, as are entries whose fetch fails.
func (s *Syncer) SyncDocs(ctx context.Context, docs course.Object[*course.DocEntry]) (course.Object[*course.DocEntry], []DocResult) {
	return s.syncDocs(ctx, nil, "", docs)
}

func (s *Syncer) syncDocs(ctx context.Context, r *run, file string, docs course.Object[*course.DocEntry]) (course.Object[*course.DocEntry], []DocResult) {
	var out course.Object[*course.DocEntry]
	results := []DocResult{}

	for _, key := range docs.Keys() {
		entry, _ := docs.Get(key)
		res := DocResult{Key: key}
		if !entry.Remote() {
			out.Set(key, entry.Clone())
			res.Outcome = db.OutcomeUnchanged
		} else {
			res.ID = entry.ID
			synced, err := s.syncDoc(ctx, key, entry)
			if err != nil {
				out.Set(key, entry.Clone())
				res.Outcome = db.OutcomeFetchFailed
				res.Detail = err.Error()
			} else {
				out.Set(key, synced)
				res.Outcome = db.OutcomeSynced
			}
		}
		results = append(results, res)
		r.event(db.Event{
			Course:   file,
			Scope:    db.ScopeDoc,
			Key:      key,
			RemoteID: res.ID,
			Outcome:  res.Outcome,
			Detail:   res.Detail,
		})
	}
	return out, results
}

func (s *Syncer) syncDoc(ctx context.Context, key string, entry *course.DocEntry) (*course.DocEntry, error) {
	log := s.log.With("doc", key, "file_id", entry.ID)
	log.Info("syncing document")

	meta, err := s.remote.GetMetadata(ctx, entry.ID)
	if err != nil {
		log.Warn("document metadata fetch failed, keeping cached content", "error", err)
		return nil, err
	}
	content, err := s.docContent(ctx, meta.ID, meta.Name, meta.MimeType)
	if err != nil {
		log.Warn("document content fetch failed, keeping cached content", "mime_type", meta.MimeType, "error", err)
		return nil, err
	}

	out := entry.Clone()
	out.Content = course.StringPtr(strings.TrimSpace(content))
	out.Name = meta.Name
	out.MimeType = meta.MimeType
	out.LastSynced = course.StringPtr(course.Timestamp(s.now()))
	out.DownloadURL = course.ViewURL(meta.ID)
	log.Info("synced document", "mime_type", meta.MimeType, "chars", len(*out.Content))
	return out, nil
}

// docContent returns the text stored for a document. Exported documents that
// are refused with a permission error are retried exactly once through the
// download path.
func (s *Syncer) docContent(ctx context.Context, id, name, mime string) (string, error) {
	switch {
	case mime == course.MimeGoogleDoc:
		text, err := s.remote.ExportText(ctx, id)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, errors.ErrForbidden) {
			return "", err
		}
		s.log.Warn("document export forbidden, trying download", "file_id", id)
		data, err := s.remote.DownloadBinary(ctx, id)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case strings.HasPrefix(mime, "text/"):
		data, err := s.remote.DownloadBinary(ctx, id)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case mime == course.MimePDF:
		return fmt.Sprintf("文件類型: %s\n檔案格式: PDF\n\n請使用下方的 PDF 檢視器或下載檢視。\n下載連結: %s", name, course.ViewURL(id)), nil
	default:
		return fmt.Sprintf("文件類型: %s\n檔案格式: %s\n\n此檔案需要下載檢視，無法直接顯示文字內容。\n下載連結: %s", name, mime, course.ViewURL(id)), nil
	}
}
