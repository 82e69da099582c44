package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/errors"
)

func docsOf(t *testing.T, data string) course.Object[*course.DocEntry] {
	t.Helper()
	return parseCourse(t, courseJSON("", data)).Docs
}

func doc(t *testing.T, docs course.Object[*course.DocEntry], key string) *course.DocEntry {
	t.Helper()
	d, ok := docs.Get(key)
	require.True(t, ok, "doc %s missing", key)
	return d
}

func TestSyncDocs_UntouchedEntries(t *testing.T) {
	env := newTestEnv(t)
	in := docsOf(t, `{
		"notes": {"type": "manual", "id": "`+docID+`", "title": "備註", "content": "手寫內容", "lastSynced": null},
		"story": {"type": "google-doc", "id": "", "title": "故事稿", "content": null, "lastSynced": null, "custom": [1, 2]},
		"plain": {"title": "no type no id"}
	}`)
	before := encodeJSON(t, in)

	out, results := env.syncer.SyncDocs(context.Background(), in)

	require.Equal(t, before, encodeJSON(t, out))
	require.Zero(t, env.remote.CallCount(""))
	for _, r := range results {
		require.Equal(t, db.OutcomeUnchanged, r.Outcome)
	}
	require.NotSame(t, doc(t, in, "notes"), doc(t, out, "notes"))
}

func TestSyncDocs_ExportedDocument(t *testing.T) {
	env := newTestEnv(t)
	env.remote.AddObject(drive.Object{ID: docID, Name: "課程介紹", MimeType: course.MimeGoogleDoc})
	env.remote.SetExport(docID, "  本課程介紹西遊記。 \n\n")
	in := docsOf(t, `{"course_description": {"type": "google-doc", "id": "`+docID+`", "title": "課程介紹", "content": null, "lastSynced": null}}`)

	out, results := env.syncer.SyncDocs(context.Background(), in)

	d := doc(t, out, "course_description")
	require.NotNil(t, d.Content)
	require.Equal(t, "本課程介紹西遊記。", *d.Content)
	require.Equal(t, "課程介紹", d.Name)
	require.Equal(t, course.MimeGoogleDoc, d.MimeType)
	require.Equal(t, fixedStamp, *d.LastSynced)
	require.Equal(t, course.ViewURL(docID), d.DownloadURL)
	require.Equal(t, db.OutcomeSynced, results[0].Outcome)
	require.Nil(t, doc(t, in, "course_description").Content, "input must not change")

	want := `{
  "type": "google-doc",
  "id": "` + docID + `",
  "title": "課程介紹",
  "content": "本課程介紹西遊記。",
  "lastSynced": "` + fixedStamp + `",
  "name": "課程介紹",
  "mimeType": "application/vnd.google-apps.document",
  "downloadUrl": "https://drive.google.com/file/d/` + docID + `/view"
}`
	require.JSONEq(t, want, encodeJSON(t, d))
}

func TestSyncDocs_ForbiddenExportRetriesDownloadOnce(t *testing.T) {
	tests := []struct {
		name      string
		download  []byte
		failDL    bool
		outcome   string
		wantText  string
		downloads int
	}{
		{"download succeeds", []byte("劇本全文\n"), false, db.OutcomeSynced, "劇本全文", 1},
		{"download fails", nil, true, db.OutcomeFetchFailed, "舊內容", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.remote.AddObject(drive.Object{ID: docID, Name: "劇本", MimeType: course.MimeGoogleDoc})
			env.remote.Fail("export", docID, errors.NewForbidden(docID))
			if tt.failDL {
				env.remote.Fail("download", docID, errors.NewForbidden(docID))
			} else {
				env.remote.SetBinary(docID, tt.download)
			}
			in := docsOf(t, `{"play_script": {"type": "google-doc", "id": "`+docID+`", "title": "劇本", "content": "舊內容", "lastSynced": "2023-01-01T00:00:00.000Z"}}`)
			before := encodeJSON(t, in)

			out, results := env.syncer.SyncDocs(context.Background(), in)

			require.Equal(t, tt.outcome, results[0].Outcome)
			require.Equal(t, tt.wantText, *doc(t, out, "play_script").Content)
			require.Equal(t, 1, env.remote.CallCount("export"))
			require.Equal(t, tt.downloads, env.remote.CallCount("download"))
			require.Len(t, env.warnings("document export forbidden, trying download"), 1)
			if tt.failDL {
				require.Equal(t, before, encodeJSON(t, out))
			}
		})
	}
}

func TestSyncDocs_ExportErrorOtherThanForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.remote.AddObject(drive.Object{ID: docID, Name: "故事稿", MimeType: course.MimeGoogleDoc})
	env.remote.Fail("export", docID, errors.NewFetchFailed(docID, 500, nil))
	in := docsOf(t, `{"story": {"type": "google-doc", "id": "`+docID+`", "title": "故事稿", "content": "舊", "lastSynced": null}}`)
	before := encodeJSON(t, in)

	out, results := env.syncer.SyncDocs(context.Background(), in)

	require.Equal(t, before, encodeJSON(t, out))
	require.Equal(t, db.OutcomeFetchFailed, results[0].Outcome)
	require.Zero(t, env.remote.CallCount("download"), "only a permission error falls back")
}

func TestSyncDocs_ContentByType(t *testing.T) {
	tests := []struct {
		name string
		obj  drive.Object
		bin  []byte
		want string
	}{
		{
			name: "text file is downloaded",
			obj:  drive.Object{ID: docID, Name: "story.txt", MimeType: "text/plain"},
			bin:  []byte("  從前從前  "),
			want: "從前從前",
		},
		{
			name: "pdf gets a placeholder",
			obj:  drive.Object{ID: docID, Name: "劇本.pdf", MimeType: course.MimePDF},
			want: "文件類型: 劇本.pdf\n檔案格式: PDF\n\n請使用下方的 PDF 檢視器或下載檢視。\n下載連結: https://drive.google.com/file/d/" + docID + "/view",
		},
		{
			name: "other binary gets a download placeholder",
			obj:  drive.Object{ID: docID, Name: "slides.pptx", MimeType: "application/vnd.ms-powerpoint"},
			want: "文件類型: slides.pptx\n檔案格式: application/vnd.ms-powerpoint\n\n此檔案需要下載檢視，無法直接顯示文字內容。\n下載連結: https://drive.google.com/file/d/" + docID + "/view",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.remote.AddObject(tt.obj)
			if tt.bin != nil {
				env.remote.SetBinary(docID, tt.bin)
			}
			in := docsOf(t, `{"story": {"type": "google-doc", "id": "`+docID+`", "title": "故事稿", "content": null, "lastSynced": null}}`)

			out, _ := env.syncer.SyncDocs(context.Background(), in)

			d := doc(t, out, "story")
			require.NotNil(t, d.Content)
			require.Equal(t, tt.want, *d.Content)
			require.Equal(t, tt.obj.MimeType, d.MimeType)
		})
	}
}

func TestSyncDocs_MetadataFailureKeepsEntry(t *testing.T) {
	env := newTestEnv(t)
	in := docsOf(t, `{"story": {"type": "google-doc", "id": "`+docID+`", "title": "故事稿", "content": "舊內容", "lastSynced": "2023-01-01T00:00:00.000Z", "name": "故事稿"}}`)
	before := encodeJSON(t, in)

	out, results := env.syncer.SyncDocs(context.Background(), in)

	require.Equal(t, before, encodeJSON(t, out))
	require.Equal(t, db.OutcomeFetchFailed, results[0].Outcome)
	require.Len(t, env.warnings("document metadata fetch failed, keeping cached content"), 1)
}
