package drive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/coursesync/internal/config"
	"github.com/hpungsan/coursesync/internal/errors"
)

// fakeAPI serves the subset of the Drive v3 wire format the client uses.
type fakeAPI struct {
	mu       sync.Mutex
	pages    map[string]string // pageToken -> JSON page
	files    map[string]string // id -> metadata JSON
	exports  map[string]string
	media    map[string]string
	status   map[string]int    // path -> forced status
	requests []*http.Request
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:   map[string]string{},
		files:   map[string]string{},
		exports: map[string]string{},
		media:   map[string]string{},
		status:  map[string]int{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/drive/v3/")
	if code, ok := f.status[path]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":{"code":` + strconv.Itoa(code) + `,"message":"` + http.StatusText(code) + `"}}`))
		return
	}

	switch {
	case path == "files":
		page, ok := f.pages[r.URL.Query().Get("pageToken")]
		if !ok {
			http.Error(w, `{"error":{"code":400,"message":"bad token"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(page))
	case strings.HasSuffix(path, "/export"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "files/"), "/export")
		_, _ = w.Write([]byte(f.exports[id]))
	case strings.HasPrefix(path, "files/"):
		id := strings.TrimPrefix(path, "files/")
		if r.URL.Query().Get("alt") == "media" {
			_, _ = w.Write([]byte(f.media[id]))
			return
		}
		meta, ok := f.files[id]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found: ` + id + `"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(meta))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{
		Endpoint:   srv.URL + "/drive/v3/",
		HTTPClient: srv.Client(),
		PageDelay:  200 * time.Millisecond,
	})
	require.NoError(t, err)

	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   Object
		want Object
	}{
		{
			name: "plain file",
			in:   Object{ID: "a", Name: "a.jpg", MimeType: "image/jpeg"},
			want: Object{ID: "a", Name: "a.jpg", MimeType: "image/jpeg"},
		},
		{
			name: "shortcut",
			in:   Object{ID: "s", Name: "link.pdf", MimeType: "application/vnd.google-apps.shortcut", TargetID: "t", TargetMimeType: "application/pdf"},
			want: Object{ID: "t", Name: "link.pdf", MimeType: "application/pdf"},
		},
		{
			name: "shortcut without details",
			in:   Object{ID: "s", MimeType: "application/vnd.google-apps.shortcut"},
			want: Object{ID: "s", MimeType: "application/vnd.google-apps.shortcut"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.in.Resolve())
		})
	}
}

func TestListFolder_PaginatesAndResolvesShortcuts(t *testing.T) {
	api := newFakeAPI()
	api.pages[""] = `{"nextPageToken":"p2","files":[{"id":"img1","name":"a.jpg","mimeType":"image/jpeg"}]}`
	api.pages["p2"] = `{"nextPageToken":"p3","files":[{"id":"sc1","name":"b.pdf","mimeType":"application/vnd.google-apps.shortcut","shortcutDetails":{"targetId":"real1","targetMimeType":"application/pdf"}}]}`
	api.pages["p3"] = `{"files":[{"id":"txt1","name":"c.txt","mimeType":"text/plain"}]}`

	c, slept := newTestClient(t, api)

	got, err := c.ListFolder(context.Background(), "folder-1")
	require.NoError(t, err)
	require.Equal(t, []Object{
		{ID: "img1", Name: "a.jpg", MimeType: "image/jpeg"},
		{ID: "real1", Name: "b.pdf", MimeType: "application/pdf"},
		{ID: "txt1", Name: "c.txt", MimeType: "text/plain"},
	}, got)
	require.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, *slept)

	require.Len(t, api.requests, 3)
	q := api.requests[0].URL.Query()
	require.Equal(t, "'folder-1' in parents and trashed=false", q.Get("q"))
	require.Equal(t, "name", q.Get("orderBy"))
	require.Equal(t, "200", q.Get("pageSize"))
	require.Equal(t, "true", q.Get("supportsAllDrives"))
	require.Equal(t, "true", q.Get("includeItemsFromAllDrives"))
}

func TestListFolder_FailureIsListingFailed(t *testing.T) {
	api := newFakeAPI()
	api.status["files"] = http.StatusForbidden

	c, _ := newTestClient(t, api)

	_, err := c.ListFolder(context.Background(), "folder-1")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrListingFailed), "err = %v", err)

	sErr, ok := errors.As(err)
	require.True(t, ok)
	require.Equal(t, 403, sErr.Status)
	require.Equal(t, "folder-1", sErr.Details["folder_id"])
	require.Contains(t, sErr.Details["excerpt"], "Forbidden")
}

func TestGetMetadata(t *testing.T) {
	api := newFakeAPI()
	api.files["f1"] = `{"id":"f1","name":"講義.pdf","mimeType":"application/pdf","size":"2048"}`
	api.files["sc"] = `{"id":"sc","name":"doc link","mimeType":"application/vnd.google-apps.shortcut","shortcutDetails":{"targetId":"doc1","targetMimeType":"application/vnd.google-apps.document"}}`

	c, _ := newTestClient(t, api)
	ctx := context.Background()

	got, err := c.GetMetadata(ctx, "f1")
	require.NoError(t, err)
	require.Equal(t, Object{ID: "f1", Name: "講義.pdf", MimeType: "application/pdf", Size: 2048}, got)

	got, err = c.GetMetadata(ctx, "sc")
	require.NoError(t, err)
	require.Equal(t, "doc1", got.ID)
	require.Equal(t, "application/vnd.google-apps.document", got.MimeType)

	_, err = c.GetMetadata(ctx, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound), "err = %v", err)
}

func TestGetMetadata_Forbidden(t *testing.T) {
	api := newFakeAPI()
	api.status["files/locked"] = http.StatusForbidden

	c, _ := newTestClient(t, api)

	_, err := c.GetMetadata(context.Background(), "locked")
	require.True(t, errors.Is(err, errors.ErrForbidden), "err = %v", err)
}

func TestExportAndDownload(t *testing.T) {
	api := newFakeAPI()
	api.exports["doc1"] = "第一段\n第二段\n"
	api.media["pdf1"] = "%PDF-1.4 binary"

	c, _ := newTestClient(t, api)
	ctx := context.Background()

	text, err := c.ExportText(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "第一段\n第二段\n", text)

	b, err := c.DownloadBinary(ctx, "pdf1")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 binary", string(b))

	var exportReq *http.Request
	for _, r := range api.requests {
		if strings.HasSuffix(r.URL.Path, "/export") {
			exportReq = r
		}
	}
	require.NotNil(t, exportReq)
	require.Equal(t, "text/plain", exportReq.URL.Query().Get("mimeType"))
}

func TestExport_Forbidden(t *testing.T) {
	api := newFakeAPI()
	api.status["files/doc1/export"] = http.StatusForbidden

	c, _ := newTestClient(t, api)

	_, err := c.ExportText(context.Background(), "doc1")
	require.True(t, errors.Is(err, errors.ErrForbidden), "err = %v", err)
}

func TestNew_RequiresCredentialOrClient(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.True(t, errors.Is(err, errors.ErrConfig), "err = %v", err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := FromConfig(context.Background(), cfg, nil)
	require.True(t, errors.Is(err, errors.ErrConfig), "err = %v", err)

	api := newFakeAPI()
	api.files["f1"] = `{"id":"f1","name":"a.txt","mimeType":"text/plain"}`
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg.APIKey = "test-key"
	cfg.DriveEndpoint = srv.URL + "/drive/v3/"
	c, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)

	got, err := c.GetMetadata(context.Background(), "f1")
	require.NoError(t, err)
	require.Equal(t, "a.txt", got.Name)
	require.Len(t, api.requests, 1)
	require.Equal(t, "test-key", api.requests[0].URL.Query().Get("key"))
}

func TestListFolder_EscapesFolderID(t *testing.T) {
	api := newFakeAPI()
	api.pages[""] = `{"files":[]}`
	c, _ := newTestClient(t, api)

	_, err := c.ListFolder(context.Background(), `it's\here`)
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	require.Equal(t, `'it\'s\\here' in parents and trashed=false`, api.requests[0].URL.Query().Get("q"))
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
