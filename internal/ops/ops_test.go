package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/drive/drivetest"
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/pdfcache"
	"github.com/hpungsan/coursesync/internal/store"
)

// Drive ids are 28-50 characters; video ids are 11.
const (
	folderID  = "1FolderAAAAAAAAAAAAAAAAAAAAAA"
	folderID2 = "1FolderBBBBBBBBBBBBBBBBBBBBBB"
	fileID    = "1FileAAAAAAAAAAAAAAAAAAAAAAAA"
	docID     = "1DocAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	imageID   = "1ImageAAAAAAAAAAAAAAAAAAAAAAA"
	textID    = "1TextAAAAAAAAAAAAAAAAAAAAAAAA"
	videoID   = "dQw4w9WgXcQ"
)

var fixedNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

const fixedStamp = "2024-03-01T08:00:00.000Z"

// testEnv is a course directory, a fake drive, and a Syncer wired to both.
type testEnv struct {
	dir    string
	store  *store.FileStore
	cache  *pdfcache.Cache
	remote *drivetest.Fake
	syncer *Syncer
	logs   *observer.ObservedLogs
	sleeps []time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		dir:    filepath.Join(root, "course-configs"),
		remote: drivetest.New(),
	}
	require.NoError(t, os.MkdirAll(env.dir, 0755))

	log, logs := logger.NewObserved(zapcore.DebugLevel)
	env.logs = logs
	env.store = store.New(env.dir, filepath.Join(root, "course-original"), "course_template.json")
	env.cache = pdfcache.NewCache(filepath.Join(root, "pdf-text-cache"), log)
	env.syncer = NewSyncer(SyncerOptions{
		Remote:       env.remote,
		Store:        env.store,
		Cache:        env.cache,
		Logger:       log,
		ExtractDelay: 500 * time.Millisecond,
	})
	env.syncer.now = func() time.Time { return fixedNow }
	env.syncer.sleep = func(_ context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return nil
	}
	return env
}

func (e *testEnv) write(t *testing.T, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, name), []byte(data), 0644))
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(e.dir, name))
	require.NoError(t, err)
	return string(b)
}

// warnings returns the warn-level entries with the given message.
func (e *testEnv) warnings(msg string) []observer.LoggedEntry {
	return e.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage(msg).All()
}

// courseJSON builds a record with course tags 一年級, 上學期, 第一單元 and 藝術.
func courseJSON(material, docs string) string {
	if material == "" {
		material = "{}"
	}
	if docs == "" {
		docs = "{}"
	}
	return `{
  "slug": "1a-art",
  "hero_image": "",
  "metadata": {},
  "i18n": {
    "zh-TW": {"title": "美術", "grade": "一年級", "semester": "上學期", "unit": "第一單元", "domain": "藝術"}
  },
  "material": ` + material + `,
  "docs": ` + docs + `
}
`
}

func parseCourse(t *testing.T, data string) *course.Course {
	t.Helper()
	c, err := course.Parse([]byte(data))
	require.NoError(t, err)
	return c
}

func encodeJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := course.MarshalIndent(v)
	require.NoError(t, err)
	return string(b)
}

func image(id, name string) drive.Object {
	return drive.Object{ID: id, Name: name, MimeType: "image/jpeg"}
}

func courseTags() []string {
	return []string{"一年級", "上學期", "第一單元", "藝術"}
}
