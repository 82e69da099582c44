// Package drivetest provides an in-memory drive.Remote for tests.
package drivetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/errors"
)

// Fake is an in-memory drive.Remote. Objects are stored unresolved; listings
// and metadata lookups resolve shortcuts the way the real client does.
type Fake struct {
	mu       sync.Mutex
	objects  map[string]drive.Object
	folders  map[string][]drive.Object
	exports  map[string]string
	binaries map[string][]byte
	errs     map[string]error // "<method>:<id>" -> error
	calls    []string
}

var _ drive.Remote = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		objects:  map[string]drive.Object{},
		folders:  map[string][]drive.Object{},
		exports:  map[string]string{},
		binaries: map[string][]byte{},
		errs:     map[string]error{},
	}
}

// AddObject registers an object for GetMetadata.
func (f *Fake) AddObject(o drive.Object) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[o.ID] = o
	return f
}

// AddFolder registers the children of a folder. Children are also registered as objects.
func (f *Fake) AddFolder(folderID string, children ...drive.Object) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders[folderID] = append(f.folders[folderID], children...)
	for _, c := range children {
		f.objects[c.ID] = c
	}
	return f
}

// SetExport sets the plain-text export of a document.
func (f *Fake) SetExport(id, text string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports[id] = text
	return f
}

// SetBinary sets the downloadable content of an object.
func (f *Fake) SetBinary(id string, b []byte) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binaries[id] = b
	return f
}

// FailListing makes ListFolder(folderID) fail with the given status and body.
func (f *Fake) FailListing(folderID string, status int, body string) *Fake {
	return f.Fail("list", folderID, errors.NewListingFailed(folderID, status, body))
}

// Fail makes method ("metadata", "list", "export", "download") fail for id.
func (f *Fake) Fail(method, id string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method+":"+id] = err
	return f
}

// Calls returns the calls made so far as "<method>:<id>".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts calls of one method, or of all methods when method is "".
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if method == "" || strings.HasPrefix(c, method+":") {
			n++
		}
	}
	return n
}

func (f *Fake) record(method, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + ":" + id
	f.calls = append(f.calls, key)
	return f.errs[key]
}

func (f *Fake) GetMetadata(ctx context.Context, id string) (drive.Object, error) {
	if err := f.record("metadata", id); err != nil {
		return drive.Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return drive.Object{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return drive.Object{}, errors.NewNotFound(id)
	}
	return o.Resolve(), nil
}

func (f *Fake) ListFolder(ctx context.Context, folderID string) ([]drive.Object, error) {
	if err := f.record("list", folderID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	children, ok := f.folders[folderID]
	if !ok {
		return nil, errors.NewListingFailed(folderID, 404, fmt.Sprintf(`{"error":{"code":404,"message":"File not found: %s."}}`, folderID))
	}
	out := make([]drive.Object, len(children))
	for i, c := range children {
		out[i] = c.Resolve()
	}
	return out, nil
}

func (f *Fake) ExportText(ctx context.Context, id string) (string, error) {
	if err := f.record("export", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.exports[id]
	if !ok {
		return "", errors.NewNotFound(id)
	}
	return text, nil
}

func (f *Fake) DownloadBinary(ctx context.Context, id string) ([]byte, error) {
	if err := f.record("download", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.binaries[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return append([]byte(nil), b...), nil
}
