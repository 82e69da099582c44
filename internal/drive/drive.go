// Package drive is the remote content client: metadata, paginated folder
// listings, plain-text export and binary download against the Drive v3 API.
package drive

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hpungsan/coursesync/internal/config"
	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/logger"
)

const (
	listFields     = "nextPageToken, files(id, name, mimeType, size, shortcutDetails)"
	metadataFields = "id, name, mimeType, size, shortcutDetails"
	pageSize       = 200

	// MaxDownloadBytes bounds a single binary download.
	MaxDownloadBytes = 64 << 20
)

// Object is the metadata of one remote object.
type Object struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size,omitempty"`

	// Set only on shortcuts.
	TargetID       string `json:"targetId,omitempty"`
	TargetMimeType string `json:"targetMimeType,omitempty"`
}

// IsShortcut reports whether o is an indirection to another object.
func (o Object) IsShortcut() bool { return o.MimeType == course.MimeShortcut }

// Resolve returns the object a shortcut points at, keeping the shortcut's name.
// Non-shortcuts and shortcuts without target details are returned unchanged.
func (o Object) Resolve() Object {
	if !o.IsShortcut() {
		return o
	}
	out := o
	if o.TargetID != "" {
		out.ID = o.TargetID
	}
	if o.TargetMimeType != "" {
		out.MimeType = o.TargetMimeType
	}
	out.TargetID, out.TargetMimeType = "", ""
	return out
}

// Remote is the contract the synchronizers depend on. Objects returned by
// GetMetadata and ListFolder are already shortcut-resolved.
type Remote interface {
	GetMetadata(ctx context.Context, id string) (Object, error)
	ListFolder(ctx context.Context, folderID string) ([]Object, error)
	ExportText(ctx context.Context, id string) (string, error)
	DownloadBinary(ctx context.Context, id string) ([]byte, error)
}

// Options configures a Client.
type Options struct {
	APIKey string
	// Endpoint overrides the API base URL, e.g. "http://127.0.0.1:8080/drive/v3/".
	Endpoint string
	// HTTPClient replaces the default transport. Credentials are not added to a caller-supplied client.
	HTTPClient *http.Client
	// PageDelay is the pause between listing pages.
	PageDelay time.Duration
	Logger    *logger.Logger
}

// Client implements Remote over the Drive v3 API.
type Client struct {
	svc       *drivev3.Service
	pageDelay time.Duration
	log       *logger.Logger
	sleep     func(context.Context, time.Duration) error
}

var _ Remote = (*Client)(nil)

// New creates a Client. It makes no remote calls.
func New(ctx context.Context, opts Options) (*Client, error) {
	var clientOpts []option.ClientOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if len(clientOpts) == 0 {
		return nil, errors.NewConfig("drive client needs an API key or an HTTP client")
	}

	svc, err := drivev3.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("creating drive service: %v", err))
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		svc:       svc,
		pageDelay: opts.PageDelay,
		log:       log,
		sleep:     Sleep,
	}, nil
}

// FromConfig creates the Client for the configured endpoint. A missing API
// key is CONFIG, before any remote call is made.
func FromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}
	return New(ctx, Options{
		APIKey:    cfg.APIKey,
		Endpoint:  cfg.DriveEndpoint,
		PageDelay: cfg.PageDelay(),
		Logger:    log,
	})
}

// GetMetadata fetches one object's metadata. A missing object is NOT_FOUND,
// a denied one FORBIDDEN; anything else is FETCH_FAILED.
func (c *Client) GetMetadata(ctx context.Context, id string) (Object, error) {
	f, err := c.svc.Files.Get(id).
		Fields(metadataFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return Object{}, fetchError(id, err)
	}
	return fromFile(f).Resolve(), nil
}

// ListFolder returns every non-trashed child of folderID, requesting pages
// until the remote reports no continuation, with PageDelay between pages.
// Any failure is LISTING_FAILED carrying the status and a body excerpt.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]Object, error) {
	var out []Object
	pageToken := ""
	for page := 1; ; page++ {
		call := c.svc.Files.List().
			Q(parentsQuery(folderID)).
			Fields(listFields).
			OrderBy("name").
			PageSize(pageSize).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, listingError(folderID, err)
		}
		for _, f := range list.Files {
			out = append(out, fromFile(f).Resolve())
		}
		c.log.Debug("listed folder page", "folder_id", folderID, "page", page, "files", len(list.Files))

		pageToken = list.NextPageToken
		if pageToken == "" {
			return out, nil
		}
		if err := c.sleep(ctx, c.pageDelay); err != nil {
			return nil, errors.NewListingFailed(folderID, 0, err.Error())
		}
	}
}

// ExportText requests a plain-text rendition of an editable document.
func (c *Client) ExportText(ctx context.Context, id string) (string, error) {
	resp, err := c.svc.Files.Export(id, "text/plain").Context(ctx).Download()
	if err != nil {
		return "", fetchError(id, err)
	}
	b, err := readBody(resp)
	if err != nil {
		return "", errors.NewFetchFailed(id, resp.StatusCode, err)
	}
	return string(b), nil
}

// DownloadBinary downloads an object's content.
func (c *Client) DownloadBinary(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fetchError(id, err)
	}
	b, err := readBody(resp)
	if err != nil {
		return nil, errors.NewFetchFailed(id, resp.StatusCode, err)
	}
	return b, nil
}

func fromFile(f *drivev3.File) Object {
	o := Object{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
	if f.ShortcutDetails != nil {
		o.TargetID = f.ShortcutDetails.TargetId
		o.TargetMimeType = f.ShortcutDetails.TargetMimeType
	}
	return o
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxDownloadBytes {
		return nil, fmt.Errorf("content exceeds %d bytes", MaxDownloadBytes)
	}
	return b, nil
}

func fetchError(id string, err error) error {
	var gErr *googleapi.Error
	if !stderrors.As(err, &gErr) {
		return errors.NewFetchFailed(id, 0, err)
	}
	switch gErr.Code {
	case http.StatusNotFound:
		return errors.NewNotFound(id)
	case http.StatusForbidden:
		return errors.NewForbidden(id)
	default:
		return errors.NewFetchFailed(id, gErr.Code, stderrors.New(errors.Excerpt(errorBody(gErr))))
	}
}

func listingError(folderID string, err error) error {
	var gErr *googleapi.Error
	if stderrors.As(err, &gErr) {
		return errors.NewListingFailed(folderID, gErr.Code, errorBody(gErr))
	}
	return errors.NewListingFailed(folderID, 0, err.Error())
}

func errorBody(gErr *googleapi.Error) string {
	if body := string(bytes.TrimSpace([]byte(gErr.Body))); body != "" {
		return body
	}
	return gErr.Message
}

// parentsQuery selects the non-trashed children of folderID. Quotes and
// backslashes in the id are escaped so they cannot end the string literal.
func parentsQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed=false", queryEscaper.Replace(folderID))
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Sleep pauses for d or until ctx is done. A non-positive d only reports ctx.Err().
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
