package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/coursesync/internal/config"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/ops"
	"github.com/hpungsan/coursesync/internal/pdfcache"
	"github.com/hpungsan/coursesync/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps  Deps
	cfg   *config.Config
	log   *logger.Logger
	store *store.FileStore
	cache *pdfcache.Cache
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Handlers{
		deps:  deps,
		cfg:   deps.Config,
		log:   log,
		store: store.FromConfig(deps.Config),
		cache: pdfcache.NewCache(deps.Config.PDFCachePath(), log),
	}
}

// SyncRequest represents the arguments for course_sync.
type SyncRequest struct {
	Files []string `json:"files,omitempty"`
}

// ValidateRequest represents the arguments for course_validate.
type ValidateRequest struct {
	File string `json:"file,omitempty"`
}

// MigrateRequest represents the arguments for course_migrate.
type MigrateRequest struct {
	Paths  []string `json:"paths"`
	DryRun bool     `json:"dry_run,omitempty"`
}

// PDFTextRequest represents the arguments for pdf_text_get.
type PDFTextRequest struct {
	Slug     string `json:"slug"`
	Category string `json:"category,omitempty"`
	FileID   string `json:"file_id,omitempty"`
}

// HistoryRequest represents the arguments for sync_history.
type HistoryRequest struct {
	RunID string `json:"run_id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Handler implementations

// HandleSync handles the course_sync tool call.
func (h *Handlers) HandleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SyncRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	remote, err := h.remote(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	syncer := ops.NewSyncer(ops.SyncerOptions{
		Remote:       remote,
		Store:        h.store,
		Cache:        h.cache,
		Journal:      h.deps.Journal,
		Logger:       h.log,
		ExtractDelay: h.cfg.ExtractDelay(),
	})

	result, err := syncer.Sync(ctx, ops.SyncInput{Files: input.Files})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleValidate handles the course_validate tool call.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ValidateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.File != "" {
		report, err := ops.Validate(h.store, input.File)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(report)
	}

	result, err := ops.ValidateAll(h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMigrate handles the course_migrate tool call. Bare file names are
// looked up in the courses directory; every path must stay inside it.
func (h *Handlers) HandleMigrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MigrateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	dir := h.cfg.CoursesPath()
	paths := make([]string, len(input.Paths))
	for i, p := range input.Paths {
		if p != "" && p == filepath.Base(p) && p != ".." {
			p = filepath.Join(dir, p)
		}
		paths[i] = p
	}

	result, err := ops.Migrate(ops.MigrateInput{
		Paths:       paths,
		DryRun:      input.DryRun,
		AllowedDirs: []string{dir},
	}, h.log)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePDFText handles the pdf_text_get tool call.
func (h *Handlers) HandlePDFText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PDFTextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CacheShow(h.cache, ops.CacheShowInput{
		Slug:     input.Slug,
		Category: input.Category,
		FileID:   input.FileID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the sync_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(h.deps.Journal, ops.HistoryInput{
		RunID: input.RunID,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// remote returns the injected Drive client or builds one from config.
func (h *Handlers) remote(ctx context.Context) (drive.Remote, error) {
	if h.deps.Remote != nil {
		return h.deps.Remote, nil
	}
	c, err := drive.FromConfig(ctx, h.cfg, h.log)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
