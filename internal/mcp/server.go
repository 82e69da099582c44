package mcp

import (
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/coursesync/internal/config"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/logger"
)

// Tool names.
const (
	ToolCourseSync     = "course_sync"
	ToolCourseValidate = "course_validate"
	ToolCourseMigrate  = "course_migrate"
	ToolPDFTextGet     = "pdf_text_get"
	ToolSyncHistory    = "sync_history"
)

var stringItems = mcp.Items(map[string]any{"type": "string"})

var syncToolDef = mcp.NewTool(ToolCourseSync,
	mcp.WithDescription("Refresh course material and documents from Google Drive and write the course records back. "+
		"Each course file is backed up once before its first write. A failing course does not stop the batch."),
	mcp.WithArray("files",
		mcp.Description("Course file names such as course_4a.json. Omit to sync every course file."),
		stringItems,
	),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithOpenWorldHintAnnotation(true),
)

var validateToolDef = mcp.NewTool(ToolCourseValidate,
	mcp.WithDescription("Check course records against the material/docs schema. Returns errors and warnings per file."),
	mcp.WithString("file",
		mcp.Description("Course file name. Omit to validate every course file."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var migrateToolDef = mcp.NewTool(ToolCourseMigrate,
	mcp.WithDescription("Convert legacy course records (drive_folders/files/youtube_videos/google_docs) "+
		"to the material/docs shape. Already migrated files are left untouched."),
	mcp.WithArray("paths",
		mcp.Required(),
		mcp.Description("Course files, by name or path inside the courses directory."),
		stringItems,
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Report which files would change without writing them."),
	),
	mcp.WithIdempotentHintAnnotation(true),
)

var pdfTextToolDef = mcp.NewTool(ToolPDFTextGet,
	mcp.WithDescription("Read the cached PDF text of a course, optionally narrowed to one material category or file."),
	mcp.WithString("slug", mcp.Required(), mcp.Description("Course slug")),
	mcp.WithString("category", mcp.Description("Material category key, e.g. workbook_pdfs")),
	mcp.WithString("file_id", mcp.Description("Drive file id. Requires category.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyToolDef = mcp.NewTool(ToolSyncHistory,
	mcp.WithDescription("List recent sync runs, or one run with its per-entry outcomes."),
	mcp.WithString("run_id", mcp.Description("Run id. When set, the run's events are included.")),
	mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20, max 200)"), mcp.Min(0), mcp.Max(200)),
	mcp.WithReadOnlyHintAnnotation(true),
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	ToolCourseSync: {
		def:     syncToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSync },
	},
	ToolCourseValidate: {
		def:     validateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleValidate },
	},
	ToolCourseMigrate: {
		def:     migrateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMigrate },
	},
	ToolPDFTextGet: {
		def:     pdfTextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePDFText },
	},
	ToolSyncHistory: {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Deps are the collaborators shared by all tool handlers.
type Deps struct {
	Config *config.Config
	// Journal is the sync journal. Nil makes sync_history fail with CONFIG.
	Journal *sql.DB
	Logger  *logger.Logger
	// Remote overrides the Drive client. Nil builds one from Config on each
	// course_sync call, which fails with CONFIG when no API key is set.
	Remote drive.Remote
}

// NewServer creates a new MCP server with the course tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"coursesync",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	for _, name := range deps.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}
