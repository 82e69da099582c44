package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	syncerrors "github.com/hpungsan/coursesync/internal/errors"
)

// APIKeyEnv is the environment variable holding the remote drive API key.
const APIKeyEnv = "GOOGLE_API_KEY"

// RepoDirName is the per-project config directory searched for upward from the working directory.
const RepoDirName = ".coursesync"

// Config holds application configuration.
type Config struct {
	// CoursesDir holds the course_*.json records.
	CoursesDir string `json:"courses_dir,omitempty"`

	// BackupDir receives the one-time original snapshot of each course record.
	BackupDir string `json:"backup_dir,omitempty"`

	// PDFCacheDir holds one <slug>.json text cache per course.
	PDFCacheDir string `json:"pdf_cache_dir,omitempty"`

	// TemplateFile is the reserved record name excluded from batch operations.
	TemplateFile string `json:"template_file,omitempty"`

	// PageDelayMS is the pause between folder listing pages.
	PageDelayMS int `json:"page_delay_ms,omitempty"`

	// ExtractDelayMS is the pause after each PDF text extraction.
	ExtractDelayMS int `json:"extract_delay_ms,omitempty"`

	// DriveEndpoint overrides the Drive API base URL. Empty uses the public endpoint.
	DriveEndpoint string `json:"drive_endpoint,omitempty"`

	// LogMode selects the log encoder: "dev" (console) or "prod" (JSON).
	LogMode string `json:"log_mode,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// Root is the project root used to resolve relative directories. Not read from file.
	Root string `json:"-"`

	// APIKey is read from GOOGLE_API_KEY only. Never persisted.
	APIKey string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CoursesDir:     filepath.Join("src", "_data", "course-configs"),
		BackupDir:      filepath.Join("src", "_data", "course-original"),
		PDFCacheDir:    filepath.Join("src", "_data", "pdf-text-cache"),
		TemplateFile:   "course_template.json",
		PageDelayMS:    200,
		ExtractDelayMS: 500,
		LogMode:        "dev",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.coursesync) and repo (.coursesync) directories.
// Repo config is found by walking upward from startDir; its parent directory becomes Root.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// The API key is taken from the environment.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	cfg.Root = startDir
	if repoConfigPath != "" {
		cfg.Root = filepath.Dir(filepath.Dir(repoConfigPath))
	}
	cfg.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .coursesync/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// RequireCredential returns a CONFIG error when no API key is available.
func (c *Config) RequireCredential() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return syncerrors.NewConfig("missing " + APIKeyEnv + " environment variable")
	}
	return nil
}

// Resolve returns p unchanged if absolute, else joined onto Root.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// CoursesPath is the resolved course record directory.
func (c *Config) CoursesPath() string { return c.Resolve(c.CoursesDir) }

// BackupPath is the resolved backup directory.
func (c *Config) BackupPath() string { return c.Resolve(c.BackupDir) }

// PDFCachePath is the resolved PDF text cache directory.
func (c *Config) PDFCachePath() string { return c.Resolve(c.PDFCacheDir) }

// PageDelay is PageDelayMS as a duration. Negative values disable the pause.
func (c *Config) PageDelay() time.Duration {
	if c.PageDelayMS < 0 {
		return 0
	}
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// ExtractDelay is ExtractDelayMS as a duration. Negative values disable the pause.
func (c *Config) ExtractDelay() time.Duration {
	if c.ExtractDelayMS < 0 {
		return 0
	}
	return time.Duration(c.ExtractDelayMS) * time.Millisecond
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, syncerrors.NewParseFailed(configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Root:   base.Root,
		APIKey: base.APIKey,
	}

	result.CoursesDir = overlayString(base.CoursesDir, overlay.CoursesDir)
	result.BackupDir = overlayString(base.BackupDir, overlay.BackupDir)
	result.PDFCacheDir = overlayString(base.PDFCacheDir, overlay.PDFCacheDir)
	result.TemplateFile = overlayString(base.TemplateFile, overlay.TemplateFile)
	result.DriveEndpoint = overlayString(base.DriveEndpoint, overlay.DriveEndpoint)
	result.LogMode = overlayString(base.LogMode, overlay.LogMode)

	result.PageDelayMS = overlay.PageDelayMS
	if result.PageDelayMS == 0 {
		result.PageDelayMS = base.PageDelayMS
	}

	result.ExtractDelayMS = overlay.ExtractDelayMS
	if result.ExtractDelayMS == 0 {
		result.ExtractDelayMS = base.ExtractDelayMS
	}

	if overlay.Root != "" {
		result.Root = overlay.Root
	}
	if overlay.APIKey != "" {
		result.APIKey = overlay.APIKey
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func overlayString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
