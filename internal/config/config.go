// internal/config/config.go
//
// This package builds the single configuration object for a run. Nothing here
// is global: main loads a *Config once and hands it to every component.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkDirName is the directory created inside the data directory for logs
	// and run reports.
	WorkDirName = ".cosmicfill"

	// DefaultConfigFile is looked up in the working directory when
	// COSMICFILL_CONFIG is not set.
	DefaultConfigFile = "cosmicfill.yaml"

	defaultAttachmentPrefix = "附件"
	defaultBaseURL          = "https://api.deepseek.com/v1/chat/completions"
	defaultModel            = "deepseek-chat"
	defaultCatalogFile      = "一二三级功能点.xlsx"
	defaultEmbeddedSheet    = "功能点码值"
	defaultManualFile       = "用户手册.docx"
	defaultSideArtifact     = "项目文档内容.txt"
	defaultMarkerToken      = "添加标识"
)

// Environment variables that override file values.
const (
	EnvConfigPath = "COSMICFILL_CONFIG"
	EnvDataDir    = "COSMICFILL_DATA_DIR"
	EnvAPIKey     = "COSMICFILL_API_KEY"
	EnvDeepSeek   = "DEEPSEEK_API_KEY"
	EnvBaseURL    = "COSMICFILL_BASE_URL"
	EnvModel      = "COSMICFILL_MODEL"
)

// AttachmentConfig controls the attachment naming grammar.
type AttachmentConfig struct {
	Prefix string `yaml:"prefix"`
}

// TaxonomyConfig locates the three-level function catalog.
type TaxonomyConfig struct {
	// EmbeddedSlot is the attachment carrying an embedded catalog sheet. Zero
	// disables the embedded source.
	EmbeddedSlot int `yaml:"embedded_slot"`
	// EmbeddedSheet is a fragment of the embedded sheet's name.
	EmbeddedSheet string `yaml:"embedded_sheet"`
	// Catalog is the standalone fallback workbook.
	Catalog string `yaml:"catalog"`
}

// ManualConfig points to the optional user manual summarized for the project docs.
type ManualConfig struct {
	File string `yaml:"file"`
}

// LLMConfig configures the text-generation service.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// Timeouts are Go duration strings ("30s").
	SummaryTimeout  string `yaml:"summary_timeout"`
	MatchTimeout    string `yaml:"match_timeout"`
	SectionsTimeout string `yaml:"sections_timeout"`
}

// DocsConfig configures anchor insertion into the proposal document.
type DocsConfig struct {
	MarkerToken  string   `yaml:"marker_token"`
	Signatures   []string `yaml:"signatures,omitempty"`
	Reinitialize bool     `yaml:"reinitialize"`
	SideArtifact string   `yaml:"side_artifact"`
}

// FileConfig models cosmicfill.yaml.
type FileConfig struct {
	Version     int              `yaml:"version"`
	DataDir     string           `yaml:"data_dir"`
	Attachments AttachmentConfig `yaml:"attachments"`
	Taxonomy    TaxonomyConfig   `yaml:"taxonomy"`
	Manual      ManualConfig     `yaml:"manual"`
	LLM         LLMConfig        `yaml:"llm"`
	Docs        DocsConfig       `yaml:"docs"`
	// Workflow optionally replaces the embedded pipeline definition.
	Workflow string `yaml:"workflow,omitempty"`
	Verbose  bool   `yaml:"verbose"`
}

// Config holds the runtime configuration for cosmic-fill.
type Config struct {
	// Path is the config file that was loaded (may not exist).
	Path string
	// BaseDir anchors relative paths; it is the config file's directory.
	BaseDir string

	File FileConfig
}

// DefaultPath returns the config path honoring COSMICFILL_CONFIG.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigFile
}

// Load reads the YAML config at path, applying defaults and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	cfg := &Config{
		Path:    abs,
		BaseDir: filepath.Dir(abs),
		File:    defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.File.normalize(cfg.BaseDir)
	if err := cfg.File.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.Path, err)
	}
	parsed := defaultFileConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.Path, err)
	}
	parsed.applyDefaults()
	c.File = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.File.DataDir = v
	}
	// DEEPSEEK_API_KEY is the legacy name; the tool-specific key wins.
	if v := strings.TrimSpace(os.Getenv(EnvDeepSeek)); v != "" {
		c.File.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.File.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.File.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.File.LLM.Model = v
	}
}

// DataDir returns the directory holding the attachment package.
func (c *Config) DataDir() string {
	return c.File.DataDir
}

// WorkDir returns DataDir/.cosmicfill.
func (c *Config) WorkDir() string {
	return filepath.Join(c.File.DataDir, WorkDirName)
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.WorkDir(), "logs")
}

// RunsDir returns the directory for JSON run reports.
func (c *Config) RunsDir() string {
	return filepath.Join(c.WorkDir(), "runs")
}

// CatalogPath returns the standalone taxonomy workbook.
func (c *Config) CatalogPath() string {
	return c.File.Taxonomy.Catalog
}

// ManualPath returns the user manual path, or "" when disabled.
func (c *Config) ManualPath() string {
	return c.File.Manual.File
}

// ManualCachePath returns the plain-text summary cache next to the manual.
func (c *Config) ManualCachePath() string {
	if c.File.Manual.File == "" {
		return ""
	}
	return c.File.Manual.File + ".summary.txt"
}

// SideArtifactPath returns the manual copy-paste file for generated sections.
func (c *Config) SideArtifactPath() string {
	return c.File.Docs.SideArtifact
}

// SummaryTimeout bounds the summarize call.
func (c *Config) SummaryTimeout() time.Duration {
	return parseDuration(c.File.LLM.SummaryTimeout, 30*time.Second)
}

// MatchTimeout bounds the taxonomy matching call.
func (c *Config) MatchTimeout() time.Duration {
	return parseDuration(c.File.LLM.MatchTimeout, 30*time.Second)
}

// SectionsTimeout bounds the project-section and manual-summary calls.
func (c *Config) SectionsTimeout() time.Duration {
	return parseDuration(c.File.LLM.SectionsTimeout, 60*time.Second)
}

// ErrDataDirMissing is returned by InitWorkDir when the data directory does
// not exist. The work dir lives inside it, so it is never created here.
var ErrDataDirMissing = errors.New("数据目录不存在")

// InitWorkDir creates the .cosmicfill directory structure. Called only after
// a requirement name was entered so an aborted prompt leaves no trace.
//
// Structure created:
// .cosmicfill/
// ├── logs/   <- zap log file
// └── runs/   <- one JSON report per run
func (c *Config) InitWorkDir() error {
	info, err := os.Stat(c.DataDir())
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%w: %s", ErrDataDirMissing, c.DataDir())
	}
	if err != nil {
		return err
	}
	dirs := []string{c.LogsDir(), c.RunsDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		DataDir: "data_file",
		Attachments: AttachmentConfig{
			Prefix: defaultAttachmentPrefix,
		},
		Taxonomy: TaxonomyConfig{
			EmbeddedSlot:  2,
			EmbeddedSheet: defaultEmbeddedSheet,
			Catalog:       defaultCatalogFile,
		},
		Manual: ManualConfig{File: defaultManualFile},
		LLM: LLMConfig{
			BaseURL:     defaultBaseURL,
			Model:       defaultModel,
			Temperature: 0.7,
		},
		Docs: DocsConfig{
			MarkerToken:  defaultMarkerToken,
			Reinitialize: true,
			SideArtifact: defaultSideArtifact,
			Signatures:   defaultSignatures(),
		},
	}
}

// defaultSignatures are placeholder lines earlier insertion runs left in
// attachment 1.
func defaultSignatures() []string {
	return []string{"测试总体描述", "测试目标", "测试必要性", "测试问题"}
}

func (fc *FileConfig) applyDefaults() {
	def := defaultFileConfig()
	if fc.Version == 0 {
		fc.Version = def.Version
	}
	if strings.TrimSpace(fc.Attachments.Prefix) == "" {
		fc.Attachments.Prefix = def.Attachments.Prefix
	}
	if strings.TrimSpace(fc.LLM.BaseURL) == "" {
		fc.LLM.BaseURL = def.LLM.BaseURL
	}
	if strings.TrimSpace(fc.LLM.Model) == "" {
		fc.LLM.Model = def.LLM.Model
	}
	if strings.TrimSpace(fc.Docs.MarkerToken) == "" {
		fc.Docs.MarkerToken = def.Docs.MarkerToken
	}
	if strings.TrimSpace(fc.Docs.SideArtifact) == "" {
		fc.Docs.SideArtifact = def.Docs.SideArtifact
	}
}

func (fc *FileConfig) normalize(base string) {
	fc.DataDir = resolvePath(base, fc.DataDir)
	fc.Attachments.Prefix = strings.TrimSpace(fc.Attachments.Prefix)
	fc.Taxonomy.EmbeddedSheet = strings.TrimSpace(fc.Taxonomy.EmbeddedSheet)
	fc.Taxonomy.Catalog = resolvePath(fc.DataDir, fc.Taxonomy.Catalog)
	fc.Manual.File = resolvePath(fc.DataDir, fc.Manual.File)
	fc.Docs.SideArtifact = resolvePath(fc.DataDir, fc.Docs.SideArtifact)
	fc.Workflow = resolvePath(base, fc.Workflow)
	fc.LLM.BaseURL = strings.TrimSpace(fc.LLM.BaseURL)
	fc.LLM.APIKey = strings.TrimSpace(fc.LLM.APIKey)
	fc.LLM.Model = strings.TrimSpace(fc.LLM.Model)
	signatures := fc.Docs.Signatures[:0]
	for _, sig := range fc.Docs.Signatures {
		if s := strings.TrimSpace(sig); s != "" {
			signatures = append(signatures, s)
		}
	}
	fc.Docs.Signatures = signatures
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if fc.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if fc.Attachments.Prefix == "" {
		return fmt.Errorf("attachments.prefix is required")
	}
	if strings.ContainsAny(fc.Attachments.Prefix, "-@") {
		return fmt.Errorf("attachments.prefix must not contain '-' or '@'")
	}
	if fc.Taxonomy.EmbeddedSlot < 0 {
		return fmt.Errorf("taxonomy.embedded_slot must be >= 0")
	}
	if fc.LLM.Temperature < 0 || fc.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	for name, raw := range map[string]string{
		"llm.summary_timeout":  fc.LLM.SummaryTimeout,
		"llm.match_timeout":    fc.LLM.MatchTimeout,
		"llm.sections_timeout": fc.LLM.SectionsTimeout,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
