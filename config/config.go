// Package config loads reporting configuration from YAML files and
// QAGENTIC_* environment variables. Precedence is defaults < file < env;
// CLI flags are layered on top by the caller at assembly time.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL     = "http://localhost:8080"
	DefaultOutputDir  = "./qagentic-results"
	DefaultAPITimeout = 30 * time.Second
	DefaultRetryCount = 3
	DefaultBatchSize  = 100
)

// Formats accepted in reporting.local.formats.
var knownFormats = []string{"json", "html", "junit"}

// ScreenshotMode controls when screenshot capture hooks fire.
type ScreenshotMode string

const (
	CaptureAlways    ScreenshotMode = "always"
	CaptureOnFailure ScreenshotMode = "on_failure"
	CaptureNever     ScreenshotMode = "never"
)

// APIConfig configures the remote reporting API sink.
type APIConfig struct {
	Enabled    bool
	URL        string
	Key        string
	Timeout    time.Duration
	RetryCount int
	BatchSize  int
}

// LocalConfig configures file-based report output.
type LocalConfig struct {
	Enabled      bool
	OutputDir    string
	Formats      []string
	CleanOnStart bool
}

// FeaturesConfig holds feature toggles. Capture modes and analysis flags are
// carried for the richer backends even where this SDK only forwards them.
type FeaturesConfig struct {
	AIAnalysis        bool
	FailureClustering bool
	FlakyDetection    bool
	Screenshots       ScreenshotMode
	Videos            ScreenshotMode
	ConsoleOutput     bool
	RichConsole       bool
}

// LabelsConfig holds default labels stamped onto every run.
type LabelsConfig struct {
	Team      string
	Component string
	Custom    map[string]string
}

// All merges the well-known and custom labels into one map.
func (l LabelsConfig) All() map[string]string {
	out := make(map[string]string, len(l.Custom)+2)
	for k, v := range l.Custom {
		out[k] = v
	}
	if l.Team != "" {
		out["team"] = l.Team
	}
	if l.Component != "" {
		out["component"] = l.Component
	}
	return out
}

// Config is the full reporting configuration.
type Config struct {
	ProjectName string
	Environment string
	API         APIConfig
	Local       LocalConfig
	Features    FeaturesConfig
	Labels      LabelsConfig
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		ProjectName: "default",
		Environment: "local",
		API: APIConfig{
			Enabled:    true,
			URL:        DefaultAPIURL,
			Timeout:    DefaultAPITimeout,
			RetryCount: DefaultRetryCount,
			BatchSize:  DefaultBatchSize,
		},
		Local: LocalConfig{
			Enabled:      true,
			OutputDir:    DefaultOutputDir,
			Formats:      []string{"json", "html"},
			CleanOnStart: true,
		},
		Features: FeaturesConfig{
			AIAnalysis:        true,
			FailureClustering: true,
			FlakyDetection:    true,
			Screenshots:       CaptureOnFailure,
			Videos:            CaptureOnFailure,
			ConsoleOutput:     true,
			RichConsole:       true,
		},
	}
}

// fileSchema is the on-disk YAML layout, which nests differently from the
// runtime Config. Pointer fields distinguish "absent" from zero values so
// omitted keys keep their defaults.
type fileSchema struct {
	Project struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
	} `yaml:"project"`
	Reporting struct {
		API struct {
			Enabled    *bool  `yaml:"enabled"`
			URL        string `yaml:"url"`
			Key        string `yaml:"key"`
			Timeout    *int   `yaml:"timeout"`
			RetryCount *int   `yaml:"retry_count"`
			BatchSize  *int   `yaml:"batch_size"`
		} `yaml:"api"`
		Local struct {
			Enabled      *bool    `yaml:"enabled"`
			OutputDir    string   `yaml:"output_dir"`
			Formats      []string `yaml:"formats"`
			CleanOnStart *bool    `yaml:"clean_on_start"`
		} `yaml:"local"`
	} `yaml:"reporting"`
	Features struct {
		AIAnalysis        *bool  `yaml:"ai_analysis"`
		FailureClustering *bool  `yaml:"failure_clustering"`
		FlakyDetection    *bool  `yaml:"flaky_detection"`
		Screenshots       string `yaml:"screenshots"`
		Videos            string `yaml:"videos"`
		ConsoleOutput     *bool  `yaml:"console_output"`
		RichConsole       *bool  `yaml:"rich_console"`
	} `yaml:"features"`
	Labels map[string]string `yaml:"labels"`
}

// FromEnv builds a configuration from defaults plus QAGENTIC_* environment
// variables.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// FromFile loads a YAML configuration file over the defaults. A missing file
// falls back to FromEnv. QAGENTIC_API_URL and QAGENTIC_API_KEY always win
// over file values so CI secrets never need to live on disk.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FromEnv(), nil
		}
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	cfg := Default()
	cfg.applyFile(&schema)

	if v := os.Getenv("QAGENTIC_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("QAGENTIC_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	return cfg, nil
}

// FindFile returns the first configuration file present in the standard
// search locations.
func FindFile() (string, bool) {
	paths := []string{
		"qagentic.yaml",
		"qagentic.yml",
		".qagentic.yaml",
		".qagentic.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".qagentic", "config.yaml"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Discover loads configuration from the first file found in the standard
// locations, or from the environment when no file exists.
func Discover() (*Config, error) {
	if path, ok := FindFile(); ok {
		return FromFile(path)
	}
	return FromEnv(), nil
}

func (c *Config) applyFile(schema *fileSchema) {
	if schema.Project.Name != "" {
		c.ProjectName = schema.Project.Name
	}
	if schema.Project.Environment != "" {
		c.Environment = schema.Project.Environment
	}

	api := schema.Reporting.API
	if api.Enabled != nil {
		c.API.Enabled = *api.Enabled
	}
	if api.URL != "" {
		c.API.URL = api.URL
	}
	if api.Key != "" {
		c.API.Key = api.Key
	}
	if api.Timeout != nil {
		c.API.Timeout = time.Duration(*api.Timeout) * time.Second
	}
	if api.RetryCount != nil {
		c.API.RetryCount = *api.RetryCount
	}
	if api.BatchSize != nil {
		c.API.BatchSize = *api.BatchSize
	}

	local := schema.Reporting.Local
	if local.Enabled != nil {
		c.Local.Enabled = *local.Enabled
	}
	if local.OutputDir != "" {
		c.Local.OutputDir = local.OutputDir
	}
	if len(local.Formats) > 0 {
		c.Local.Formats = local.Formats
	}
	if local.CleanOnStart != nil {
		c.Local.CleanOnStart = *local.CleanOnStart
	}

	feat := schema.Features
	if feat.AIAnalysis != nil {
		c.Features.AIAnalysis = *feat.AIAnalysis
	}
	if feat.FailureClustering != nil {
		c.Features.FailureClustering = *feat.FailureClustering
	}
	if feat.FlakyDetection != nil {
		c.Features.FlakyDetection = *feat.FlakyDetection
	}
	if feat.Screenshots != "" {
		c.Features.Screenshots = ScreenshotMode(feat.Screenshots)
	}
	if feat.Videos != "" {
		c.Features.Videos = ScreenshotMode(feat.Videos)
	}
	if feat.ConsoleOutput != nil {
		c.Features.ConsoleOutput = *feat.ConsoleOutput
	}
	if feat.RichConsole != nil {
		c.Features.RichConsole = *feat.RichConsole
	}

	for k, v := range schema.Labels {
		switch k {
		case "team":
			c.Labels.Team = v
		case "component":
			c.Labels.Component = v
		default:
			if c.Labels.Custom == nil {
				c.Labels.Custom = make(map[string]string)
			}
			c.Labels.Custom[k] = v
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("QAGENTIC_PROJECT_NAME"); v != "" {
		c.ProjectName = v
	}
	if v := os.Getenv("QAGENTIC_ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("QAGENTIC_API_ENABLED"); v != "" {
		c.API.Enabled = envBool(v)
	}
	if v := os.Getenv("QAGENTIC_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("QAGENTIC_API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv("QAGENTIC_LOCAL_ENABLED"); v != "" {
		c.Local.Enabled = envBool(v)
	}
	if v := os.Getenv("QAGENTIC_OUTPUT_DIR"); v != "" {
		c.Local.OutputDir = v
	}
	if v := os.Getenv("QAGENTIC_OUTPUT_FORMAT"); v != "" {
		parts := strings.Split(v, ",")
		formats := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				formats = append(formats, p)
			}
		}
		c.Local.Formats = formats
	}
	if v := os.Getenv("QAGENTIC_AI_ANALYSIS"); v != "" {
		c.Features.AIAnalysis = envBool(v)
	}
	if v := os.Getenv("QAGENTIC_SCREENSHOTS"); v != "" {
		c.Features.Screenshots = ScreenshotMode(v)
	}
	if v := os.Getenv("QAGENTIC_VIDEOS"); v != "" {
		c.Features.Videos = ScreenshotMode(v)
	}
	if v := os.Getenv("QAGENTIC_TEAM"); v != "" {
		c.Labels.Team = v
	}
	if v := os.Getenv("QAGENTIC_COMPONENT"); v != "" {
		c.Labels.Component = v
	}
}

func envBool(v string) bool {
	return strings.EqualFold(v, "true")
}

// Validate reports the first problem that would make the configuration
// unusable at runtime.
func (c *Config) Validate() error {
	if c.ProjectName == "" {
		return errors.New("project name must not be empty")
	}

	if c.API.Enabled {
		u, err := url.Parse(c.API.URL)
		if err != nil {
			return errors.Wrapf(err, "invalid API URL %q", c.API.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Errorf("API URL %q must use http or https", c.API.URL)
		}
		if c.API.Timeout <= 0 {
			return errors.New("API timeout must be positive")
		}
		if c.API.RetryCount < 0 {
			return errors.New("API retry count must not be negative")
		}
		if c.API.BatchSize <= 0 {
			return errors.New("API batch size must be positive")
		}
	}

	if c.Local.Enabled {
		if c.Local.OutputDir == "" {
			return errors.New("local output directory must not be empty")
		}
		for _, f := range c.Local.Formats {
			if !slices.Contains(knownFormats, f) {
				return errors.Errorf("unknown output format %q, must be one of %s",
					f, strings.Join(knownFormats, ", "))
			}
		}
	}

	switch c.Features.Screenshots {
	case CaptureAlways, CaptureOnFailure, CaptureNever:
	default:
		return errors.Errorf("invalid screenshots mode %q", c.Features.Screenshots)
	}
	switch c.Features.Videos {
	case CaptureAlways, CaptureOnFailure, CaptureNever:
	default:
		return errors.Errorf("invalid videos mode %q", c.Features.Videos)
	}

	return nil
}
