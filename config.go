package qagentic

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/config"
	"github.com/qagentic/qagentic-go/flags"
)

// RunnerConfig holds the service configuration
type RunnerConfig struct {
	TestDir     string
	Packages    string        // Package pattern handed to the go test invocation
	GoBinary    string        // Go binary used to execute the suite
	RunInterval time.Duration // Interval between suite runs
	RunOnce     bool          // Indicates if the service should exit after one suite run
	Timeout     time.Duration // Timeout applied to each suite run
	RunName     string        // Fixed run name; autogenerated per run when empty

	Reporting *config.Config // Result destinations (API, local files, console)
	Log       log.Logger
}

// NewRunnerConfig creates a new RunnerConfig from cli context
func NewRunnerConfig(ctx *cli.Context, log log.Logger) (*RunnerConfig, error) {
	// Parse flags
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	testDir := ctx.String(flags.TestDir.Name)
	if testDir == "" {
		return nil, errors.New("test directory is required")
	}

	// Resolve the absolute path so the suite runs the same regardless of
	// where the service was launched from.
	absTestDir, err := filepath.Abs(testDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", testDir, err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	reporting, err := loadReportingConfig(ctx)
	if err != nil {
		return nil, err
	}
	applyCLIOverrides(ctx, reporting)

	return &RunnerConfig{
		TestDir:     absTestDir,
		Packages:    ctx.String(flags.Packages.Name),
		GoBinary:    ctx.String(flags.GoBinary.Name),
		RunInterval: runInterval,
		RunOnce:     runOnce,
		Timeout:     ctx.Duration(flags.Timeout.Name),
		RunName:     ctx.String(flags.RunName.Name),
		Reporting:   reporting,
		Log:         log,
	}, nil
}

// loadReportingConfig reads the reporting configuration from an explicit
// --config file, or discovers one in the standard locations.
func loadReportingConfig(ctx *cli.Context) (*config.Config, error) {
	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		cfg, err := config.FromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", path, err)
		}
		return cfg, nil
	}
	return config.Discover()
}

// applyCLIOverrides layers command-line values over the discovered reporting
// configuration. Flags win over both file and environment values.
func applyCLIOverrides(ctx *cli.Context, cfg *config.Config) {
	if v := ctx.String(flags.Project.Name); v != "" {
		cfg.ProjectName = v
	}
	if v := ctx.String(flags.Environment.Name); v != "" {
		cfg.Environment = v
	}
	if v := ctx.String(flags.APIURL.Name); v != "" {
		cfg.API.URL = v
	}
	if v := ctx.String(flags.APIKey.Name); v != "" {
		cfg.API.Key = v
	}
	if v := ctx.String(flags.OutputDir.Name); v != "" {
		cfg.Local.OutputDir = v
	}
	if ctx.Bool(flags.NoConsole.Name) {
		cfg.Features.ConsoleOutput = false
	}
	if ctx.Bool(flags.NoAPI.Name) {
		cfg.API.Enabled = false
	}
	if ctx.Bool(flags.NoLocal.Name) {
		cfg.Local.Enabled = false
	}
}
