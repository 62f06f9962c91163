package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "QAGENTIC"

var (
	TestDir = &cli.StringFlag{
		Name:     "testdir",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "TESTDIR"),
		Usage:    "Path to the Go module whose tests are run and reported",
	}
	Packages = &cli.StringFlag{
		Name:    "packages",
		Value:   "./...",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PACKAGES"),
		Usage:   "Package pattern passed to 'go test' (eg. './...' or './internal/...')",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a qagentic.yaml config file. Discovered from the working directory when omitted.",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GO_BINARY"),
		Usage:   "Path to the Go binary used to run tests",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   10 * time.Minute,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Timeout for one full 'go test' invocation",
	}
	RunName = &cli.StringFlag{
		Name:    "run-name",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_NAME"),
		Usage:   "Display name for the run. A timestamped default is used when omitted.",
	}
	Project = &cli.StringFlag{
		Name:    "project",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROJECT_NAME"),
		Usage:   "Project name reported with every run",
	}
	Environment = &cli.StringFlag{
		Name:    "environment",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENVIRONMENT"),
		Usage:   "Environment name reported with every run (eg. 'staging')",
	}
	APIURL = &cli.StringFlag{
		Name:    "api-url",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "API_URL"),
		Usage:   "QAgentic API base URL",
	}
	APIKey = &cli.StringFlag{
		Name:    "api-key",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "API_KEY"),
		Usage:   "API key used to authenticate against the QAgentic API",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory local reports are written to",
	}
	NoConsole = &cli.BoolFlag{
		Name:    "no-console",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_CONSOLE"),
		Usage:   "Disable console output",
	}
	NoAPI = &cli.BoolFlag{
		Name:    "no-api",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_API"),
		Usage:   "Disable API reporting",
	}
	NoLocal = &cli.BoolFlag{
		Name:    "no-local",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_LOCAL"),
		Usage:   "Disable local file reports",
	}
)

var requiredFlags = []cli.Flag{
	TestDir,
}

var optionalFlags = []cli.Flag{
	Packages,
	ConfigFile,
	GoBinary,
	RunInterval,
	Timeout,
	RunName,
	Project,
	Environment,
	APIURL,
	APIKey,
	OutputDir,
	NoConsole,
	NoAPI,
	NoLocal,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
