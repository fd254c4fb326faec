package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxSteps      = 20
	DefaultScreenshotDir = "screenshots"
	DefaultLogLevel      = "info"
	DefaultStepDelay     = time.Second
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultHistoryLimit  = 5
)

// Environment keys. Provider credentials and models are read by the llm package.
const (
	EnvProvider      = "LLM_PROVIDER"
	EnvHeadless      = "AGENT_HEADLESS"
	EnvScreenshotDir = "OPERATOR_SCREENSHOT_DIR"
	EnvLogLevel      = "OPERATOR_LOG_LEVEL"
	EnvLogFile       = "OPERATOR_LOG_FILE"
	EnvStepDelay     = "OPERATOR_STEP_DELAY"
	EnvRetryDelay    = "OPERATOR_RETRY_DELAY"
	EnvHistoryLimit  = "OPERATOR_HISTORY_LIMIT"
)

// Config is the resolved run configuration. Flags are applied on top of it by
// the command line.
type Config struct {
	Goal     string
	StartURL string
	MaxSteps int

	Provider string
	APIKey   string
	Model    string

	Headless       bool
	InstallBrowser bool
	ScreenshotDir  string

	LogLevel string
	LogFile  string

	StepDelay    time.Duration
	RetryDelay   time.Duration
	HistoryLimit int
}

// Load reads the given dotenv files (".env" when none are named), then the
// process environment. Missing dotenv files are not an error.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return Config{
		MaxSteps:      DefaultMaxSteps,
		Provider:      envString(EnvProvider, ""),
		Headless:      envBool(EnvHeadless, false),
		ScreenshotDir: envString(EnvScreenshotDir, DefaultScreenshotDir),
		LogLevel:      envString(EnvLogLevel, DefaultLogLevel),
		LogFile:       envString(EnvLogFile, ""),
		StepDelay:     envDuration(EnvStepDelay, DefaultStepDelay),
		RetryDelay:    envDuration(EnvRetryDelay, DefaultRetryDelay),
		HistoryLimit:  envInt(EnvHistoryLimit, DefaultHistoryLimit),
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Goal) == "" {
		errs = append(errs, errors.New("goal is required"))
	}
	if c.MaxSteps < 1 {
		errs = append(errs, errors.New("max steps must be at least 1"))
	}
	if c.HistoryLimit < 1 {
		errs = append(errs, errors.New("history limit must be at least 1"))
	}
	if c.StepDelay < 0 || c.RetryDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	return errors.Join(errs...)
}

func envString(name, def string) string {
	v := strings.Trim(strings.TrimSpace(os.Getenv(name)), `"'`)
	if v == "" {
		return def
	}
	return v
}

func envBool(name string, def bool) bool {
	v := strings.ToLower(envString(name, ""))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envInt(name string, def int) int {
	v, err := strconv.Atoi(envString(name, ""))
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("750ms") or bare milliseconds ("750").
func envDuration(name string, def time.Duration) time.Duration {
	v := envString(name, "")
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
