package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dl-alexandre/gitdrive/internal/source"
	"github.com/dl-alexandre/gitdrive/internal/sync/match"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/joho/godotenv"
)

const (
	// DefaultEnvFile is read when present and no other file is named
	DefaultEnvFile = ".env"
	// EnvPrefix is the prefix for tuning variables
	EnvPrefix = "GITDRIVE_"
)

// Config holds application configuration
type Config struct {
	// GoogleKey is a service account key: inline JSON, a path, or keyring:<name>
	GoogleKey string
	// FolderID is the destination root folder
	FolderID string

	GitRoot      string
	Subdir       string
	Origin       string
	Manifest     string
	Glob         string
	NegationBase string

	// SlackChannels is a "|"-separated list of webhook URLs or hook ids
	SlackChannels string

	DryRun bool

	MailFrom       string
	MailErrorTo    string
	MailDebugTo    string
	MailPrefix     string
	SendGridAPIKey string

	// Concurrency caps the number of remote operations in flight
	Concurrency    int
	NoticeMaxChars int

	// MaxRetries is the maximum number of retries for API calls
	MaxRetries int
	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string
	LogFile  string

	HistoryDB string
	AppName   string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		GitRoot:        ".",
		NegationBase:   string(match.IncludeAll),
		Concurrency:    utils.DefaultConcurrency,
		NoticeMaxChars: utils.DefaultNoticeMaxChars,
		MaxRetries:     utils.DefaultMaxRetries,
		RetryBaseDelay: utils.DefaultRetryDelayMs,
		LogLevel:       "normal",
		AppName:        utils.DefaultAppName,
	}
}

// Load builds the configuration with precedence: environment > env file >
// defaults; an empty variable counts as unset. envFile "" reads
// DefaultEnvFile when it exists; a named file must exist. Command line flags
// are applied by the caller, which then calls Validate.
func Load(envFile string) (*Config, error) {
	fileVars, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.loadFromEnv(func(key string) (string, bool) {
		if v := os.Getenv(key); v != "" {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	})
	return cfg, nil
}

func readEnvFile(envFile string) (map[string]string, error) {
	name := envFile
	if name == "" {
		name = DefaultEnvFile
	}
	vars, err := godotenv.Read(name)
	if err != nil {
		if envFile == "" && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConfiguration,
			"failed to read env file").
			WithContext("envFile", name).
			Build(), err)
	}
	return vars, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			} else {
				*dst = -1
			}
		}
	}

	str("GOOGLE_KEY", &c.GoogleKey)
	str("GDRIVE_FOLDERID", &c.FolderID)
	str("GIT_ROOT", &c.GitRoot)
	str("GIT_SUBDIR", &c.Subdir)
	str("GIT_ORIGIN", &c.Origin)
	str("GIT_MANIFEST", &c.Manifest)
	str("GIT_GLOB", &c.Glob)
	str("GIT_GLOB_NEGATION_BASE", &c.NegationBase)
	str("SLACK_CHANNELS", &c.SlackChannels)
	if v, ok := lookup("DRY_RUN"); ok && v != "" {
		c.DryRun = parseBool(v)
	}

	str("MAIL_FROM", &c.MailFrom)
	str("MAIL_ERRORTO", &c.MailErrorTo)
	str("MAIL_DEBUGTO", &c.MailDebugTo)
	str("MAIL_PREFIX", &c.MailPrefix)
	str("SENDGRID_API_KEY", &c.SendGridAPIKey)

	num(EnvPrefix+"CONCURRENCY", &c.Concurrency)
	num(EnvPrefix+"NOTICE_MAX_CHARS", &c.NoticeMaxChars)
	num(EnvPrefix+"MAX_RETRIES", &c.MaxRetries)
	num(EnvPrefix+"RETRY_BASE_DELAY", &c.RetryBaseDelay)
	str(EnvPrefix+"LOG_LEVEL", &c.LogLevel)
	str(EnvPrefix+"LOG_FILE", &c.LogFile)
	str(EnvPrefix+"HISTORY_DB", &c.HistoryDB)
	str(EnvPrefix+"APP_NAME", &c.AppName)
}

// Validate checks everything a sync or plan run needs
func (c *Config) Validate() error {
	if err := c.ValidateTuning(); err != nil {
		return err
	}

	if strings.TrimSpace(c.GoogleKey) == "" {
		return configError("GOOGLE_KEY is required")
	}
	if strings.TrimSpace(c.FolderID) == "" {
		return configError("GDRIVE_FOLDERID is required")
	}
	if c.Manifest == "" && strings.TrimSpace(c.Origin) == "" {
		return configError("GIT_ORIGIN is required unless GIT_MANIFEST is set")
	}
	if _, err := source.NormalizeSubdir(c.Subdir); err != nil {
		return err
	}
	if _, err := c.Matcher(); err != nil {
		return err
	}

	if c.SendGridAPIKey != "" && c.MailFrom == "" {
		return configError("MAIL_FROM is required when SENDGRID_API_KEY is set")
	}
	return nil
}

// ValidateTuning checks the numeric and enumerated settings only
func (c *Config) ValidateTuning() error {
	if c.Concurrency < 1 {
		return configError("%sCONCURRENCY must be at least 1, got: %d", EnvPrefix, c.Concurrency)
	}
	if c.NoticeMaxChars < 1 {
		return configError("%sNOTICE_MAX_CHARS must be at least 1, got: %d", EnvPrefix, c.NoticeMaxChars)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return configError("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}
	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return configError("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return configError("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := match.ParseNegationBase(c.NegationBase); err != nil {
		return err
	}
	return nil
}

// Matcher compiles GIT_GLOB under the configured negation base
func (c *Config) Matcher() (*match.Matcher, error) {
	base, err := match.ParseNegationBase(c.NegationBase)
	if err != nil {
		return nil, err
	}
	return match.New(c.Glob, base)
}

// MailEnabled reports whether end-of-run mails can be sent
func (c *Config) MailEnabled() bool {
	return c.SendGridAPIKey != "" && c.MailFrom != "" && (c.MailErrorTo != "" || c.MailDebugTo != "")
}

// Redacted returns the settings in a form safe to log
func (c *Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"googleKey":      MaskSecret(c.GoogleKey),
		"folderId":       c.FolderID,
		"gitRoot":        c.GitRoot,
		"subdir":         c.Subdir,
		"origin":         c.Origin,
		"manifest":       c.Manifest,
		"glob":           c.Glob,
		"negationBase":   c.NegationBase,
		"slackChannels":  MaskSecret(c.SlackChannels),
		"dryRun":         c.DryRun,
		"mailFrom":       c.MailFrom,
		"mailErrorTo":    c.MailErrorTo,
		"mailDebugTo":    c.MailDebugTo,
		"sendgridApiKey": MaskSecret(c.SendGridAPIKey),
		"concurrency":    c.Concurrency,
		"noticeMaxChars": c.NoticeMaxChars,
		"maxRetries":     c.MaxRetries,
		"retryBaseDelay": c.RetryBaseDelay,
		"logLevel":       c.LogLevel,
		"historyDb":      c.HistoryDB,
		"appName":        c.AppName,
	}
}

// MaskSecret keeps at most a four character hint of a secret
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}

func configError(format string, args ...interface{}) error {
	return utils.Errorf(utils.ErrCodeConfiguration, format, args...)
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
