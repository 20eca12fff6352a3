package cli

import (
	"context"
	"net/http"

	"github.com/dl-alexandre/gitdrive/internal/api"
	"github.com/dl-alexandre/gitdrive/internal/auth"
	"github.com/dl-alexandre/gitdrive/internal/config"
	"github.com/dl-alexandre/gitdrive/internal/drivestore"
	"github.com/dl-alexandre/gitdrive/internal/history"
	"github.com/dl-alexandre/gitdrive/internal/logging"
	"github.com/dl-alexandre/gitdrive/internal/notify"
	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/source"
	syncengine "github.com/dl-alexandre/gitdrive/internal/sync"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/afero"
)

// keyringService is the OS keyring service holding stored keys
const keyringService = "gitdrive"

// loadConfig reads the environment and env file, then applies flags
func loadConfig(flags types.GlobalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.EnvFile)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg, flags)
	return cfg, nil
}

// applyFlagOverrides lets explicit flags win over the environment
func applyFlagOverrides(cfg *config.Config, flags types.GlobalFlags) {
	if flags.DryRun {
		cfg.DryRun = true
	}
	if flags.Concurrency > 0 {
		cfg.Concurrency = flags.Concurrency
	}
	if flags.LogFile != "" {
		cfg.LogFile = flags.LogFile
	}
	switch {
	case flags.Debug:
		cfg.LogLevel = "debug"
	case flags.Verbose:
		cfg.LogLevel = "verbose"
	case flags.Quiet:
		cfg.LogLevel = "quiet"
	}
}

// newLogger builds the console/file logger for cfg. The transport is non-nil
// only at debug level.
func newLogger(cfg *config.Config) (logging.Logger, http.RoundTripper, error) {
	logConfig := logging.DefaultLogConfig()
	logConfig.Level = logging.LevelFromVerbosity(cfg.LogLevel)
	logConfig.OutputFile = cfg.LogFile
	logConfig.EnableDebug = cfg.LogLevel == "debug"

	logger, transport, err := logging.NewDebugLoggerWithTransport(logConfig)
	if err != nil {
		return nil, nil, err
	}
	if transport == nil {
		return logger, nil, nil
	}
	return logger, transport, nil
}

// newDriveStore authorizes with the service account key and wraps the Drive
// client with retries
func newDriveStore(ctx context.Context, cfg *config.Config, logger logging.Logger, transport http.RoundTripper, runID string) (*drivestore.Store, error) {
	authorizer := auth.NewServiceAccountAuthorizer(cfg.GoogleKey, afero.NewOsFs(), auth.NewKeyringStorage(keyringService))
	svc, err := auth.NewDriveService(ctx, authorizer, transport)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(svc, cfg.MaxRetries, cfg.RetryBaseDelay, logger)
	return drivestore.New(client, runID), nil
}

// newEnumerator reads a name-status manifest when one is configured and
// walks the git tree otherwise
func newEnumerator(cfg *config.Config, fs afero.Fs, log *runlog.Log) source.Enumerator {
	if cfg.Manifest != "" {
		return source.NewManifestEnumerator(fs, log, cfg.Manifest)
	}
	return source.NewGitEnumerator(fs, log)
}

// sourceOptions compiles the matcher; cfg must have been validated
func sourceOptions(cfg *config.Config) (source.Options, error) {
	matcher, err := cfg.Matcher()
	if err != nil {
		return source.Options{}, err
	}
	return source.Options{
		Root:    cfg.GitRoot,
		Origin:  cfg.Origin,
		Subdir:  cfg.Subdir,
		Matcher: matcher,
	}, nil
}

// engineDeps wires the optional collaborators configured in cfg. The
// returned close function releases the history database.
func engineDeps(cfg *config.Config, fs afero.Fs) (syncengine.Deps, func(), error) {
	deps := syncengine.Deps{Fs: fs}
	closeFn := func() {}

	if targets := notify.ParseSlackTargets(cfg.SlackChannels); len(targets) > 0 {
		deps.Channel = notify.NewSlackChannel(targets, notify.DefaultSlackOptions())
	}

	if cfg.MailEnabled() {
		mailer, err := notify.NewMailer(notify.MailConfig{
			APIKey:  cfg.SendGridAPIKey,
			From:    cfg.MailFrom,
			ErrorTo: cfg.MailErrorTo,
			DebugTo: cfg.MailDebugTo,
			Prefix:  cfg.MailPrefix,
		})
		if err != nil {
			return deps, closeFn, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConfiguration, err.Error()).Build(), err)
		}
		deps.Reporter = mailer
	}

	if cfg.HistoryDB != "" {
		db, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return deps, closeFn, historyError(cfg.HistoryDB, err)
		}
		deps.Recorder = db
		closeFn = func() { _ = db.Close() }
	}
	return deps, closeFn, nil
}

// engineOptions maps cfg onto the engine's run options
func engineOptions(cfg *config.Config, runID string, src source.Options) syncengine.Options {
	return syncengine.Options{
		RunID:          runID,
		RootID:         cfg.FolderID,
		Source:         src,
		DryRun:         cfg.DryRun,
		AppName:        cfg.AppName,
		Concurrency:    cfg.Concurrency,
		NoticeMaxChars: cfg.NoticeMaxChars,
	}
}

func historyError(path string, err error) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConfiguration, "failed to open the history database").
		WithContext("historyDb", path).
		Build(), err)
}
