package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dl-alexandre/gitdrive/internal/config"
	"github.com/dl-alexandre/gitdrive/internal/logging"
	"github.com/dl-alexandre/gitdrive/internal/runlog"
	syncengine "github.com/dl-alexandre/gitdrive/internal/sync"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Publish the configured git revision to Drive",
	Long: `Reconcile the destination folder with the tracked files of GIT_ORIGIN.

Files whose fingerprint differs are uploaded, untracked files are trashed and
folders left empty are removed. Notices go to SLACK_CHANNELS and, when mail is
configured, the run trail is mailed at the end.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the actions a sync would take",
	Long:  "Enumerate the source, list the destination and print the planned actions without applying them.",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(planCmd)
}

// runtime is everything a Drive-facing command builds from the configuration
type runtime struct {
	cfg       *config.Config
	runID     string
	logger    logging.Logger
	transport http.RoundTripper
}

func newRuntime(runID string) (*runtime, error) {
	cfg, err := loadConfig(GetGlobalFlags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, transport, err := newLogger(cfg)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConfiguration,
			"failed to initialize logger").Build(), err)
	}
	logger = logger.WithTraceID(runID)
	logger.Debug("Configuration loaded", logging.F("config", cfg.Redacted()))

	return &runtime{cfg: cfg, runID: runID, logger: logger, transport: transport}, nil
}

// engine assembles a sync engine; the close function must be called once
// the engine is done
func (r *runtime) engine(ctx context.Context) (*syncengine.Engine, func(), error) {
	store, err := newDriveStore(ctx, r.cfg, r.logger, r.transport, r.runID)
	if err != nil {
		return nil, nil, err
	}
	src, err := sourceOptions(r.cfg)
	if err != nil {
		return nil, nil, err
	}

	fs := afero.NewOsFs()
	log := runlog.New(r.logger)
	deps, closeFn, err := engineDeps(r.cfg, fs)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	engine := syncengine.NewEngine(newEnumerator(r.cfg, fs, log), store, log, deps, engineOptions(r.cfg, r.runID, src))
	return engine, closeFn, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	runID := uuid.New().String()
	out := newOutput(cmd, runID)

	rt, err := newRuntime(runID)
	if err != nil {
		return fail(out, "sync", err)
	}
	defer func() { _ = rt.logger.Close() }()

	engine, closeFn, err := rt.engine(cmd.Context())
	if err != nil {
		return fail(out, "sync", err)
	}
	defer closeFn()

	report, err := engine.Run(cmd.Context())
	if err != nil {
		return fail(out, "sync", err)
	}
	if report.Summary.Failed > 0 {
		out.AddWarning("OPERATIONS_FAILED",
			fmt.Sprintf("%d of %d operations failed; see the error trail", report.Summary.Failed, report.Planned),
			"error")
	}
	return out.WriteSuccess("sync", report)
}

func runPlan(cmd *cobra.Command, args []string) error {
	runID := uuid.New().String()
	out := newOutput(cmd, runID)

	rt, err := newRuntime(runID)
	if err != nil {
		return fail(out, "plan", err)
	}
	defer func() { _ = rt.logger.Close() }()

	engine, closeFn, err := rt.engine(cmd.Context())
	if err != nil {
		return fail(out, "plan", err)
	}
	defer closeFn()

	plan, err := engine.Plan(cmd.Context())
	if err != nil {
		return fail(out, "plan", err)
	}
	return out.WriteSuccess("plan", plan)
}
