// Package sync runs one reconciliation pass from a source tree to the
// destination store.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dl-alexandre/gitdrive/internal/history"
	"github.com/dl-alexandre/gitdrive/internal/notify"
	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/source"
	"github.com/dl-alexandre/gitdrive/internal/sync/diff"
	"github.com/dl-alexandre/gitdrive/internal/sync/executor"
	"github.com/dl-alexandre/gitdrive/internal/sync/inventory"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Reporter mails the outcome of a run
type Reporter interface {
	SendFailure(ctx context.Context, errorsText, trail string) error
	SendTrail(ctx context.Context, trail string) error
}

// Recorder keeps a ledger of finished runs
type Recorder interface {
	RecordRun(ctx context.Context, run history.Run, ops []history.Operation) error
}

type Engine struct {
	enumerator source.Enumerator
	store      remote.Store
	fs         afero.Fs
	log        *runlog.Log
	channel    notify.Channel
	reporter   Reporter
	recorder   Recorder
	opts       Options
	now        func() time.Time
}

type Options struct {
	RunID  string
	RootID string
	Source source.Options
	// LocalRoot is where tracked files are read from; defaults to Source.Root
	LocalRoot      string
	DryRun         bool
	AppName        string
	Concurrency    int
	NoticeMaxChars int
	NoticeInterval time.Duration
}

// Deps are the optional collaborators of an engine
type Deps struct {
	Fs       afero.Fs
	Channel  notify.Channel
	Reporter Reporter
	Recorder Recorder
}

type Plan struct {
	Tracked   []source.TrackedFile
	Inventory *inventory.Inventory
	Diff      diff.Result
}

type Report struct {
	RunID    string           `json:"runId"`
	DryRun   bool             `json:"dryRun"`
	Planned  int              `json:"planned"`
	UpToDate int              `json:"upToDate"`
	Summary  executor.Summary `json:"summary"`
	Duration time.Duration    `json:"durationNs"`
}

func NewEngine(enumerator source.Enumerator, store remote.Store, log *runlog.Log, deps Deps, opts Options) *Engine {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if log == nil {
		log = runlog.New(nil)
	}
	if opts.LocalRoot == "" {
		opts.LocalRoot = opts.Source.Root
	}
	if opts.NoticeInterval <= 0 {
		opts.NoticeInterval = time.Duration(utils.DefaultNoticeInterval) * time.Millisecond
	}
	return &Engine{
		enumerator: enumerator,
		store:      store,
		fs:         deps.Fs,
		log:        log,
		channel:    deps.Channel,
		reporter:   deps.Reporter,
		recorder:   deps.Recorder,
		opts:       opts,
		now:        time.Now,
	}
}

// Plan enumerates the source and lists the destination in parallel, then
// computes the actions. Both listings are required.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	var tracked []source.TrackedFile
	var inv *inventory.Inventory

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		files, err := e.enumerator.ListTrackedFiles(gctx, e.opts.Source)
		if err != nil {
			if utils.CodeOf(err) != utils.ErrCodeUnknown {
				return err
			}
			return setupError(ctx, utils.ErrCodeParse, "failed to list tracked files", err)
		}
		tracked = files
		return nil
	})
	g.Go(func() error {
		h, err := e.store.Hierarchy(gctx, e.opts.RootID)
		if err != nil {
			return setupError(ctx, utils.ErrCodeRetrieval, "failed to list the destination folder", err)
		}
		built, err := inventory.Build(e.opts.RootID, h)
		if err != nil {
			return err
		}
		inv = built
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := diff.Compute(tracked, inv.Files())
	counts := result.Counts()
	e.log.Log("Planned %d creates, %d updates, %d deletes; %d files up to date",
		counts[diff.ActionCreate], counts[diff.ActionUpdate], counts[diff.ActionDelete], len(result.UpToDate))

	return &Plan{Tracked: tracked, Inventory: inv, Diff: result}, nil
}

// Apply executes a plan. Notices are flushed while the executor works and
// once more after every operation has settled.
func (e *Engine) Apply(ctx context.Context, plan *Plan) (executor.Summary, error) {
	if plan.Diff.Empty() {
		e.log.Log("Destination is up to date, nothing to apply")
		return executor.Summary{}, nil
	}

	store := e.store
	channel := e.channel
	if e.opts.DryRun {
		store = remote.NewDryRunStore(store)
		channel = &logChannel{log: e.log}
	}

	aggregator := &notify.Aggregator{
		Source:   e.log,
		Channel:  channel,
		MaxChars: e.opts.NoticeMaxChars,
		Log:      e.log,
	}
	stop := make(chan struct{})
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		aggregator.Run(ctx, stop, e.opts.NoticeInterval)
	}()

	exec := executor.New(store, plan.Inventory, source.NewSet(plan.Tracked), e.fs, e.log, executor.Options{
		LocalRoot:   e.opts.LocalRoot,
		AppName:     e.opts.AppName,
		Concurrency: e.opts.Concurrency,
	})
	summary, err := exec.Apply(ctx, plan.Diff.Actions)

	close(stop)
	<-flushed
	aggregator.Flush(context.WithoutCancel(ctx))

	e.log.Log("Created %d, updated %d, deleted %d files (%s uploaded); %d folders created, %d deleted; %d operations failed",
		summary.Created, summary.Updated, summary.Deleted, humanize.Bytes(uint64(summary.BytesUploaded)),
		summary.FoldersCreated, summary.FoldersDeleted, summary.Failed)
	return summary, err
}

// Run plans and applies, then reports the outcome. The error is set only when
// the run could not get to applying its plan, or the executor itself broke;
// failed operations are counted in the report instead.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	started := e.now()
	report := &Report{RunID: e.opts.RunID, DryRun: e.opts.DryRun}
	if e.opts.DryRun {
		e.log.Log("Dry run: no change will be made to the destination")
	}

	plan, err := e.Plan(ctx)
	if err == nil {
		report.Planned = len(plan.Diff.Actions)
		report.UpToDate = len(plan.Diff.UpToDate)
		report.Summary, err = e.Apply(ctx, plan)
	}
	report.Duration = e.now().Sub(started)

	if err != nil {
		e.log.Error("%s", utils.Describe(err))
	}
	e.finish(ctx, started, plan, report, err)
	return report, err
}

// finish mails and records the run; failures here are logged only
func (e *Engine) finish(ctx context.Context, started time.Time, plan *Plan, report *Report, runErr error) {
	ctx = context.WithoutCancel(ctx)

	status := history.StatusSucceeded
	if runErr != nil {
		status = history.StatusFailed
	}

	if e.recorder != nil {
		run := history.Run{
			ID:             e.opts.RunID,
			StartedAt:      started,
			FinishedAt:     started.Add(report.Duration),
			Origin:         e.opts.Source.Origin,
			RootID:         e.opts.RootID,
			DryRun:         e.opts.DryRun,
			Created:        report.Summary.Created,
			Updated:        report.Summary.Updated,
			Deleted:        report.Summary.Deleted,
			FoldersCreated: report.Summary.FoldersCreated,
			FoldersDeleted: report.Summary.FoldersDeleted,
			FailedOps:      report.Summary.Failed,
			Status:         status,
		}
		if e.log.HasErrors() {
			run.ErrorTrail = e.log.Errors()
		}
		if err := e.recorder.RecordRun(ctx, run, operations(plan)); err != nil {
			e.log.Error("Failed to record run history: %s", err.Error())
		}
	}

	if e.reporter == nil {
		return
	}
	var err error
	if runErr != nil {
		err = e.reporter.SendFailure(ctx, e.log.Errors(), e.log.Trail())
	} else {
		err = e.reporter.SendTrail(ctx, e.log.Trail())
	}
	if err != nil {
		e.log.Error("Failed to send the run report: %s", err.Error())
	}
}

func operations(plan *Plan) []history.Operation {
	if plan == nil {
		return nil
	}
	ops := make([]history.Operation, 0, len(plan.Diff.Actions))
	for _, a := range plan.Diff.Actions {
		ops = append(ops, history.Operation{Action: string(a.Type), Path: a.Path, Fingerprint: a.Fingerprint()})
	}
	return ops
}

// setupError keeps cancellation recognizable and tags anything else with
// code, unless it already carries it
func setupError(ctx context.Context, code, msg string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCancelled, "run cancelled").Build(), err)
	}
	if utils.CodeOf(err) == code {
		return err
	}
	return utils.WrapAppError(utils.NewCLIError(code, msg).Build(), err)
}

// logChannel keeps dry-run notices in the run log instead of posting them
type logChannel struct {
	log *runlog.Log
}

func (c *logChannel) Post(ctx context.Context, text string) error {
	c.log.Log("[dry run] %s", text)
	return nil
}

type plannedAction struct {
	Action      diff.ActionType `json:"action"`
	Path        string          `json:"path"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	RemoteID    string          `json:"remoteId,omitempty"`
}

// MarshalJSON renders the planned actions, not the listings behind them
func (p *Plan) MarshalJSON() ([]byte, error) {
	actions := make([]plannedAction, 0, len(p.Diff.Actions))
	for _, a := range p.Diff.Actions {
		pa := plannedAction{Action: a.Type, Path: a.Path, Fingerprint: a.Fingerprint()}
		if a.Remote != nil {
			pa.RemoteID = a.Remote.ID
		}
		actions = append(actions, pa)
	}
	return json.Marshal(struct {
		Tracked  int             `json:"tracked"`
		Actions  []plannedAction `json:"actions"`
		UpToDate []string        `json:"upToDate"`
	}{len(p.Tracked), actions, p.Diff.UpToDate})
}

// Headers, Rows and EmptyMessage render a plan as a table
func (p *Plan) Headers() []string {
	return []string{"Action", "Path", "Fingerprint"}
}

func (p *Plan) Rows() [][]string {
	rows := make([][]string, 0, len(p.Diff.Actions))
	for _, a := range p.Diff.Actions {
		rows = append(rows, []string{string(a.Type), a.Path, a.Fingerprint()})
	}
	return rows
}

func (p *Plan) EmptyMessage() string {
	return strconv.Itoa(len(p.Diff.UpToDate)) + " files up to date, nothing to do"
}

func (r *Report) Headers() []string {
	return []string{"Metric", "Value"}
}

func (r *Report) Rows() [][]string {
	s := r.Summary
	return [][]string{
		{"Run", r.RunID},
		{"Dry run", strconv.FormatBool(r.DryRun)},
		{"Planned", strconv.Itoa(r.Planned)},
		{"Up to date", strconv.Itoa(r.UpToDate)},
		{"Created", strconv.Itoa(s.Created)},
		{"Updated", strconv.Itoa(s.Updated)},
		{"Deleted", strconv.Itoa(s.Deleted)},
		{"Folders created", strconv.Itoa(s.FoldersCreated)},
		{"Folders deleted", strconv.Itoa(s.FoldersDeleted)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Uploaded", humanize.Bytes(uint64(s.BytesUploaded))},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
}

func (r *Report) EmptyMessage() string {
	return ""
}
