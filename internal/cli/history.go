package cli

import (
	"strconv"

	"github.com/dl-alexandre/gitdrive/internal/history"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sync runs",
	Long:  "List the runs recorded in GITDRIVE_HISTORY_DB, most recent first.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the operations of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list (0 for all)")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

// runDetail is a run with the operations it planned
type runDetail struct {
	Run        *history.Run        `json:"run"`
	Operations []history.Operation `json:"operations"`
}

func (d runDetail) Headers() []string {
	return []string{"Seq", "Action", "Path", "Fingerprint"}
}

func (d runDetail) Rows() [][]string {
	rows := make([][]string, 0, len(d.Operations))
	for i, op := range d.Operations {
		rows = append(rows, []string{strconv.Itoa(i + 1), op.Action, op.Path, op.Fingerprint})
	}
	return rows
}

func (d runDetail) EmptyMessage() string {
	return "Run " + d.Run.ID + " planned no operation"
}

func openHistory() (*history.DB, error) {
	cfg, err := loadConfig(GetGlobalFlags())
	if err != nil {
		return nil, err
	}
	if cfg.HistoryDB == "" {
		return nil, utils.Errorf(utils.ErrCodeConfiguration, "GITDRIVE_HISTORY_DB is not set")
	}
	db, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, historyError(cfg.HistoryDB, err)
	}
	return db, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, "")

	db, err := openHistory()
	if err != nil {
		return fail(out, "history", err)
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fail(out, "history", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeRetrieval,
			"failed to list runs").Build(), err))
	}
	return out.WriteSuccess("history", history.RunList(runs))
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, args[0])

	db, err := openHistory()
	if err != nil {
		return fail(out, "history.show", err)
	}
	defer func() { _ = db.Close() }()

	run, err := db.GetRun(cmd.Context(), args[0])
	if err == nil && run == nil {
		err = utils.Errorf(utils.ErrCodeFileNotFound, "no run recorded with id %s", args[0])
	}
	if err != nil {
		return fail(out, "history.show", err)
	}
	ops, err := db.ListOperations(cmd.Context(), run.ID)
	if err != nil {
		return fail(out, "history.show", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeRetrieval,
			"failed to list operations").Build(), err))
	}
	return out.WriteSuccess("history.show", runDetail{Run: run, Operations: ops})
}
