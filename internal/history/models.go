package history

import (
	"strconv"
	"time"
)

// Run statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded invocation
type Run struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Origin         string    `json:"origin"`
	RootID         string    `json:"rootId"`
	DryRun         bool      `json:"dryRun"`
	Created        int       `json:"created"`
	Updated        int       `json:"updated"`
	Deleted        int       `json:"deleted"`
	FoldersCreated int       `json:"foldersCreated"`
	FoldersDeleted int       `json:"foldersDeleted"`
	FailedOps      int       `json:"failedOps"`
	Status         string    `json:"status"`
	ErrorTrail     string    `json:"errorTrail,omitempty"`
}

// Operation is one planned action of a run
type Operation struct {
	Action      string `json:"action"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// RunList renders runs as a table
type RunList []Run

func (l RunList) Headers() []string {
	return []string{"Run", "Started", "Duration", "Status", "Created", "Updated", "Deleted", "Failed", "Dry run"}
}

func (l RunList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			r.Status,
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Deleted),
			strconv.Itoa(r.FailedOps),
			strconv.FormatBool(r.DryRun),
		})
	}
	return rows
}

func (l RunList) EmptyMessage() string {
	return "No runs recorded"
}
