package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAndListRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := Run{
		ID: "run-1", StartedAt: base, FinishedAt: base.Add(2 * time.Second),
		Origin: "origin/main", RootID: "root", Created: 3, Status: StatusSucceeded,
	}
	second := Run{
		ID: "run-2", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
		RootID: "root", DryRun: true, Deleted: 1, FailedOps: 1, Status: StatusFailed, ErrorTrail: "ERROR: boom",
	}
	ops := []Operation{
		{Action: "delete", Path: "old.txt"},
		{Action: "create", Path: "a/b.txt", Fingerprint: "h1"},
	}

	if err := db.RecordRun(ctx, first, nil); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := db.RecordRun(ctx, second, ops); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Fatalf("ListRuns() = %+v", runs)
	}
	if !runs[0].DryRun || runs[0].ErrorTrail != "ERROR: boom" || runs[0].FailedOps != 1 {
		t.Errorf("run-2 = %+v", runs[0])
	}
	if !runs[1].StartedAt.Equal(base) || runs[1].Origin != "origin/main" || runs[1].Created != 3 {
		t.Errorf("run-1 = %+v", runs[1])
	}

	limited, err := db.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListRuns(1) = %d runs, %v", len(limited), err)
	}

	got, err := db.ListOperations(ctx, "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != ops[0] || got[1] != ops[1] {
		t.Errorf("ListOperations() = %+v", got)
	}
}

func TestRecordRun_DuplicateRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	run := Run{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now(), RootID: "root", Status: StatusSucceeded}

	if err := db.RecordRun(ctx, run, []Operation{{Action: "create", Path: "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordRun(ctx, run, []Operation{{Action: "create", Path: "b"}}); err == nil {
		t.Fatal("expected a primary key violation")
	}
	ops, _ := db.ListOperations(ctx, "dup")
	if len(ops) != 1 || ops[0].Path != "a" {
		t.Errorf("operations = %+v", ops)
	}
}

func TestGetRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if run, err := db.GetRun(ctx, "missing"); run != nil || err != nil {
		t.Errorf("GetRun(missing) = %v, %v", run, err)
	}
	_ = db.RecordRun(ctx, Run{ID: "r", StartedAt: time.Now(), FinishedAt: time.Now(), RootID: "root", Status: StatusSucceeded}, nil)
	if run, err := db.GetRun(ctx, "r"); err != nil || run == nil || run.Status != StatusSucceeded {
		t.Errorf("GetRun(r) = %+v, %v", run, err)
	}
}

func TestRunList_Rows(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := RunList{{ID: "r", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond), Status: StatusSucceeded, Created: 2}}.Rows()
	if len(rows) != 1 || rows[0][2] != "1.5s" || rows[0][4] != "2" {
		t.Errorf("Rows() = %v", rows)
	}
	if len(RunList{}.Rows()) != 0 {
		t.Error("empty list should have no rows")
	}
}
