package history

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RecordRun stores a run and its operations in one transaction
func (d *DB) RecordRun(ctx context.Context, run Run, ops []Operation) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, origin, root_id, dry_run, created, updated, deleted,
			folders_created, folders_deleted, failed_ops, status, error_trail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Origin, run.RootID, boolToInt(run.DryRun),
		run.Created, run.Updated, run.Deleted, run.FoldersCreated, run.FoldersDeleted, run.FailedOps, run.Status, run.ErrorTrail)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_operations (run_id, seq, action, path, fingerprint) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for i, op := range ops {
		if _, err = stmt.ExecContext(ctx, run.ID, i, op.Action, op.Path, op.Fingerprint); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (d *DB) ListRuns(ctx context.Context, limit int) (runs []Run, err error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, origin, root_id, dry_run, created, updated, deleted,
		       folders_created, folders_deleted, failed_ops, status, error_trail
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns a run by id, or nil when it is unknown
func (d *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, origin, root_id, dry_run, created, updated, deleted,
		       folders_created, folders_deleted, failed_ops, status, error_trail
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListOperations returns the operations of a run in plan order
func (d *DB) ListOperations(ctx context.Context, runID string) (ops []Operation, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT action, path, fingerprint FROM run_operations WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var op Operation
		var fingerprint sql.NullString
		if err := rows.Scan(&op.Action, &op.Path, &fingerprint); err != nil {
			return nil, err
		}
		op.Fingerprint = fingerprint.String
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func scanRun(scanner interface {
	Scan(dest ...interface{}) error
}) (Run, error) {
	var run Run
	var started, finished int64
	var dryRun int
	var origin, trail sql.NullString
	err := scanner.Scan(&run.ID, &started, &finished, &origin, &run.RootID, &dryRun, &run.Created, &run.Updated, &run.Deleted,
		&run.FoldersCreated, &run.FoldersDeleted, &run.FailedOps, &run.Status, &trail)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.UnixMilli(started).UTC()
	run.FinishedAt = time.UnixMilli(finished).UTC()
	run.Origin = origin.String
	run.ErrorTrail = trail.String
	run.DryRun = dryRun != 0
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
