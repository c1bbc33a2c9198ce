package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ctrdecrypt/internal/tally"
)

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, id, inputDir string, convert bool, started time.Time) error {
	if id == "" {
		return errors.New("run id required")
	}
	if err := s.exec(ctx,
		`INSERT INTO runs (id, input_dir, convert_to_cci, started_at) VALUES (?, ?, ?, ?)`,
		id, inputDir, boolToInt(convert), formatTime(started),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordTask stores the terminal state of one task.
func (s *Store) RecordTask(ctx context.Context, task Task) error {
	recorded := task.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT INTO tasks (
            run_id, input, batch, state, category, title_id, title_version,
            output, error_message, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.RunID,
		task.Input,
		task.Batch,
		task.State,
		nullableString(task.Category),
		nullableString(task.TitleID),
		nullableString(task.TitleVersion),
		nullableString(task.Output),
		nullableString(task.ErrorMessage),
		task.Duration.Milliseconds(),
		formatTime(recorded),
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// FinishRun stores the merged counters and outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id string, counters tally.Counters, finished time.Time) error {
	if err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, final = ?, count_3ds = ?, count_cia = ?,
            ds_err = ?, cia_err = ?, cci_err = ?, outcome = ? WHERE id = ?`,
		formatTime(finished),
		counters.Total,
		counters.Final,
		counters.Count3DS,
		counters.CountCIA,
		counters.DSErr,
		counters.CIAErr,
		counters.CCIErr,
		string(counters.Outcome()),
		id,
	); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

const runColumns = "id, input_dir, convert_to_cci, started_at, finished_at, total, final, count_3ds, count_cia, ds_err, cia_err, cci_err, outcome"

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Tasks returns the tasks of a run in recording order.
func (s *Store) Tasks(ctx context.Context, runID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, input, batch, state, category, title_id, title_version,
            output, error_message, duration_ms, recorded_at
        FROM tasks WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var (
			task                                    Task
			category, titleID, version, out, errMsg sql.NullString
			durationMS                              int64
			recordedRaw                             string
		)
		if err := rows.Scan(&task.RunID, &task.Input, &task.Batch, &task.State,
			&category, &titleID, &version, &out, &errMsg, &durationMS, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.Category = category.String
		task.TitleID = titleID.String
		task.TitleVersion = version.String
		task.Output = out.String
		task.ErrorMessage = errMsg.String
		task.Duration = time.Duration(durationMS) * time.Millisecond
		if recorded, err := parseTimeString(recordedRaw); err == nil {
			task.RecordedAt = recorded
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// PruneBefore deletes runs started before cutoff, with their tasks, and
// returns how many runs were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stamp := formatTime(cutoff)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM tasks WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", stamp); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", stamp)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run                  Run
		convert              int
		startedRaw           string
		finishedRaw, outcome sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.InputDir,
		&convert,
		&startedRaw,
		&finishedRaw,
		&run.Counters.Total,
		&run.Counters.Final,
		&run.Counters.Count3DS,
		&run.Counters.CountCIA,
		&run.Counters.DSErr,
		&run.Counters.CIAErr,
		&run.Counters.CCIErr,
		&outcome,
	); err != nil {
		return Run{}, err
	}
	run.ConvertToCCI = convert != 0
	run.Counters.ConvertToCCI = run.ConvertToCCI
	run.Outcome = outcome.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
