package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hklotto/marksix/models"
)

// UpsertPendingRun finds or creates the (issue, strategy) run. When the
// run is already REVIEWED it is returned as-is: reviewed runs are
// terminal and never regenerated.
func (db *DB) UpsertPendingRun(ctx context.Context, issueNo, strategy string) (runID int64, reviewed bool, err error) {
	var status string
	err = db.QueryRowContext(ctx, `
		SELECT id, status FROM prediction_runs WHERE issue_no = $1 AND strategy = $2
	`, issueNo, strategy).Scan(&runID, &status)
	switch {
	case err == nil:
		if status == models.RunStatusReviewed {
			return runID, true, nil
		}
		_, err = db.ExecContext(ctx, `
			UPDATE prediction_runs SET created_at = $1 WHERE id = $2
		`, time.Now().UTC(), runID)
		return runID, false, err
	case errors.Is(err, sql.ErrNoRows):
		err = db.QueryRowContext(ctx, `
			INSERT INTO prediction_runs (issue_no, strategy, status, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, issueNo, strategy, models.RunStatusPending, time.Now().UTC()).Scan(&runID)
		return runID, false, err
	default:
		return 0, false, err
	}
}

// ReplacePicks overwrites the picks of a run.
func (db *DB) ReplacePicks(ctx context.Context, runID int64, picks []models.PredictionPick) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replacePicksTx(ctx, tx, runID, picks); err != nil {
		return err
	}
	return tx.Commit()
}

func replacePicksTx(ctx context.Context, tx *sql.Tx, runID int64, picks []models.PredictionPick) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM prediction_picks WHERE run_id = $1`, runID); err != nil {
		return err
	}
	for _, p := range picks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prediction_picks (run_id, pick_type, number, rank, score, reason)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, p.PickType, p.Number, p.Rank, p.Score, p.Reason)
		if err != nil {
			return fmt.Errorf("inserting pick %d: %w", p.Number, err)
		}
	}
	return nil
}

// ReplacePools overwrites the frozen candidate pools of a run.
func (db *DB) ReplacePools(ctx context.Context, runID int64, pools map[int][]int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replacePoolsTx(ctx, tx, runID, pools); err != nil {
		return err
	}
	return tx.Commit()
}

func replacePoolsTx(ctx context.Context, tx *sql.Tx, runID int64, pools map[int][]int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM prediction_pools WHERE run_id = $1`, runID); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, size := range models.PoolSizes {
		numbers, ok := pools[size]
		if !ok {
			continue
		}
		numbersJSON, err := encodeNumbers(numbers)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO prediction_pools (run_id, pool_size, numbers_json, created_at)
			VALUES ($1, $2, $3, $4)
		`, runID, size, numbersJSON, now)
		if err != nil {
			return fmt.Errorf("inserting pool %d: %w", size, err)
		}
	}
	return nil
}

// SaveReviewedRun upserts one reviewed run with its picks and pools in
// a single transaction; the backtest harness writes results this way.
func (db *DB) SaveReviewedRun(ctx context.Context, run models.PredictionRun, picks []models.PredictionPick, pools map[int][]int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO prediction_runs (
			issue_no, strategy, status, hit_count, hit_rate,
			hit_count_10, hit_rate_10, hit_count_14, hit_rate_14,
			hit_count_20, hit_rate_20, special_hit, created_at, reviewed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (issue_no, strategy)
		DO UPDATE SET
			status = EXCLUDED.status,
			hit_count = EXCLUDED.hit_count, hit_rate = EXCLUDED.hit_rate,
			hit_count_10 = EXCLUDED.hit_count_10, hit_rate_10 = EXCLUDED.hit_rate_10,
			hit_count_14 = EXCLUDED.hit_count_14, hit_rate_14 = EXCLUDED.hit_rate_14,
			hit_count_20 = EXCLUDED.hit_count_20, hit_rate_20 = EXCLUDED.hit_rate_20,
			special_hit = EXCLUDED.special_hit,
			created_at = EXCLUDED.created_at, reviewed_at = EXCLUDED.reviewed_at
		RETURNING id
	`, run.IssueNo, run.Strategy, models.RunStatusReviewed,
		run.HitCount, run.HitRate, run.HitCount10, run.HitRate10,
		run.HitCount14, run.HitRate14, run.HitCount20, run.HitRate20,
		run.SpecialHit, now).Scan(&runID)
	if err != nil {
		return fmt.Errorf("upserting run %s/%s: %w", run.IssueNo, run.Strategy, err)
	}

	if err := replacePicksTx(ctx, tx, runID, picks); err != nil {
		return err
	}
	if err := replacePoolsTx(ctx, tx, runID, pools); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkRunReviewed writes the hit statistics and flips the run to
// REVIEWED.
func (db *DB) MarkRunReviewed(ctx context.Context, runID int64, run models.PredictionRun) error {
	_, err := db.ExecContext(ctx, `
		UPDATE prediction_runs
		SET status = $1, hit_count = $2, hit_rate = $3,
			hit_count_10 = $4, hit_rate_10 = $5,
			hit_count_14 = $6, hit_rate_14 = $7,
			hit_count_20 = $8, hit_rate_20 = $9,
			special_hit = $10, reviewed_at = $11
		WHERE id = $12
	`, models.RunStatusReviewed,
		run.HitCount, run.HitRate, run.HitCount10, run.HitRate10,
		run.HitCount14, run.HitRate14, run.HitCount20, run.HitRate20,
		run.SpecialHit, time.Now().UTC(), runID)
	return err
}

// ReviewedRunCount counts reviewed runs for one issue.
func (db *DB) ReviewedRunCount(ctx context.Context, issueNo string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM prediction_runs WHERE issue_no = $1 AND status = $2
	`, issueNo, models.RunStatusReviewed).Scan(&count)
	return count, err
}

// DeleteAllPredictions removes every run (with its picks and pools, via
// cascade) belonging to stored draw issues. Used by backtest rebuilds.
func (db *DB) DeleteAllPredictions(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM prediction_runs WHERE issue_no IN (SELECT issue_no FROM draws)
	`)
	return err
}

// PendingRunsForIssue lists the PENDING runs of one issue.
func (db *DB) PendingRunsForIssue(ctx context.Context, issueNo string) ([]models.PredictionRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, issue_no, strategy, created_at
		FROM prediction_runs
		WHERE issue_no = $1 AND status = $2
		ORDER BY strategy ASC
	`, issueNo, models.RunStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.PredictionRun
	for rows.Next() {
		r := models.PredictionRun{Status: models.RunStatusPending}
		if err := rows.Scan(&r.ID, &r.IssueNo, &r.Strategy, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanReviewedRuns(rows *sql.Rows) ([]models.PredictionRun, error) {
	var runs []models.PredictionRun
	for rows.Next() {
		r := models.PredictionRun{Status: models.RunStatusReviewed}
		var specialHit sql.NullBool
		var reviewedAt sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.IssueNo, &r.Strategy,
			&r.HitCount, &r.HitRate,
			&r.HitCount10, &r.HitRate10,
			&r.HitCount14, &r.HitRate14,
			&r.HitCount20, &r.HitRate20,
			&specialHit, &reviewedAt,
		); err != nil {
			return nil, err
		}
		if specialHit.Valid {
			r.SpecialHit = specialHit.Bool
		}
		if reviewedAt.Valid {
			r.ReviewedAt = reviewedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const reviewedRunColumns = `
	id, issue_no, strategy,
	COALESCE(hit_count, 0), COALESCE(hit_rate, 0),
	COALESCE(hit_count_10, 0), COALESCE(hit_rate_10, 0),
	COALESCE(hit_count_14, 0), COALESCE(hit_rate_14, 0),
	COALESCE(hit_count_20, 0), COALESCE(hit_rate_20, 0),
	special_hit, reviewed_at`

// ReviewedRunsForIssue lists the reviewed runs of one issue.
func (db *DB) ReviewedRunsForIssue(ctx context.Context, issueNo string) ([]models.PredictionRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reviewedRunColumns+`
		FROM prediction_runs
		WHERE issue_no = $1 AND status = $2
		ORDER BY strategy ASC
	`, issueNo, models.RunStatusReviewed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviewedRuns(rows)
}

// RecentReviews lists the most recently reviewed runs.
func (db *DB) RecentReviews(ctx context.Context, limit int) ([]models.PredictionRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reviewedRunColumns+`
		FROM prediction_runs
		WHERE status = $1
		ORDER BY reviewed_at DESC
		LIMIT $2
	`, models.RunStatusReviewed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviewedRuns(rows)
}

// PicksForRun returns the picks of a run in rank order, mains first.
func (db *DB) PicksForRun(ctx context.Context, runID int64) ([]models.PredictionPick, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT pick_type, number, rank, score, reason
		FROM prediction_picks
		WHERE run_id = $1
		ORDER BY pick_type ASC, rank ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var picks []models.PredictionPick
	for rows.Next() {
		var p models.PredictionPick
		if err := rows.Scan(&p.PickType, &p.Number, &p.Rank, &p.Score, &p.Reason); err != nil {
			return nil, err
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// PoolForRun returns the frozen pool of one size for a run; empty when
// no pool of that size was captured.
func (db *DB) PoolForRun(ctx context.Context, runID int64, size int) ([]int, error) {
	var numbersJSON string
	err := db.QueryRowContext(ctx, `
		SELECT numbers_json FROM prediction_pools WHERE run_id = $1 AND pool_size = $2
	`, runID, size).Scan(&numbersJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeNumbers(numbersJSON)
}

// PoolsForRun returns every frozen pool of a run keyed by size.
func (db *DB) PoolsForRun(ctx context.Context, runID int64) (map[int][]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT pool_size, numbers_json FROM prediction_pools WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make(map[int][]int)
	for rows.Next() {
		var size int
		var numbersJSON string
		if err := rows.Scan(&size, &numbersJSON); err != nil {
			return nil, err
		}
		numbers, err := decodeNumbers(numbersJSON)
		if err != nil {
			return nil, err
		}
		pools[size] = numbers
	}
	return pools, rows.Err()
}

// ReviewStats aggregates reviewed runs per strategy, best average hit
// rate first.
func (db *DB) ReviewStats(ctx context.Context) ([]models.ReviewStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			strategy,
			COUNT(*) AS c,
			AVG(hit_count) AS avg_hit,
			AVG(hit_rate) AS avg_rate,
			AVG(COALESCE(hit_rate_10, 0)) AS avg_rate_10,
			AVG(COALESCE(hit_rate_14, 0)) AS avg_rate_14,
			AVG(COALESCE(hit_rate_20, 0)) AS avg_rate_20,
			AVG(CASE WHEN COALESCE(special_hit, FALSE) THEN 1.0 ELSE 0.0 END) AS special_rate,
			AVG(CASE WHEN hit_count >= 1 THEN 1.0 ELSE 0.0 END) AS hit1_rate,
			AVG(CASE WHEN hit_count >= 2 THEN 1.0 ELSE 0.0 END) AS hit2_rate
		FROM prediction_runs
		WHERE status = $1
		GROUP BY strategy
		ORDER BY avg_rate DESC
	`, models.RunStatusReviewed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.ReviewStats
	for rows.Next() {
		var s models.ReviewStats
		if err := rows.Scan(
			&s.Strategy, &s.Count, &s.AvgHit, &s.AvgRate,
			&s.AvgRate10, &s.AvgRate14, &s.AvgRate20,
			&s.SpecialRate, &s.Hit1Rate, &s.Hit2Rate,
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
