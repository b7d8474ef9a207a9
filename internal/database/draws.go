package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hklotto/marksix/models"
)

func encodeNumbers(numbers []int) (string, error) {
	blob, err := json.Marshal(numbers)
	if err != nil {
		return "", fmt.Errorf("encoding numbers: %w", err)
	}
	return string(blob), nil
}

func decodeNumbers(blob string) ([]int, error) {
	var numbers []int
	if err := json.Unmarshal([]byte(blob), &numbers); err != nil {
		return nil, fmt.Errorf("decoding numbers: %w", err)
	}
	return numbers, nil
}

// UpsertDraw inserts or corrects one draw record, keyed by issue
// number. Returns true when the record was newly inserted.
func (db *DB) UpsertDraw(ctx context.Context, draw models.Draw, source string) (bool, error) {
	numbersJSON, err := encodeNumbers(draw.Numbers)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()

	var existing string
	err = db.QueryRowContext(ctx, `SELECT issue_no FROM draws WHERE issue_no = $1`, draw.IssueNo).Scan(&existing)
	switch {
	case err == nil:
		_, err = db.ExecContext(ctx, `
			UPDATE draws
			SET draw_date = $1, numbers_json = $2, special_number = $3, source = $4, updated_at = $5
			WHERE issue_no = $6
		`, draw.DrawDate, numbersJSON, draw.SpecialNumber, source, now, draw.IssueNo)
		return false, err
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.ExecContext(ctx, `
			INSERT INTO draws (issue_no, draw_date, numbers_json, special_number, source, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, draw.IssueNo, draw.DrawDate, numbersJSON, draw.SpecialNumber, source, now, now)
		return true, err
	default:
		return false, err
	}
}

// SyncDraws upserts a batch of records and reports the totals.
func (db *DB) SyncDraws(ctx context.Context, records []models.Draw, source string) (total, inserted, updated int, err error) {
	for _, r := range records {
		wasInserted, err := db.UpsertDraw(ctx, r, source)
		if err != nil {
			return total, inserted, updated, fmt.Errorf("upserting draw %s: %w", r.IssueNo, err)
		}
		if wasInserted {
			inserted++
		} else {
			updated++
		}
	}
	return len(records), inserted, updated, nil
}

// HasAnyDraw reports whether at least one draw is stored.
func (db *DB) HasAnyDraw(ctx context.Context) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM draws LIMIT 1`).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func scanDraws(rows *sql.Rows) ([]models.Draw, error) {
	var draws []models.Draw
	for rows.Next() {
		var d models.Draw
		var numbersJSON string
		var source sql.NullString
		if err := rows.Scan(&d.IssueNo, &d.DrawDate, &numbersJSON, &d.SpecialNumber, &source); err != nil {
			return nil, err
		}
		numbers, err := decodeNumbers(numbersJSON)
		if err != nil {
			return nil, fmt.Errorf("draw %s: %w", d.IssueNo, err)
		}
		d.Numbers = numbers
		if source.Valid {
			d.Source = source.String
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}

const drawColumns = `issue_no, draw_date, numbers_json, special_number, source`

// DrawsAsc returns the full draw history in canonical ascending order.
func (db *DB) DrawsAsc(ctx context.Context) ([]models.Draw, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+drawColumns+` FROM draws ORDER BY draw_date ASC, issue_no ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDraws(rows)
}

// RecentDraws returns up to limit draws, most recent first.
func (db *DB) RecentDraws(ctx context.Context, limit int) ([]models.Draw, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+drawColumns+` FROM draws ORDER BY draw_date DESC, issue_no DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDraws(rows)
}

// LatestDraw returns the most recent draw, or nil when none is stored.
func (db *DB) LatestDraw(ctx context.Context) (*models.Draw, error) {
	draws, err := db.RecentDraws(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, nil
	}
	return &draws[0], nil
}

// GetDraw returns one draw by issue number, or nil when unknown.
func (db *DB) GetDraw(ctx context.Context, issueNo string) (*models.Draw, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+drawColumns+` FROM draws WHERE issue_no = $1
	`, issueNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	draws, err := scanDraws(rows)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, nil
	}
	return &draws[0], nil
}

// DrawIssuesDesc lists issue numbers, most recent first.
func (db *DB) DrawIssuesDesc(ctx context.Context, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT issue_no FROM draws ORDER BY draw_date DESC, issue_no DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []string
	for rows.Next() {
		var issue string
		if err := rows.Scan(&issue); err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}
