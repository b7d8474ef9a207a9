// Package fetch loads draw history from the official JSON feed, third
// party sources and local CSV files, with per-source parsing and a
// fallback chain across sources.
package fetch

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hklotto/marksix/models"
)

// dateFormats are tried in order when normalizing draw dates.
var dateFormats = []string{"2006-01-02", "02/01/2006", "2006/01/02", time.RFC3339}

// parseDate normalizes a date string to YYYY-MM-DD. Empty result means
// unparseable.
func parseDate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, text); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// parseNumbers extracts the in-range numbers from a comma separated
// list. Full-width commas are accepted.
func parseNumbers(value string) []int {
	value = strings.ReplaceAll(value, "，", ",")
	var out []int
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		if n >= 1 && n <= models.NumberMax {
			out = append(out, n)
		}
	}
	return out
}

// toNumber parses a single in-range number. ok is false for anything
// outside 1..49.
func toNumber(value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 || n > models.NumberMax {
		return 0, false
	}
	return n, true
}

// pick returns the first non-empty value among the given row keys.
func pick(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// sortAndDedup orders records by (draw date, issue) and keeps the last
// record seen per issue.
func sortAndDedup(records []models.Draw) []models.Draw {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].DrawDate != records[j].DrawDate {
			return records[i].DrawDate < records[j].DrawDate
		}
		return records[i].IssueNo < records[j].IssueNo
	})
	byIssue := make(map[string]models.Draw, len(records))
	for _, r := range records {
		byIssue[r.IssueNo] = r
	}
	out := make([]models.Draw, 0, len(byIssue))
	for _, r := range byIssue {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DrawDate != out[j].DrawDate {
			return out[i].DrawDate < out[j].DrawDate
		}
		return out[i].IssueNo < out[j].IssueNo
	})
	return out
}

// ParseCSV parses draw history CSV text. Both Chinese and English
// headers are recognized, and the six main numbers may appear either
// as one comma separated column or as six split columns.
func ParseCSV(text string) ([]models.Draw, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\uFEFF")))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []models.Draw
	for _, cols := range rows[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(cols) {
				continue
			}
			row[name] = strings.TrimSpace(cols[i])
		}

		issueNo := pick(row, "期号", "期數", "issueNo", "issue_no")
		drawDate := parseDate(pick(row, "日期", "date", "drawDate", "draw_date"))
		special, specialOK := toNumber(pick(row, "特别号码", "特別號碼", "special", "specialNumber", "no7", "n7"))

		numbers := parseNumbers(pick(row, "中奖号码", "中獎號碼", "numbers", "result"))
		if len(numbers) != models.MainPicks {
			numbers = splitColumnNumbers(row)
		}

		if issueNo == "" || drawDate == "" || !specialOK || len(numbers) != models.MainPicks {
			continue
		}
		records = append(records, models.Draw{
			IssueNo:       issueNo,
			DrawDate:      drawDate,
			Numbers:       numbers,
			SpecialNumber: special,
		})
	}
	return sortAndDedup(records), nil
}

// splitColumnNumbers reads the six main numbers from split columns,
// tolerating both plain "1".."6" headers and "中奖号码 1" style ones.
func splitColumnNumbers(row map[string]string) []int {
	keyGroups := [models.MainPicks][]string{
		{"中奖号码 1", "中獎號碼 1", "1"},
		{"2"}, {"3"}, {"4"}, {"5"}, {"6"},
	}
	numbers := make([]int, 0, models.MainPicks)
	for _, keys := range keyGroups {
		n, ok := toNumber(pick(row, keys...))
		if !ok {
			return nil
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// ParseCSVFile parses a local draw history CSV file.
func ParseCSVFile(path string) ([]models.Draw, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseCSV(string(raw))
}
