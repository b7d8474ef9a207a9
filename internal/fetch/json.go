package fetch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hklotto/marksix/models"
)

// listKeys are tried in order when the payload wraps its rows in an
// object instead of being a bare array.
var listKeys = []string{"data", "results", "rows", "items", "draws", "list"}

// ParseOfficialJSON parses the official last-30-draws feed. Field
// names vary across feed revisions, so every field is resolved through
// a key fallback list.
func ParseOfficialJSON(raw string) ([]models.Draw, error) {
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}

	var rows []map[string]any
	switch v := payload.(type) {
	case []any:
		rows = dictRows(v)
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				rows = dictRows(list)
				break
			}
		}
	}

	var records []models.Draw
	for _, row := range rows {
		issueNo := extractIssueNo(row)
		drawDate := extractDrawDate(row)
		numbers := extractMainNumbers(row)
		special, specialOK := extractSpecialNumber(row)
		if issueNo == "" || drawDate == "" || len(numbers) != models.MainPicks || !specialOK {
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

func dictRows(list []any) []map[string]any {
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// fieldText renders a JSON value as trimmed text. Whole floats lose
// their ".0" suffix so numeric ids compare cleanly.
func fieldText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// extractIssueNo only accepts values carrying the year/sequence slash.
func extractIssueNo(row map[string]any) string {
	for _, key := range []string{"issueNo", "drawNo", "draw", "issue", "period", "id"} {
		text := fieldText(row[key])
		if text != "" && strings.Contains(text, "/") {
			return text
		}
	}
	return ""
}

func extractDrawDate(row map[string]any) string {
	for _, key := range []string{"date", "drawDate", "draw_date", "drawdate", "dt"} {
		if value, ok := row[key]; ok {
			if d := parseDate(fieldText(value)); d != "" {
				return d
			}
		}
	}
	return ""
}

// extractMainNumbers prefers split per-number fields, then falls back
// to comma separated list fields.
func extractMainNumbers(row map[string]any) []int {
	var split []int
	for _, key := range []string{"n1", "n2", "n3", "n4", "n5", "n6", "no1", "no2", "no3", "no4", "no5", "no6"} {
		if value, ok := row[key]; ok {
			if n, numOK := toNumber(fieldText(value)); numOK {
				split = append(split, n)
			}
		}
	}
	if len(split) >= models.MainPicks {
		return split[:models.MainPicks]
	}

	for _, key := range []string{"numbers", "nos", "no", "result", "main"} {
		nums := parseNumbers(fieldText(row[key]))
		if len(nums) >= models.MainPicks {
			return nums[:models.MainPicks]
		}
	}
	return nil
}

// extractSpecialNumber tries the dedicated fields first, then the
// seventh entry of a combined list.
func extractSpecialNumber(row map[string]any) (int, bool) {
	for _, key := range []string{"specialNumber", "special", "sno", "sn", "bonus", "extra", "n7", "no7"} {
		if n, ok := toNumber(fieldText(row[key])); ok {
			return n, true
		}
	}
	for _, key := range []string{"result", "no", "numbers"} {
		nums := parseNumbers(fieldText(row[key]))
		if len(nums) >= models.MainPicks+1 {
			return nums[models.MainPicks], true
		}
	}
	return 0, false
}
