package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Issue identifiers look like "25/105": a two-digit year prefix and a
// zero-padded sequence within the year.

// ParseIssue splits an issue number into its year prefix, sequence and
// the sequence's zero-pad width. ok is false for malformed identifiers.
func ParseIssue(issueNo string) (year string, seq int, width int, ok bool) {
	parts := strings.Split(issueNo, "/")
	if len(parts) != 2 {
		return "", 0, 0, false
	}
	year = parts[0]
	seqS := parts[1]
	if year == "" || seqS == "" || !isDigits(year) || !isDigits(seqS) {
		return "", 0, 0, false
	}
	seq, err := strconv.Atoi(seqS)
	if err != nil {
		return "", 0, 0, false
	}
	return year, seq, len(seqS), true
}

// IssueSortKey derives the numeric ordering key year*1000+sequence.
// ok is false when the identifier cannot be parsed.
func IssueSortKey(issueNo string) (int, bool) {
	year, seq, _, ok := ParseIssue(issueNo)
	if !ok {
		return 0, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, false
	}
	return y*1000 + seq, true
}

// BuildIssue formats an issue number from its parts, preserving the
// sequence pad width.
func BuildIssue(year string, seq, width int) string {
	return fmt.Sprintf("%s/%0*d", year, width, seq)
}

// NextIssue returns the issue identifier following issueNo within the
// same year. Malformed identifiers are returned unchanged.
func NextIssue(issueNo string) string {
	year, seq, width, ok := ParseIssue(issueNo)
	if !ok {
		return issueNo
	}
	return BuildIssue(year, seq+1, width)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
