package fetch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/models"
)

// Source labels recorded on synced draws.
const (
	SourceOfficial = "official_api"
	SourceLocalCSV = "local_csv"
)

// Fetcher pulls draw history from the configured online sources.
type Fetcher struct {
	client   *Client
	logger   zerolog.Logger
	maxPages int
}

// NewFetcher wraps a rate-limited client. thirdPartyMaxPages bounds
// scraper pagination; zero means a single page.
func NewFetcher(client *Client, thirdPartyMaxPages int) *Fetcher {
	return &Fetcher{
		client:   client,
		logger:   log.With().Str("component", "fetch").Logger(),
		maxPages: thirdPartyMaxPages,
	}
}

// FetchURL pulls records from one source URL. Lottolyzer history URLs
// go through the scraper; everything else is sniffed as JSON first and
// parsed as CSV otherwise.
func (f *Fetcher) FetchURL(ctx context.Context, url, sourceLabel string) ([]models.Draw, error) {
	if strings.Contains(url, "lottolyzer.com/history/hong-kong/mark-six") {
		records, err := f.FetchLottolyzer(ctx, url, f.maxPages)
		if err == nil && len(records) > 0 {
			return records, nil
		}
		if err != nil {
			f.logger.Warn().Str("url", url).Err(err).Msg("Scraper failed, trying direct fetch")
		}
	}

	raw, err := f.client.GetText(ctx, url, "application/json,text/plain,text/csv,*/*")
	if err != nil {
		return nil, err
	}

	stripped := strings.TrimSpace(raw)
	if strings.HasPrefix(stripped, "{") || strings.HasPrefix(stripped, "[") {
		records, err := ParseOfficialJSON(raw)
		if err == nil && len(records) > 0 {
			return records, nil
		}
	}

	records, err := ParseCSV(raw)
	if err == nil && len(records) > 0 {
		return records, nil
	}

	return nil, fmt.Errorf("%s parsed 0 records", sourceLabel)
}

// FetchWithFallback tries the official feed first, then each third
// party URL in order. Returns the records with the source label and
// URL that served them.
func (f *Fetcher) FetchWithFallback(ctx context.Context, officialURL string, thirdPartyURLs []string) ([]models.Draw, string, string, error) {
	var failures []string

	if strings.TrimSpace(officialURL) != "" {
		records, err := f.FetchURL(ctx, officialURL, "official source")
		if err == nil {
			return records, SourceOfficial, officialURL, nil
		}
		failures = append(failures, fmt.Sprintf("official failed: %v", err))
		f.logger.Warn().Str("url", officialURL).Err(err).Msg("Official source failed")
	}

	for i, url := range thirdPartyURLs {
		label := fmt.Sprintf("third-party source #%d", i+1)
		records, err := f.FetchURL(ctx, url, label)
		if err == nil {
			return records, fmt.Sprintf("third_party_api_%d", i+1), url, nil
		}
		failures = append(failures, fmt.Sprintf("third_party[%d] failed: %v", i+1, err))
		f.logger.Warn().Str("url", url).Err(err).Msg("Third-party source failed")
	}

	if len(failures) == 0 {
		return nil, "", "", errors.New("no online source configured")
	}
	return nil, "", "", errors.New(strings.Join(failures, " | "))
}

// ParseURLList splits comma separated URL lists and drops duplicates,
// preserving order.
func ParseURLList(values ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			url := strings.TrimSpace(part)
			if url != "" && !seen[url] {
				out = append(out, url)
				seen[url] = true
			}
		}
	}
	return out
}

// MissingIssues walks the issue sequence from the latest stored issue
// up to the newest incoming one and reports the identifiers covered by
// neither the store nor the incoming batch. Sequence numbers past 366
// roll over to the next year. stored reports whether an issue is
// already persisted.
func MissingIssues(latestIssue string, incoming []models.Draw, stored func(issueNo string) bool) []string {
	year, seq, width, ok := models.ParseIssue(latestIssue)
	if !ok {
		return nil
	}
	latestKey, _ := models.IssueSortKey(latestIssue)

	incomingSet := make(map[string]bool, len(incoming))
	maxKey := 0
	for _, r := range incoming {
		incomingSet[r.IssueNo] = true
		if key, keyOK := models.IssueSortKey(r.IssueNo); keyOK && key > maxKey {
			maxKey = key
		}
	}
	if maxKey <= latestKey {
		return nil
	}

	probeYear, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	yearWidth := len(year)
	probeSeq := seq
	probeKey := latestKey

	var missing []string
	for probeKey < maxKey {
		probeSeq++
		if probeSeq > 366 {
			probeYear++
			probeSeq = 1
			width = 3
		}
		issue := models.BuildIssue(fmt.Sprintf("%0*d", yearWidth, probeYear), probeSeq, width)
		probeKey = probeYear*1000 + probeSeq
		if !incomingSet[issue] && !stored(issue) {
			missing = append(missing, issue)
		}
	}
	return missing
}
