package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hklotto/marksix/models"
)

// Row layout after tag stripping: issue, date, six comma separated
// numbers, extra number.
var lottolyzerRowRe = regexp.MustCompile(
	`(\d{2}/\d{3})\s+(\d{4}-\d{2}-\d{2})\s+(\d{1,2}(?:,\d{1,2}){5})\s+(\d{1,2})\b`)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	pageFracRe   = regexp.MustCompile(`\b\d+\s*/\s*(\d+)\b`)
	pagePathRe   = regexp.MustCompile(`/page/\d+/`)
)

func flattenHTML(rawHTML string) string {
	text := htmlTagRe.ReplaceAllString(rawHTML, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return whitespaceRe.ReplaceAllString(text, " ")
}

// ParseLottolyzerHTML scrapes draw rows out of a summary-view page.
func ParseLottolyzerHTML(rawHTML string) []models.Draw {
	text := flattenHTML(rawHTML)

	var records []models.Draw
	for _, m := range lottolyzerRowRe.FindAllStringSubmatch(text, -1) {
		drawDate := parseDate(m[2])
		numbers := parseNumbers(m[3])
		extra, extraOK := toNumber(m[4])
		if drawDate == "" || len(numbers) != models.MainPicks || !extraOK {
			continue
		}
		records = append(records, models.Draw{
			IssueNo:       m[1],
			DrawDate:      drawDate,
			Numbers:       numbers,
			SpecialNumber: extra,
		})
	}
	return sortAndDedup(records)
}

// lottolyzerTotalPages reads the "page X / N" fraction off the pager.
// Fractions that cannot be a page count are ignored.
func lottolyzerTotalPages(rawHTML string) int {
	text := flattenHTML(rawHTML)
	best := 1
	for _, m := range pageFracRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 300 {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

// lottolyzerPageURL rewrites or appends the /page/N/ path segment.
func lottolyzerPageURL(baseURL string, pageNo int) string {
	if pagePathRe.MatchString(baseURL) {
		return pagePathRe.ReplaceAllString(baseURL, fmt.Sprintf("/page/%d/", pageNo))
	}
	if strings.HasSuffix(baseURL, "/") {
		return fmt.Sprintf("%spage/%d/", baseURL, pageNo)
	}
	return fmt.Sprintf("%s/page/%d/", baseURL, pageNo)
}

// FetchLottolyzer scrapes up to maxPages history pages starting from
// baseURL. A failed follow-up page stops the pagination but keeps what
// was already scraped.
func (f *Fetcher) FetchLottolyzer(ctx context.Context, baseURL string, maxPages int) ([]models.Draw, error) {
	firstHTML, err := f.client.GetText(ctx, baseURL, "text/html,*/*")
	if err != nil {
		return nil, err
	}

	totalPages := lottolyzerTotalPages(firstHTML)
	if maxPages < 1 {
		maxPages = 1
	}
	if totalPages > maxPages {
		totalPages = maxPages
	}

	records := ParseLottolyzerHTML(firstHTML)
	for pageNo := 2; pageNo <= totalPages; pageNo++ {
		pageURL := lottolyzerPageURL(baseURL, pageNo)
		html, err := f.client.GetText(ctx, pageURL, "text/html,*/*")
		if err != nil {
			f.logger.Warn().Str("url", pageURL).Err(err).Msg("Pagination stopped early")
			break
		}
		records = append(records, ParseLottolyzerHTML(html)...)
	}
	return sortAndDedup(records), nil
}
