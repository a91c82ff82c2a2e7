// Package daily narrows raw articles to those published on a reference
// calendar date in a target timezone. Articles whose publish time is
// missing or unparsable are dropped, never guessed.
package daily

import (
	"log"
	"time"

	"github.com/araddon/dateparse"

	"github.com/minhngoc/bantin/internal/collect"
)

// Article is a validated article: publish time normalized to the
// target timezone, summary cut to the rendering length.
type Article struct {
	Source    string
	Title     string
	Link      string
	Summary   string
	Published time.Time
}

// Result carries the kept articles and what was dropped on the way.
type Result struct {
	Articles    []Article
	DroppedDate int // missing or unparsable publish time
	DroppedDay  int // parsed fine, different calendar day
}

// Filter keeps exactly the articles published on day in loc, in input
// order. The day spans [00:00, 24:00) local time: one second before
// midnight belongs to the day, one second after does not.
func Filter(raw []collect.RawArticle, day time.Time, loc *time.Location, summaryLen int) *Result {
	res := &Result{}
	refYear, refMonth, refDay := day.In(loc).Date()

	for _, ra := range raw {
		published, ok := resolveTime(ra, loc)
		if !ok {
			res.DroppedDate++
			continue
		}

		local := published.In(loc)
		y, m, d := local.Date()
		if y != refYear || m != refMonth || d != refDay {
			res.DroppedDay++
			continue
		}

		res.Articles = append(res.Articles, Article{
			Source:    ra.Source,
			Title:     ra.Title,
			Link:      ra.Link,
			Summary:   Truncate(ra.Summary, summaryLen),
			Published: local,
		})
	}

	log.Printf("Date filter: kept %d of %d articles (%d undated, %d other days)",
		len(res.Articles), len(raw), res.DroppedDate, res.DroppedDay)
	return res
}

// resolveTime prefers the adapter's parsed timestamp and falls back to
// parsing the raw date text. Day-first order applies to ambiguous
// dates: 02/06 is the 2nd of June.
func resolveTime(ra collect.RawArticle, loc *time.Location) (time.Time, bool) {
	if !ra.Published.IsZero() {
		return ra.Published, true
	}
	if ra.PublishedRaw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(ra.PublishedRaw, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Truncate returns at most n runes of s, never cutting inside a
// multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
