// Package digest assembles the final bounded selection for one run.
package digest

import (
	"log"
	"time"

	"github.com/minhngoc/bantin/internal/classify"
)

// Digest is the bounded selection for a reference date, in round-robin
// order over categories. An empty digest is a valid value.
type Digest struct {
	Date     time.Time
	Articles []classify.Article
}

// Empty reports whether nothing was selected.
func (d *Digest) Empty() bool {
	return len(d.Articles) == 0
}

// Select picks up to limit articles: one per category per round, in
// the given priority order, skipping exhausted categories, until the
// limit is reached or nothing is left. Deterministic for a given
// input; the result keeps round-robin order.
func Select(byCategory map[string][]classify.Article, order []string, limit int, date time.Time) *Digest {
	d := &Digest{Date: date}
	if limit <= 0 {
		return d
	}

	next := make(map[string]int, len(order))
	for len(d.Articles) < limit {
		progressed := false
		for _, cat := range order {
			list := byCategory[cat]
			i := next[cat]
			if i >= len(list) {
				continue
			}
			d.Articles = append(d.Articles, list[i])
			next[cat] = i + 1
			progressed = true
			if len(d.Articles) == limit {
				break
			}
		}
		if !progressed {
			break
		}
	}

	log.Printf("Selected %d of %d categorized articles", len(d.Articles), available(byCategory))
	return d
}

func available(byCategory map[string][]classify.Article) int {
	n := 0
	for _, list := range byCategory {
		n += len(list)
	}
	return n
}
