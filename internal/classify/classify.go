// Package classify applies keyword rules to articles. Negative
// keywords veto an article outright; positive keywords assign it to
// the single highest-priority category that matches.
package classify

import (
	"log"
	"sort"
	"strings"

	"github.com/minhngoc/bantin/internal/config"
	"github.com/minhngoc/bantin/internal/daily"
)

// Article is a kept article with its assigned category.
type Article struct {
	daily.Article
	Category string
}

// Result groups categorized articles and the classification counters.
// Categories without a match are absent from ByCategory.
type Result struct {
	ByCategory map[string][]Article
	Matched    int
	Excluded   int
	Unmatched  int
	Duplicates int
}

// Engine evaluates keyword rules. Matching is case-insensitive
// substring search over title and summary, diacritics preserved.
type Engine struct {
	rules config.Rules
}

// New creates an engine for the given rules.
func New(rules config.Rules) *Engine {
	return &Engine{rules: rules}
}

// Categories returns category names in priority order.
func (e *Engine) Categories() []string {
	return e.rules.CategoryOrder()
}

// Run classifies articles. Duplicate links are dropped first, negative
// rules have absolute precedence over any positive match, and articles
// matching no category are dropped. Each category's list comes back
// newest first.
func (e *Engine) Run(articles []daily.Article) *Result {
	res := &Result{ByCategory: make(map[string][]Article)}
	seen := make(map[string]bool, len(articles))

	for _, a := range articles {
		if seen[a.Link] {
			res.Duplicates++
			continue
		}
		seen[a.Link] = true

		text := searchText(a)

		if kw, hit := matchAny(text, e.rules.Negative); hit {
			res.Excluded++
			log.Printf("Excluded %q (negative keyword %q)", a.Title, kw)
			continue
		}

		category, ok := e.categorize(text)
		if !ok {
			res.Unmatched++
			continue
		}
		res.Matched++
		res.ByCategory[category] = append(res.ByCategory[category], Article{Article: a, Category: category})
	}

	for _, list := range res.ByCategory {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Published.After(list[j].Published)
		})
	}

	log.Printf("Classification complete: %d matched, %d excluded, %d unmatched, %d duplicates",
		res.Matched, res.Excluded, res.Unmatched, res.Duplicates)
	return res
}

// categorize walks categories in priority order; the first hit claims
// the article.
func (e *Engine) categorize(text string) (string, bool) {
	for _, cat := range e.rules.Categories {
		if _, hit := matchAny(text, cat.Keywords); hit {
			return cat.Name, true
		}
	}
	return "", false
}

func matchAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func searchText(a daily.Article) string {
	return strings.ToLower(a.Title + " " + a.Summary)
}
